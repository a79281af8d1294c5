//go:build !sqlite

package storage

import "fmt"

func newSQLiteArchiver(_ string) (Archiver, error) {
	return nil, fmt.Errorf("sqlite archive unavailable in this build; rebuild with -tags sqlite")
}
