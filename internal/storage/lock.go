package storage

import (
	"fmt"
	"os"
	"time"
)

const (
	lockRetryInterval = 10 * time.Millisecond
	lockTimeout       = 5 * time.Second
)

// acquireLock takes an advisory lock by exclusively creating the lock file.
// The returned release removes it. Lock files older than the timeout are
// treated as stale leftovers of a crashed process and broken.
func acquireLock(path string) (release func(), err error) {
	deadline := time.Now().Add(lockTimeout)
	for {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			f.Close()
			return func() { os.Remove(path) }, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("acquire lock %s: %w", path, err)
		}
		if info, statErr := os.Stat(path); statErr == nil && time.Since(info.ModTime()) > lockTimeout {
			os.Remove(path)
			continue
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("acquire lock %s: timed out", path)
		}
		time.Sleep(lockRetryInterval)
	}
}
