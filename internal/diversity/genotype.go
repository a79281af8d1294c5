// Package diversity scores how different personas and their outputs are,
// structurally over genotypes and semantically over generated text.
package diversity

import (
	"math"

	"personagen/internal/model"
)

// ageRange normalizes integer distances, ages live in [18, 80].
const ageRange = 62.0

// GenotypeDistance is the structural distance between two genotypes: the
// mean of per-field normalized distances over the union of attribute keys.
// 0 means structurally identical, 1 maximally different.
func GenotypeDistance(a, b model.Genotype) float64 {
	keys := make(map[string]struct{}, len(a.Attributes)+len(b.Attributes))
	for k := range a.Attributes {
		keys[k] = struct{}{}
	}
	for k := range b.Attributes {
		keys[k] = struct{}{}
	}
	if len(keys) == 0 {
		return 0
	}
	var sum float64
	for k := range keys {
		sum += fieldDistance(a.Attributes[k], b.Attributes[k])
	}
	return sum / float64(len(keys))
}

func fieldDistance(va, vb model.Value) float64 {
	switch {
	case va.Kind() == model.KindStrings || vb.Kind() == model.KindStrings:
		la, _ := va.AsStrings()
		lb, _ := vb.AsStrings()
		return jaccardDistance(la, lb)
	case va.Kind() == model.KindTraits || vb.Kind() == model.KindTraits:
		ta, _ := va.AsTraits()
		tb, _ := vb.AsTraits()
		return traitDistance(ta, tb)
	case va.Kind() == model.KindInt && vb.Kind() == model.KindInt:
		ia, _ := va.AsInt()
		ib, _ := vb.AsInt()
		return math.Min(1, math.Abs(float64(ia-ib))/ageRange)
	default:
		if va.Equal(vb) {
			return 0
		}
		return 1
	}
}

func jaccardDistance(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	setA := make(map[string]struct{}, len(a))
	for _, s := range a {
		setA[s] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, s := range b {
		setB[s] = struct{}{}
	}
	union := len(setA)
	shared := 0
	for s := range setB {
		if _, inA := setA[s]; inA {
			shared++
		} else {
			union++
		}
	}
	return 1 - float64(shared)/float64(union)
}

func traitDistance(a, b map[string]float64) float64 {
	keys := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		keys[k] = struct{}{}
	}
	for k := range b {
		keys[k] = struct{}{}
	}
	if len(keys) == 0 {
		return 0
	}
	var sum float64
	for k := range keys {
		sum += math.Min(1, math.Abs(a[k]-b[k]))
	}
	return sum / float64(len(keys))
}
