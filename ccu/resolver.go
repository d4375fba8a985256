package ccu

import (
	"fmt"
	"math/bits"
)

// Resolver picks NKMP factors for a target rate.
type Resolver interface {
	Resolve(parent, target uint64, lim Limits) (Factors, error)
}

// Resolvers maps the names accepted in configuration to resolvers.
var Resolvers = map[string]Resolver{
	"table":  TableResolver{},
	"search": SearchResolver{},
}

func checkArgs(parent, target uint64, lim Limits) error {
	if target == 0 {
		return fmt.Errorf("target rate 0: %w", ErrInvalidParameter)
	}
	if parent == 0 {
		return fmt.Errorf("parent rate 0: %w", ErrInvalidParameter)
	}
	return lim.validate()
}

// SearchResolver searches the factor space for the rate closest to the
// target. Ties go to the lowest m, then the lowest p, k and n.
type SearchResolver struct{}

// Resolve walks m, then p, then k and tries the two values of n around the
// ideal one. It isn't exhaustive over n but always returns a candidate.
func (SearchResolver) Resolve(parent, target uint64, lim Limits) (Factors, error) {
	if err := checkArgs(parent, target, lim); err != nil {
		return Factors{}, err
	}
	var best Factors
	bestErr := ^uint64(0)
	for m := uint64(1); m <= lim.MaxM; m++ {
		for p := uint64(1); p <= lim.MaxP && p != 0; p <<= 1 {
			for k := uint64(1); k <= lim.MaxK; k++ {
				// n*parent*k/(m*p) == target
				mpHi, mp := bits.Mul64(m, p)
				hi, lo := bits.Mul64(target, mp)
				dHi, d := bits.Mul64(parent, k)
				if dHi != 0 {
					continue
				}
				n0 := lim.MaxN // ideal n beyond 64 bits
				if mpHi == 0 && hi == 0 {
					n0 = lo / d
				}
				for _, n := range [2]uint64{n0, n0 + 1} {
					if n < 1 {
						n = 1
					}
					if n > lim.MaxN {
						n = lim.MaxN
					}
					f := Factors{N: n, K: k, M: m, P: p}
					nkHi, nk := bits.Mul64(n, k)
					if hi, _ := bits.Mul64(parent, nk); nkHi != 0 || hi != 0 {
						continue
					}
					r := f.Rate(parent)
					e := absDiff(r, target)
					if e < bestErr {
						best, bestErr = f, e
						if e == 0 {
							return best, nil
						}
					}
				}
			}
		}
	}
	if bestErr == ^uint64(0) {
		return Factors{}, fmt.Errorf("rate %d from %d: %w", target, parent, ErrNoFactorFound)
	}
	return best, nil
}

// RoundRate resolves target against the limits of l and returns the rate the
// clock would really run at.
func RoundRate(r Resolver, parent, target uint64, l Layout) (uint64, Factors, error) {
	f, err := r.Resolve(parent, target, l.Limits())
	if err != nil {
		return 0, Factors{}, err
	}
	return f.Rate(parent), f, nil
}

func absDiff(a, b uint64) uint64 {
	if a > b {
		return a - b
	}
	return b - a
}
