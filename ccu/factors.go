package ccu

import (
	"errors"
	"fmt"
	"math/bits"
)

var (
	// ErrInvalidParameter is returned for a zero target rate, a zero parent
	// rate, degenerate limits or factors that don't fit a register field.
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrNoFactorFound is returned when no factor set inside the limits exists.
	ErrNoFactorFound = errors.New("no factor found")
)

// Factors holds the resolved values of an NKMP clock: N, K and M are the
// register values plus one, P is the power-of-two post divider (1, 2, 4...).
//
// The output of the clock is (parent * N * K >> log2(P)) / M.
type Factors struct {
	N uint64
	K uint64
	M uint64
	P uint64
}

func (f Factors) String() string {
	return fmt.Sprintf("n=%d k=%d m=%d p=%d", f.N, f.K, f.M, f.P)
}

// Rate returns the output rate for parent, shifting before dividing the way
// the hardware does.
func (f Factors) Rate(parent uint64) uint64 {
	if f.M == 0 || f.P == 0 {
		return 0
	}
	return (parent * f.N * f.K >> log2(f.P)) / f.M
}

// Within reports whether every factor lies in [1, max] for lim.
func (f Factors) Within(lim Limits) bool {
	return f.N >= 1 && f.N <= lim.MaxN &&
		f.K >= 1 && f.K <= lim.MaxK &&
		f.M >= 1 && f.M <= lim.MaxM &&
		f.P >= 1 && f.P <= lim.MaxP && isPow2(f.P)
}

// Field is one factor field of a clock register.
type Field struct {
	Shift uint8
	Width uint8
	// Max overrides the maximum derived from Width when non-zero. Only
	// meaningful for M and P.
	Max uint64
}

func (f Field) mask() uint32 {
	return uint32((uint64(1)<<f.Width)-1) << f.Shift
}

func (f Field) get(reg uint32) uint64 {
	return uint64((reg >> f.Shift) & ((1 << f.Width) - 1))
}

// Layout is the register layout of one NKMP clock. A field with a zero width
// is absent and fixed at a factor of 1.
type Layout struct {
	N Field
	K Field
	M Field
	P Field
}

// Limits are the largest resolved values each factor may take.
type Limits struct {
	MaxN uint64
	MaxK uint64
	MaxM uint64
	MaxP uint64
}

func (l Limits) validate() error {
	if l.MaxN < 1 || l.MaxK < 1 || l.MaxM < 1 || l.MaxP < 1 {
		return fmt.Errorf("degenerate limits %+v: %w", l, ErrInvalidParameter)
	}
	return nil
}

// Limits derives the factor limits of the layout. A P field wider than 6
// bits can't be expressed and gives MaxP 0.
func (l Layout) Limits() Limits {
	lim := Limits{
		MaxN: 1 << l.N.Width,
		MaxK: 1 << l.K.Width,
		MaxM: 1 << l.M.Width,
		MaxP: uint64(1) << ((uint64(1) << l.P.Width) - 1),
	}
	// An override can only narrow what the field can hold.
	if l.M.Max != 0 && l.M.Max < lim.MaxM {
		lim.MaxM = l.M.Max
	}
	if l.P.Max != 0 && l.P.Max < lim.MaxP {
		lim.MaxP = l.P.Max
	}
	return lim
}

// Extract reads the factors stored in reg.
func (l Layout) Extract(reg uint32) Factors {
	return Factors{
		N: l.N.get(reg) + 1,
		K: l.K.get(reg) + 1,
		M: l.M.get(reg) + 1,
		P: 1 << l.P.get(reg),
	}
}

// Decode returns the rate a clock with layout l produces from parent when its
// register holds reg.
func Decode(reg uint32, parent uint64, l Layout) uint64 {
	n := l.N.get(reg)
	k := l.K.get(reg)
	m := l.M.get(reg)
	p := l.P.get(reg)
	return (parent * (n + 1) * (k + 1) >> p) / (m + 1)
}

// Encode stores f into reg following l. Bits outside the four fields are
// preserved.
func Encode(reg uint32, f Factors, l Layout) (uint32, error) {
	if f.N < 1 || f.K < 1 || f.M < 1 || !isPow2(f.P) {
		return 0, fmt.Errorf("factors %v: %w", f, ErrInvalidParameter)
	}
	vals := []struct {
		name string
		fld  Field
		v    uint64
	}{
		{"n", l.N, f.N - 1},
		{"k", l.K, f.K - 1},
		{"m", l.M, f.M - 1},
		{"p", l.P, log2(f.P)},
	}
	for _, x := range vals {
		if x.v >= 1<<x.fld.Width {
			return 0, fmt.Errorf("%s=%d doesn't fit %d bits: %w", x.name, x.v, x.fld.Width, ErrInvalidParameter)
		}
		reg &^= x.fld.mask()
		reg |= uint32(x.v) << x.fld.Shift
	}
	return reg, nil
}

func isPow2(v uint64) bool {
	return v != 0 && v&(v-1) == 0
}

func log2(v uint64) uint64 {
	return uint64(63 - bits.LeadingZeros64(v|1))
}
