package ccu

import (
	"errors"
	"testing"
)

var wideLimits = Limits{MaxN: 256, MaxK: 4, MaxM: 4, MaxP: 4}

func TestTableResolve(t *testing.T) {
	tests := []struct {
		target uint64
		want   Factors
		rate   uint64
	}{
		{1, Factors{10, 1, 1, 4}, 60000000},
		{60000000, Factors{10, 1, 1, 4}, 60000000},
		{65999999, Factors{10, 1, 1, 4}, 60000000},
		{66000000, Factors{11, 1, 1, 4}, 66000000},
		{1008000000, Factors{21, 2, 1, 1}, 1008000000},
		{1007999999, Factors{21, 2, 1, 1}, 1008000000},
		{2016000000, Factors{28, 3, 1, 1}, 2016000000},
		{5000000000, Factors{28, 3, 1, 1}, 2016000000},
	}
	for _, test := range tests {
		got, err := TableResolver{}.Resolve(osc24M, test.target, wideLimits)
		if err != nil {
			t.Errorf("Resolve(%d): %v", test.target, err)
			continue
		}
		if got != test.want {
			t.Errorf("Resolve(%d), got: %v, want: %v", test.target, got, test.want)
		}
		if r := got.Rate(osc24M); r != test.rate {
			t.Errorf("Resolve(%d) rate, got: %d, want: %d", test.target, r, test.rate)
		}
	}
}

func TestTableStoredFields(t *testing.T) {
	f, err := TableResolver{}.Resolve(osc24M, 60000000, wideLimits)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	reg, err := Encode(0, f, cpuxLayout)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	stored := []struct {
		name string
		fld  Field
		want uint64
	}{
		{"n", cpuxLayout.N, 9},
		{"k", cpuxLayout.K, 0},
		{"m", cpuxLayout.M, 0},
		{"p", cpuxLayout.P, 2},
	}
	for _, s := range stored {
		if got := s.fld.get(reg); got != s.want {
			t.Errorf("stored %s, got: %d, want: %d", s.name, got, s.want)
		}
	}
	if got := Decode(reg, osc24M, cpuxLayout); got != 60000000 {
		t.Errorf("Decode, got: %d, want: 60000000", got)
	}
}

func TestTableNeverBelowBucket(t *testing.T) {
	prev := uint64(0)
	for i := 0; i < TableLen(); i++ {
		r := nkmpFreqMap[i].factors().Rate(osc24M)
		if low := uint64(i) * TableStep; r < low {
			t.Errorf("bucket %d: rate %d below %d", i, r, low)
		}
		if r < prev {
			t.Errorf("bucket %d: rate %d below previous bucket's %d", i, r, prev)
		}
		prev = r
	}
}

func TestBucketMonotonic(t *testing.T) {
	prev := 0
	for target := uint64(1); target < 2100000000; target += 1000003 {
		b := Bucket(target)
		if b < prev {
			t.Fatalf("Bucket(%d) = %d, previous was %d", target, b, prev)
		}
		if b < 0 || b >= TableLen() {
			t.Fatalf("Bucket(%d) = %d out of range", target, b)
		}
		prev = b
	}
	if got, want := Bucket(^uint64(0)), TableLen()-1; got != want {
		t.Errorf("Bucket(max), got: %d, want: %d", got, want)
	}
}

func TestTableResolveRestricted(t *testing.T) {
	// n of the 1008MHz bucket is 21, so fall back to the closest lower bucket
	// with n <= 16.
	lim := Limits{MaxN: 16, MaxK: 4, MaxM: 4, MaxP: 4}
	f, err := TableResolver{}.Resolve(osc24M, 1008000000, lim)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if want := (Factors{13, 3, 1, 1}); f != want {
		t.Errorf("Resolve, got: %v, want: %v", f, want)
	}
	if !f.Within(lim) {
		t.Errorf("%v not within %+v", f, lim)
	}

	_, err = TableResolver{}.Resolve(osc24M, 1008000000, Limits{MaxN: 4, MaxK: 1, MaxM: 1, MaxP: 1})
	if !errors.Is(err, ErrNoFactorFound) {
		t.Errorf("Resolve with tiny limits, got: %v, want: %v", err, ErrNoFactorFound)
	}
}

func TestResolveInvalid(t *testing.T) {
	tests := []struct {
		name           string
		parent, target uint64
		lim            Limits
	}{
		{"zero target", osc24M, 0, wideLimits},
		{"zero parent", 0, 60000000, wideLimits},
		{"zero max n", osc24M, 60000000, Limits{0, 4, 4, 4}},
		{"zero max p", osc24M, 60000000, Limits{32, 4, 4, 0}},
	}
	for name, r := range Resolvers {
		for _, test := range tests {
			_, err := r.Resolve(test.parent, test.target, test.lim)
			if !errors.Is(err, ErrInvalidParameter) {
				t.Errorf("%s %s, got: %v, want: %v", name, test.name, err, ErrInvalidParameter)
			}
		}
	}
}

func TestSearchResolve(t *testing.T) {
	lim := cpuxLayout.Limits()
	tests := []struct {
		target uint64
		want   Factors
		rate   uint64
	}{
		{60000000, Factors{5, 1, 1, 2}, 60000000},
		{1008000000, Factors{21, 2, 1, 1}, 1008000000},
		{1000000000, Factors{21, 2, 1, 1}, 1008000000},
		{24000000, Factors{1, 1, 1, 1}, 24000000},
		{1, Factors{1, 1, 4, 4}, 1500000},
		{10000000000, Factors{32, 4, 1, 1}, 3072000000},
	}
	for _, test := range tests {
		got, err := SearchResolver{}.Resolve(osc24M, test.target, lim)
		if err != nil {
			t.Errorf("Resolve(%d): %v", test.target, err)
			continue
		}
		if got != test.want {
			t.Errorf("Resolve(%d), got: %v, want: %v", test.target, got, test.want)
		}
		if r := got.Rate(osc24M); r != test.rate {
			t.Errorf("Resolve(%d) rate, got: %d, want: %d", test.target, r, test.rate)
		}
	}
}

// exhaustive returns the smallest error reachable inside lim.
func exhaustive(parent, target uint64, lim Limits) uint64 {
	best := ^uint64(0)
	for m := uint64(1); m <= lim.MaxM; m++ {
		for p := uint64(1); p <= lim.MaxP && p != 0; p <<= 1 {
			for k := uint64(1); k <= lim.MaxK; k++ {
				for n := uint64(1); n <= lim.MaxN; n++ {
					if e := absDiff(Factors{n, k, m, p}.Rate(parent), target); e < best {
						best = e
					}
				}
			}
		}
	}
	return best
}

func TestSearchMatchesExhaustive(t *testing.T) {
	lim := cpuxLayout.Limits()
	for target := uint64(200000000); target <= 2000000000; target += 1000000 {
		f, err := SearchResolver{}.Resolve(osc24M, target, lim)
		if err != nil {
			t.Fatalf("Resolve(%d): %v", target, err)
		}
		if !f.Within(lim) {
			t.Fatalf("Resolve(%d) = %v outside %+v", target, f, lim)
		}
		got := absDiff(f.Rate(osc24M), target)
		if want := exhaustive(osc24M, target, lim); got != want {
			t.Errorf("Resolve(%d) error, got: %d, want: %d", target, got, want)
		}
	}
}

func TestSearchWideP(t *testing.T) {
	l := Layout{
		N: Field{Shift: 8, Width: 5},
		K: Field{Shift: 4, Width: 2},
		M: Field{Shift: 0, Width: 2},
		P: Field{Shift: 16, Width: 6},
	}
	lim := l.Limits()
	for _, target := range []uint64{1, 7, 1500000, 60000000, 1000000000, 3000000000} {
		f, err := SearchResolver{}.Resolve(osc24M, target, lim)
		if err != nil {
			t.Fatalf("Resolve(%d): %v", target, err)
		}
		if !f.Within(lim) {
			t.Fatalf("Resolve(%d) = %v outside %+v", target, f, lim)
		}
		got := absDiff(f.Rate(osc24M), target)
		if want := exhaustive(osc24M, target, lim); got != want {
			t.Errorf("Resolve(%d) = %v error, got: %d, want: %d", target, f, got, want)
		}
	}
}

func TestSearchOverrideAboveWidth(t *testing.T) {
	// m.max 16 on a 2 bit field must not produce an m that Encode rejects.
	l := Layout{
		N: Field{Shift: 8, Width: 5},
		K: Field{Shift: 4, Width: 2},
		M: Field{Shift: 0, Width: 2, Max: 16},
	}
	r, f, err := RoundRate(SearchResolver{}, osc24M, 1500000, l)
	if err != nil {
		t.Fatalf("RoundRate: %v", err)
	}
	if f.M > 4 {
		t.Errorf("RoundRate gave m=%d, field holds 4", f.M)
	}
	if _, err := Encode(0, f, l); err != nil {
		t.Errorf("Encode(%v) of rounded %dHz: %v", f, r, err)
	}
}

func TestSearchExactRates(t *testing.T) {
	// Every rate the hardware can produce must be found exactly.
	lim := cpuxLayout.Limits()
	for n := uint64(1); n <= lim.MaxN; n += 3 {
		for k := uint64(1); k <= lim.MaxK; k++ {
			for m := uint64(1); m <= lim.MaxM; m++ {
				want := Factors{n, k, m, 1}.Rate(osc24M)
				f, err := SearchResolver{}.Resolve(osc24M, want, lim)
				if err != nil {
					t.Fatalf("Resolve(%d): %v", want, err)
				}
				if got := f.Rate(osc24M); got != want {
					t.Errorf("Resolve(%d) = %v, rate %d", want, f, got)
				}
			}
		}
	}
}

func TestRoundRate(t *testing.T) {
	tests := []struct {
		name   string
		r      Resolver
		target uint64
		want   uint64
	}{
		{"table", TableResolver{}, 1000000000, 1008000000},
		{"table low", TableResolver{}, 30000000, 60000000},
		{"search", SearchResolver{}, 30000000, 30000000},
	}
	for _, test := range tests {
		got, f, err := RoundRate(test.r, osc24M, test.target, cpuxLayout)
		if err != nil {
			t.Errorf("RoundRate %s: %v", test.name, err)
			continue
		}
		if got != test.want {
			t.Errorf("RoundRate %s, got: %d, want: %d", test.name, got, test.want)
		}
		if !f.Within(cpuxLayout.Limits()) {
			t.Errorf("RoundRate %s: %v outside limits", test.name, f)
		}
	}
}
