package ccu

import "fmt"

// DivEntry maps a register value to the divisor it selects.
type DivEntry struct {
	Val uint32
	Div uint64
}

// DivTable is a divider whose register values don't follow a formula.
type DivTable []DivEntry

// THSDivTable is the thermal sensor clock divider of the H3.
var THSDivTable = DivTable{
	{Val: 0, Div: 1},
	{Val: 1, Div: 2},
	{Val: 2, Div: 4},
	{Val: 3, Div: 6},
}

// Div returns the divisor selected by register value v, or 0 if v isn't in
// the table.
func (t DivTable) Div(v uint32) uint64 {
	for _, e := range t {
		if e.Val == v {
			return e.Div
		}
	}
	return 0
}

// Rate returns the output rate for register value v.
func (t DivTable) Rate(v uint32, parent uint64) uint64 {
	d := t.Div(v)
	if d == 0 {
		return 0
	}
	return parent / d
}

// Round returns the entry giving the highest rate that doesn't exceed target.
// If every entry overshoots, the largest divisor is used.
func (t DivTable) Round(parent, target uint64) (DivEntry, error) {
	if target == 0 || parent == 0 {
		return DivEntry{}, fmt.Errorf("rate %d from %d: %w", target, parent, ErrInvalidParameter)
	}
	if len(t) == 0 {
		return DivEntry{}, fmt.Errorf("empty divider table: %w", ErrNoFactorFound)
	}
	var best, largest DivEntry
	found := false
	for _, e := range t {
		if e.Div == 0 {
			continue
		}
		if e.Div > largest.Div {
			largest = e
		}
		r := parent / e.Div
		if r > target {
			continue
		}
		if !found || r > parent/best.Div || (r == parent/best.Div && e.Div < best.Div) {
			best = e
			found = true
		}
	}
	if found {
		return best, nil
	}
	if largest.Div == 0 {
		return DivEntry{}, fmt.Errorf("no usable divisor: %w", ErrNoFactorFound)
	}
	return largest, nil
}
