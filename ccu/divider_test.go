package ccu

import (
	"errors"
	"testing"
)

func TestDivTableRound(t *testing.T) {
	tests := []struct {
		target uint64
		want   DivEntry
	}{
		{24000000, DivEntry{0, 1}},
		{30000000, DivEntry{0, 1}},
		{13000000, DivEntry{1, 2}},
		{6000000, DivEntry{2, 4}},
		{5000000, DivEntry{3, 6}},
		{1000000, DivEntry{3, 6}},
	}
	for _, test := range tests {
		got, err := THSDivTable.Round(osc24M, test.target)
		if err != nil {
			t.Errorf("Round(%d): %v", test.target, err)
			continue
		}
		if got != test.want {
			t.Errorf("Round(%d), got: %+v, want: %+v", test.target, got, test.want)
		}
	}
}

func TestDivTableRoundInvalid(t *testing.T) {
	if _, err := THSDivTable.Round(osc24M, 0); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("Round(0), got: %v, want: %v", err, ErrInvalidParameter)
	}
	if _, err := (DivTable{}).Round(osc24M, 1000); !errors.Is(err, ErrNoFactorFound) {
		t.Errorf("empty Round, got: %v, want: %v", err, ErrNoFactorFound)
	}
}

func TestDivTableRate(t *testing.T) {
	tests := []struct {
		v    uint32
		want uint64
	}{
		{0, 24000000},
		{1, 12000000},
		{2, 6000000},
		{3, 4000000},
		{7, 0},
	}
	for _, test := range tests {
		if got := THSDivTable.Rate(test.v, osc24M); got != test.want {
			t.Errorf("Rate(%d), got: %d, want: %d", test.v, got, test.want)
		}
	}
}
