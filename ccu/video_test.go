package ccu

import (
	"errors"
	"testing"
)

func TestVideoPLL(t *testing.T) {
	tests := []struct {
		dotclock int
		want     VideoFactors
		got      int
	}{
		{27000, VideoFactors{99, 8, 11}, 27000},
		{25175, VideoFactors{23, 2, 11}, 25090},
		{65000, VideoFactors{65, 6, 4}, 65000},
		{74250, VideoFactors{99, 8, 4}, 74250},
		{108000, VideoFactors{9, 1, 2}, 108000},
		{148500, VideoFactors{99, 8, 2}, 148500},
		{297000, VideoFactors{99, 8, 1}, 297000},
	}
	for _, test := range tests {
		v, err := VideoPLL(test.dotclock)
		if err != nil {
			t.Errorf("VideoPLL(%d): %v", test.dotclock, err)
			continue
		}
		if v != test.want {
			t.Errorf("VideoPLL(%d), got: %+v, want: %+v", test.dotclock, v, test.want)
		}
		if d := v.DotClock(); d != test.got {
			t.Errorf("VideoPLL(%d) dot clock, got: %d, want: %d", test.dotclock, d, test.got)
		}
		if d := v.DotClock(); d > test.dotclock {
			t.Errorf("VideoPLL(%d) overshoots: %d", test.dotclock, d)
		}
	}
}

func TestVideoPLLRate(t *testing.T) {
	v := VideoFactors{N: 99, M: 8, X: 2}
	if got, want := v.PLLRate(), uint64(297000000); got != want {
		t.Errorf("PLLRate, got: %d, want: %d", got, want)
	}
}

func TestVideoPLLInvalid(t *testing.T) {
	if _, err := VideoPLL(0); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("VideoPLL(0), got: %v, want: %v", err, ErrInvalidParameter)
	}
	if _, err := VideoPLL(10); !errors.Is(err, ErrNoFactorFound) {
		t.Errorf("VideoPLL(10), got: %v, want: %v", err, ErrNoFactorFound)
	}
}
