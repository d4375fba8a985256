package ccu

import "fmt"

// VideoParent is the oscillator feeding the video PLL, in kHz.
const VideoParent = 24000

// VideoFactors drive the LCD controller clock: the video PLL runs at
// 24MHz * N / M and the TCON divides that by X.
type VideoFactors struct {
	N int
	M int
	X int
}

// PLLRate returns the video PLL rate in Hz.
func (v VideoFactors) PLLRate() uint64 {
	if v.M == 0 {
		return 0
	}
	return uint64(VideoParent) * 1000 * uint64(v.N) / uint64(v.M)
}

// DotClock returns the pixel clock in kHz, truncated the same way the search
// truncates.
func (v VideoFactors) DotClock() int {
	if v.M == 0 || v.X == 0 {
		return 0
	}
	return VideoParent * v.N / v.M / v.X
}

// tconDivider picks the TCON divider. Only these four HDMI PHY dividers are
// known to work.
func tconDivider(dotclock int) int {
	switch {
	case dotclock <= 27000:
		return 11
	case dotclock <= 74250:
		return 4
	case dotclock <= 148500:
		return 2
	}
	return 1
}

// VideoPLL finds the lowest M giving the closest dot clock not above the
// requested one, as monitors tend not to sync to higher frequencies.
func VideoPLL(dotclockKHz int) (VideoFactors, error) {
	if dotclockKHz <= 0 {
		return VideoFactors{}, fmt.Errorf("dot clock %dkHz: %w", dotclockKHz, ErrInvalidParameter)
	}
	x := tconDivider(dotclockKHz)
	best := VideoFactors{X: x}
	bestDiff := 0x0FFFFFFF
	for m := 1; m <= 16; m++ {
		n := (m * x * dotclockKHz) / VideoParent
		if n < 1 || n > 128 {
			continue
		}
		value := (VideoParent * n) / m / x
		if diff := dotclockKHz - value; diff < bestDiff {
			bestDiff = diff
			best.M = m
			best.N = n
		}
	}
	if best.M == 0 {
		return VideoFactors{}, fmt.Errorf("dot clock %dkHz: %w", dotclockKHz, ErrNoFactorFound)
	}
	return best, nil
}
