package sunxi

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/Jon-Bright/sunxiccu/ccu"
)

const (
	COMPATIBLE_FILE = "/proc/device-tree/compatible"

	CCU_BASE_SUN8I = 0x01c20000
	CCU_SIZE       = 0x400

	PLL_CPUX_REG  = 0x000
	PLL_VIDEO_REG = 0x010
	PLL_DDR_REG   = 0x020
	THS_CLK_REG   = 0x074
	TCON0_CLK_REG = 0x118

	CCU_PLL_ENABLE = 31
	CCU_PLL_LOCK   = 28
	CCU_CLK_GATE   = 31
)

// Clock types understood by NewCCU.
const (
	TypeNKMP  = "nkmp"
	TypeDiv   = "div"
	TypeVideo = "video"
)

// ClockDesc describes one clock of a CCU. Bit numbers of -1 mean the clock
// has no such bit.
type ClockDesc struct {
	Name      string
	Type      string
	Reg       uintptr
	Layout    ccu.Layout // nkmp
	EnableBit int
	LockBit   int
	Div       ccu.Field // div
	Table     ccu.DivTable
	TconReg   uintptr // video
}

// SoC is one supported Allwinner chip.
type SoC struct {
	Name    string
	CCUBase uintptr
	Clocks  []ClockDesc
}

// The sun8i family (H2+, H3) and its 64-bit siblings (H5, A64) share the
// layout of these clocks.
var sun8iClocks = []ClockDesc{
	{
		Name: "pll-cpux",
		Type: TypeNKMP,
		Reg:  PLL_CPUX_REG,
		Layout: ccu.Layout{
			N: ccu.Field{Shift: 8, Width: 5},
			K: ccu.Field{Shift: 4, Width: 2},
			M: ccu.Field{Shift: 0, Width: 2},
			P: ccu.Field{Shift: 16, Width: 2, Max: 4},
		},
		EnableBit: CCU_PLL_ENABLE,
		LockBit:   CCU_PLL_LOCK,
	},
	{
		Name: "pll-ddr",
		Type: TypeNKMP,
		Reg:  PLL_DDR_REG,
		Layout: ccu.Layout{
			N: ccu.Field{Shift: 8, Width: 5},
			K: ccu.Field{Shift: 4, Width: 2},
			M: ccu.Field{Shift: 0, Width: 2},
		},
		EnableBit: CCU_PLL_ENABLE,
		LockBit:   CCU_PLL_LOCK,
	},
	{
		Name:      "ths",
		Type:      TypeDiv,
		Reg:       THS_CLK_REG,
		Div:       ccu.Field{Shift: 0, Width: 2},
		Table:     ccu.THSDivTable,
		EnableBit: CCU_CLK_GATE,
		LockBit:   -1,
	},
	{
		Name:      "tcon0",
		Type:      TypeVideo,
		Reg:       PLL_VIDEO_REG,
		TconReg:   TCON0_CLK_REG,
		EnableBit: CCU_PLL_ENABLE,
		LockBit:   CCU_PLL_LOCK,
	},
}

// SoCs is keyed by the device tree compatible string of the chip.
var SoCs = map[string]SoC{
	"allwinner,sun8i-h2-plus": {Name: "H2+", CCUBase: CCU_BASE_SUN8I, Clocks: sun8iClocks},
	"allwinner,sun8i-h3":      {Name: "H3", CCUBase: CCU_BASE_SUN8I, Clocks: sun8iClocks},
	"allwinner,sun50i-h5":     {Name: "H5", CCUBase: CCU_BASE_SUN8I, Clocks: sun8iClocks},
	"allwinner,sun50i-a64":    {Name: "A64", CCUBase: CCU_BASE_SUN8I, Clocks: sun8iClocks},
}

// LookupSoC finds a SoC by compatible string or by its short name ("h3").
func LookupSoC(name string) (SoC, error) {
	if s, ok := SoCs[name]; ok {
		return s, nil
	}
	for _, s := range SoCs {
		if strings.EqualFold(s.Name, name) {
			return s, nil
		}
	}
	return SoC{}, fmt.Errorf("unknown SoC %q", name)
}

// DetectSoC identifies the chip we're running on from the device tree.
func DetectSoC() (SoC, error) {
	return detectSoCFrom(COMPATIBLE_FILE)
}

func detectSoCFrom(path string) (SoC, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return SoC{}, fmt.Errorf("couldn't read %s: %v", path, err)
	}
	return matchCompatible(b)
}

// matchCompatible picks the first known entry of a NUL separated compatible
// property. Boards list themselves before the SoC.
func matchCompatible(b []byte) (SoC, error) {
	for _, c := range bytes.Split(b, []byte{0}) {
		if s, ok := SoCs[string(c)]; ok {
			return s, nil
		}
	}
	return SoC{}, fmt.Errorf("couldn't identify SoC from %q", bytes.TrimRight(b, "\x00"))
}
