package sunxi

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMatchCompatible(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"xunlong,orangepi-pc\x00allwinner,sun8i-h3\x00", "H3", true},
		{"friendlyarm,nanopi-neo2\x00allwinner,sun50i-h5\x00", "H5", true},
		{"sinovoip,bpi-m2-zero\x00allwinner,sun8i-h2-plus\x00", "H2+", true},
		{"pine64,pine64\x00allwinner,sun50i-a64", "A64", true},
		{"raspberrypi,3-model-b\x00brcm,bcm2837\x00", "", false},
		{"", "", false},
	}
	for _, test := range tests {
		s, err := matchCompatible([]byte(test.in))
		if (err == nil) != test.ok {
			t.Errorf("matchCompatible(%q), err: %v", test.in, err)
			continue
		}
		if s.Name != test.want {
			t.Errorf("matchCompatible(%q), got: %s, want: %s", test.in, s.Name, test.want)
		}
	}
}

func TestDetectSoCFrom(t *testing.T) {
	path := filepath.Join(t.TempDir(), "compatible")
	if err := os.WriteFile(path, []byte("xunlong,orangepi-one\x00allwinner,sun8i-h3\x00"), 0644); err != nil {
		t.Fatal(err)
	}
	s, err := detectSoCFrom(path)
	if err != nil {
		t.Fatalf("detectSoCFrom: %v", err)
	}
	if s.Name != "H3" {
		t.Errorf("detectSoCFrom, got: %s, want: H3", s.Name)
	}
	if _, err := detectSoCFrom(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Errorf("detectSoCFrom of missing file succeeded")
	}
}

func TestLookupSoC(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"allwinner,sun8i-h3", "H3", true},
		{"h3", "H3", true},
		{"H2+", "H2+", true},
		{"a64", "A64", true},
		{"allwinner,sun4i-a10", "", false},
		{"bcm2837", "", false},
	}
	for _, test := range tests {
		s, err := LookupSoC(test.in)
		if (err == nil) != test.ok {
			t.Errorf("LookupSoC(%q), err: %v", test.in, err)
			continue
		}
		if s.Name != test.want {
			t.Errorf("LookupSoC(%q), got: %s, want: %s", test.in, s.Name, test.want)
		}
		if test.ok && s.CCUBase != CCU_BASE_SUN8I {
			t.Errorf("LookupSoC(%q), CCU base %08X", test.in, s.CCUBase)
		}
	}
}

func TestMergeClocks(t *testing.T) {
	ddr := ClockDesc{Name: "pll-ddr", Type: TypeNKMP, Reg: 0x28, LockBit: -1, EnableBit: -1}
	gpu := ClockDesc{Name: "pll-gpu", Type: TypeNKMP, Reg: 0x38, LockBit: CCU_PLL_LOCK, EnableBit: CCU_PLL_ENABLE}
	got := MergeClocks(sun8iClocks, []ClockDesc{ddr, gpu})
	if len(got) != len(sun8iClocks)+1 {
		t.Fatalf("MergeClocks, got %d clocks, want %d", len(got), len(sun8iClocks)+1)
	}
	if got[1].Name != "pll-ddr" || got[1].Reg != 0x28 {
		t.Errorf("MergeClocks didn't replace pll-ddr: %+v", got[1])
	}
	if got[len(got)-1].Name != "pll-gpu" {
		t.Errorf("MergeClocks didn't append pll-gpu: %+v", got[len(got)-1])
	}
	if sun8iClocks[1].Reg != PLL_DDR_REG {
		t.Errorf("MergeClocks modified its input")
	}
}

func TestOpenSim(t *testing.T) {
	c, err := Open(Options{SoC: "h3", Parent: 24000000, Sim: true, Wait: LockWait{Retries: 3}})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()
	pll := mustClock(t, c, "pll-cpux")
	pll.Enable()
	if _, err := pll.SetRate(816000000); err != nil {
		t.Errorf("SetRate: %v", err)
	}
	if r := pll.Rate(); r != 816000000 {
		t.Errorf("Rate, got: %d, want: 816000000", r)
	}

	if _, err := Open(Options{SoC: "bcm2837", Sim: true, Parent: 24000000}); err == nil {
		t.Errorf("Open with unknown SoC succeeded")
	}
	if _, err := Open(Options{SoC: "h3", Sim: true}); err == nil {
		t.Errorf("Open without parent rate succeeded")
	}
}

func TestSimLockWhenEnabled(t *testing.T) {
	s := NewSim()
	s.LockWhenEnabled(0x10, 1<<31, 1<<28)
	s.Write32(0x10, 1<<31|0x55)
	if v := s.Read32(0x10); v != 1<<31|1<<28|0x55 {
		t.Errorf("enabled write, got: %08X", v)
	}
	s.Write32(0x10, 1<<28|0x55)
	if v := s.Read32(0x10); v != 0x55 {
		t.Errorf("disabled write, got: %08X", v)
	}
	if r := s.Reads(0x10); r != 2 {
		t.Errorf("Reads, got: %d, want: 2", r)
	}
	s.Set(0x14, 1<<31)
	if v := s.Read32(0x14); v != 1<<31 {
		t.Errorf("Set, got: %08X", v)
	}
}
