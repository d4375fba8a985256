// Package sunxi drives the clock control unit of Allwinner SoCs through
// /dev/mem, or through simulated registers when no hardware is present.
package sunxi

import (
	"fmt"
	"log"

	"github.com/Jon-Bright/sunxiccu/ccu"
)

// Options selects the SoC and how its clocks are resolved.
type Options struct {
	SoC      string      // compatible string or short name, detected when empty
	Clocks   []ClockDesc // added to the SoC's clocks, replacing same names
	Parent   uint64
	Resolver ccu.Resolver
	Wait     LockWait
	Sim      bool // use in-memory registers instead of /dev/mem
}

// Open finds the SoC, maps its CCU and creates the clocks.
func Open(o Options) (*CCU, error) {
	var (
		soc SoC
		err error
	)
	if o.SoC != "" {
		soc, err = LookupSoC(o.SoC)
	} else {
		soc, err = DetectSoC()
	}
	if err != nil {
		return nil, fmt.Errorf("couldn't determine SoC: %v", err)
	}
	descs := MergeClocks(soc.Clocks, o.Clocks)
	log.Printf("Using %s, CCU at %08X, %d clocks", soc.Name, soc.CCUBase, len(descs))

	var regs Regs
	var mem *Mem
	if o.Sim {
		regs = NewSimFor(descs)
	} else {
		mem, err = MapMem(soc.CCUBase, CCU_SIZE)
		if err != nil {
			return nil, fmt.Errorf("couldn't map CCU at %08X: %v", soc.CCUBase, err)
		}
		regs = mem
	}
	c, err := NewCCU(regs, descs, o.Parent, o.Resolver, o.Wait)
	if err != nil {
		if mem != nil {
			mem.Close() // Ignore error
		}
		return nil, err
	}
	c.mem = mem
	return c, nil
}

// Close releases the register mapping, if any.
func (c *CCU) Close() error {
	if c.mem == nil {
		return nil
	}
	return c.mem.Close()
}

// NewSimFor returns simulated registers in which every PLL of descs locks as
// soon as it is enabled.
func NewSimFor(descs []ClockDesc) *Sim {
	s := NewSim()
	for _, d := range descs {
		if d.LockBit < 0 || d.Type == TypeDiv {
			continue
		}
		s.LockWhenEnabled(d.Reg, bit(d.EnableBit), bit(d.LockBit))
	}
	return s
}

// MergeClocks returns base with extra appended; an entry of extra replaces
// the entry of base with the same name.
func MergeClocks(base, extra []ClockDesc) []ClockDesc {
	out := make([]ClockDesc, 0, len(base)+len(extra))
	idx := map[string]int{}
	for _, d := range base {
		idx[d.Name] = len(out)
		out = append(out, d)
	}
	for _, d := range extra {
		if i, ok := idx[d.Name]; ok {
			out[i] = d
			continue
		}
		idx[d.Name] = len(out)
		out = append(out, d)
	}
	return out
}
