package sunxi

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/Jon-Bright/sunxiccu/ccu"
)

// ErrLockTimeout means a PLL didn't report lock in time. The new factors have
// been written anyway, so callers may log it and carry on.
var ErrLockTimeout = errors.New("PLL didn't lock")

// LockWait bounds the wait for a PLL lock bit after a rate change.
type LockWait struct {
	Retries  int
	Interval time.Duration
}

// DefaultLockWait polls for about 10ms.
var DefaultLockWait = LockWait{Retries: 1000, Interval: 10 * time.Microsecond}

// Clock is what every clock of a CCU can do. Rates are in Hz.
type Clock interface {
	Name() string
	Rate() uint64
	RoundRate(target uint64) (uint64, error)
	SetRate(target uint64) (uint64, error)
	Decode(reg uint32) uint64
	Enable()
	Disable()
	IsEnabled() bool
	Reg() uint32
}

// CCU is the clock control unit of one SoC. Register read-modify-writes of
// all its clocks are serialized on one mutex.
type CCU struct {
	regs     Regs
	mu       sync.Mutex
	wait     LockWait
	resolver ccu.Resolver
	parent   uint64
	clocks   map[string]Clock
	mem      *Mem
}

// NewCCU creates the clocks in descs on top of regs. parent is the rate of
// the oscillator feeding the PLLs and dividers.
func NewCCU(regs Regs, descs []ClockDesc, parent uint64, r ccu.Resolver, w LockWait) (*CCU, error) {
	if parent == 0 {
		return nil, fmt.Errorf("parent rate 0: %w", ccu.ErrInvalidParameter)
	}
	if r == nil {
		r = ccu.TableResolver{}
	}
	if w.Retries <= 0 {
		w = DefaultLockWait
	}
	c := &CCU{
		regs:     regs,
		wait:     w,
		resolver: r,
		parent:   parent,
		clocks:   map[string]Clock{},
	}
	for _, d := range descs {
		if _, ok := c.clocks[d.Name]; ok {
			return nil, fmt.Errorf("duplicate clock %q", d.Name)
		}
		var clk Clock
		switch d.Type {
		case TypeNKMP:
			clk = &PLL{desc: d, ccu: c}
		case TypeDiv:
			if len(d.Table) == 0 {
				return nil, fmt.Errorf("clock %q has no divider table", d.Name)
			}
			for _, e := range d.Table {
				if uint64(e.Val) >= uint64(1)<<d.Div.Width {
					return nil, fmt.Errorf("clock %q: divider value %d doesn't fit %d bits", d.Name, e.Val, d.Div.Width)
				}
			}
			clk = &Divider{desc: d, ccu: c}
		case TypeVideo:
			clk = &VideoClock{desc: d, ccu: c}
		default:
			return nil, fmt.Errorf("clock %q has unknown type %q", d.Name, d.Type)
		}
		c.clocks[d.Name] = clk
	}
	return c, nil
}

// Clock returns the named clock.
func (c *CCU) Clock(name string) (Clock, error) {
	clk, ok := c.clocks[name]
	if !ok {
		return nil, fmt.Errorf("no clock named %q", name)
	}
	return clk, nil
}

// Names returns the clock names in order.
func (c *CCU) Names() []string {
	n := make([]string, 0, len(c.clocks))
	for k := range c.clocks {
		n = append(n, k)
	}
	sort.Strings(n)
	return n
}

func bit(b int) uint32 {
	if b < 0 {
		return 0
	}
	return 1 << uint(b)
}

func (c *CCU) read(reg uintptr) uint32 {
	return c.regs.Read32(reg)
}

// update applies f to the register at reg under the CCU lock.
func (c *CCU) update(reg uintptr, f func(v uint32) (uint32, error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, err := f(c.regs.Read32(reg))
	if err != nil {
		return err
	}
	c.regs.Write32(reg, v)
	return nil
}

// modify is update for changes that can't fail.
func (c *CCU) modify(reg uintptr, f func(v uint32) uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.regs.Write32(reg, f(c.regs.Read32(reg)))
}

func (c *CCU) setBits(reg uintptr, mask uint32, on bool) {
	c.modify(reg, func(v uint32) uint32 {
		if on {
			return v | mask
		}
		return v &^ mask
	})
}

// waitForLock polls the lock bit a bounded number of times.
func (c *CCU) waitForLock(name string, reg uintptr, lock uint32) error {
	if lock == 0 {
		return nil
	}
	for i := 0; i < c.wait.Retries; i++ {
		if c.regs.Read32(reg)&lock != 0 {
			return nil
		}
		time.Sleep(c.wait.Interval)
	}
	log.Printf("Warning: %s didn't lock after %d polls", name, c.wait.Retries)
	return fmt.Errorf("%s: %w", name, ErrLockTimeout)
}

// PLL is an NKMP clock.
type PLL struct {
	desc ClockDesc
	ccu  *CCU
}

func (p *PLL) Name() string { return p.desc.Name }

func (p *PLL) Reg() uint32 { return p.ccu.read(p.desc.Reg) }

func (p *PLL) Rate() uint64 {
	return ccu.Decode(p.Reg(), p.ccu.parent, p.desc.Layout)
}

func (p *PLL) Decode(reg uint32) uint64 {
	return ccu.Decode(reg, p.ccu.parent, p.desc.Layout)
}

// Factors returns the factors currently programmed.
func (p *PLL) Factors() ccu.Factors {
	return p.desc.Layout.Extract(p.Reg())
}

func (p *PLL) RoundRate(target uint64) (uint64, error) {
	r, _, err := p.Round(target)
	return r, err
}

// Round is RoundRate that also returns the factors SetRate would program.
func (p *PLL) Round(target uint64) (uint64, ccu.Factors, error) {
	return ccu.RoundRate(p.ccu.resolver, p.ccu.parent, target, p.desc.Layout)
}

// SetRate programs the factors closest to target and waits for the PLL to
// lock if it is running. On ErrLockTimeout the returned rate is still the
// programmed one.
func (p *PLL) SetRate(target uint64) (uint64, error) {
	f, err := p.ccu.resolver.Resolve(p.ccu.parent, target, p.desc.Layout.Limits())
	if err != nil {
		return 0, fmt.Errorf("couldn't resolve %s to %dHz: %w", p.desc.Name, target, err)
	}
	enabled := false
	err = p.ccu.update(p.desc.Reg, func(v uint32) (uint32, error) {
		enabled = v&bit(p.desc.EnableBit) != 0 || p.desc.EnableBit < 0
		return ccu.Encode(v, f, p.desc.Layout)
	})
	if err != nil {
		return 0, fmt.Errorf("couldn't encode %v for %s: %w", f, p.desc.Name, err)
	}
	rate := f.Rate(p.ccu.parent)
	log.Printf("%s: %dHz requested, %v gives %dHz", p.desc.Name, target, f, rate)
	if !enabled {
		return rate, nil
	}
	return rate, p.ccu.waitForLock(p.desc.Name, p.desc.Reg, bit(p.desc.LockBit))
}

func (p *PLL) Enable() { p.ccu.setBits(p.desc.Reg, bit(p.desc.EnableBit), true) }

func (p *PLL) Disable() { p.ccu.setBits(p.desc.Reg, bit(p.desc.EnableBit), false) }

func (p *PLL) IsEnabled() bool {
	if p.desc.EnableBit < 0 {
		return true
	}
	return p.Reg()&bit(p.desc.EnableBit) != 0
}

// Divider is a gated clock with a table driven divider.
type Divider struct {
	desc ClockDesc
	ccu  *CCU
}

func (d *Divider) Name() string { return d.desc.Name }

func (d *Divider) Reg() uint32 { return d.ccu.read(d.desc.Reg) }

func (d *Divider) field(reg uint32) uint32 {
	return (reg >> d.desc.Div.Shift) & ((1 << d.desc.Div.Width) - 1)
}

func (d *Divider) Decode(reg uint32) uint64 {
	return d.desc.Table.Rate(d.field(reg), d.ccu.parent)
}

func (d *Divider) Rate() uint64 { return d.Decode(d.Reg()) }

func (d *Divider) RoundRate(target uint64) (uint64, error) {
	e, err := d.desc.Table.Round(d.ccu.parent, target)
	if err != nil {
		return 0, err
	}
	return d.ccu.parent / e.Div, nil
}

func (d *Divider) SetRate(target uint64) (uint64, error) {
	e, err := d.desc.Table.Round(d.ccu.parent, target)
	if err != nil {
		return 0, fmt.Errorf("couldn't round %s to %dHz: %w", d.desc.Name, target, err)
	}
	mask := uint32((uint64(1)<<d.desc.Div.Width)-1) << d.desc.Div.Shift
	d.ccu.modify(d.desc.Reg, func(v uint32) uint32 {
		return v&^mask | e.Val<<d.desc.Div.Shift&mask
	})
	return d.ccu.parent / e.Div, nil
}

func (d *Divider) Enable() { d.ccu.setBits(d.desc.Reg, bit(d.desc.EnableBit), true) }

func (d *Divider) Disable() { d.ccu.setBits(d.desc.Reg, bit(d.desc.EnableBit), false) }

func (d *Divider) IsEnabled() bool {
	if d.desc.EnableBit < 0 {
		return true
	}
	return d.Reg()&bit(d.desc.EnableBit) != 0
}

const (
	CCM_PLL3_INTEGER_MODE = 1 << 24
	CCM_TCON0_CTRL_GATE   = 1 << 31
	CCM_TCON0_CTRL_M_MASK = 0xf
)

// videoLayout is the N/M part of PLL_VIDEO. It runs off the 24MHz oscillator
// whatever the CCU parent is.
var videoLayout = ccu.Layout{
	N: ccu.Field{Shift: 8, Width: 7},
	M: ccu.Field{Shift: 0, Width: 4},
}

// VideoClock is the LCD controller dot clock: PLL_VIDEO divided by the TCON0
// clock divider. Rates are in Hz, SetDotClock takes kHz.
type VideoClock struct {
	desc ClockDesc
	ccu  *CCU
}

func (v *VideoClock) Name() string { return v.desc.Name }

// Reg returns the PLL_VIDEO register.
func (v *VideoClock) Reg() uint32 { return v.ccu.read(v.desc.Reg) }

// Decode returns the PLL_VIDEO rate for reg.
func (v *VideoClock) Decode(reg uint32) uint64 {
	return ccu.Decode(reg, ccu.VideoParent*1000, videoLayout)
}

func (v *VideoClock) tconDiv() uint64 {
	return uint64(v.ccu.read(v.desc.TconReg)&CCM_TCON0_CTRL_M_MASK) + 1
}

// Rate returns the dot clock in Hz.
func (v *VideoClock) Rate() uint64 {
	return v.Decode(v.Reg()) / v.tconDiv()
}

// DotClock returns the dot clock in kHz.
func (v *VideoClock) DotClock() int { return int(v.Rate() / 1000) }

func (v *VideoClock) RoundRate(target uint64) (uint64, error) {
	f, err := ccu.VideoPLL(int(target / 1000))
	if err != nil {
		return 0, err
	}
	return uint64(f.DotClock()) * 1000, nil
}

func (v *VideoClock) SetRate(target uint64) (uint64, error) {
	kHz, err := v.SetDotClock(int(target / 1000))
	return uint64(kHz) * 1000, err
}

// SetDotClock programs PLL_VIDEO and the TCON0 divider for a dot clock in
// kHz and returns the dot clock achieved.
func (v *VideoClock) SetDotClock(kHz int) (int, error) {
	f, err := ccu.VideoPLL(kHz)
	if err != nil {
		return 0, fmt.Errorf("couldn't find video PLL factors for %dkHz: %w", kHz, err)
	}
	nm := ccu.Factors{N: uint64(f.N), K: 1, M: uint64(f.M), P: 1}
	err = v.ccu.update(v.desc.Reg, func(r uint32) (uint32, error) {
		r, err := ccu.Encode(r, nm, videoLayout)
		return r | CCM_PLL3_INTEGER_MODE | bit(v.desc.EnableBit), err
	})
	if err != nil {
		return 0, fmt.Errorf("couldn't program %s: %w", v.desc.Name, err)
	}
	v.ccu.modify(v.desc.TconReg, func(uint32) uint32 {
		return CCM_TCON0_CTRL_GATE | uint32(f.X-1)&CCM_TCON0_CTRL_M_MASK
	})
	log.Printf("dotclock: %dkHz = %dkHz: (24MHz * %d) / %d / %d", kHz, f.DotClock(), f.N, f.M, f.X)
	return f.DotClock(), v.ccu.waitForLock(v.desc.Name, v.desc.Reg, bit(v.desc.LockBit))
}

func (v *VideoClock) Enable() { v.ccu.setBits(v.desc.TconReg, CCM_TCON0_CTRL_GATE, true) }

func (v *VideoClock) Disable() { v.ccu.setBits(v.desc.TconReg, CCM_TCON0_CTRL_GATE, false) }

func (v *VideoClock) IsEnabled() bool {
	return v.ccu.read(v.desc.TconReg)&CCM_TCON0_CTRL_GATE != 0
}

// ClockState is a snapshot of one clock.
type ClockState struct {
	Name    string
	Reg     uint32
	Rate    uint64
	Enabled bool
	Factors *ccu.Factors
}

// Dump returns the state of every clock, sorted by name.
func (c *CCU) Dump() []ClockState {
	var s []ClockState
	for _, n := range c.Names() {
		clk := c.clocks[n]
		st := ClockState{
			Name:    n,
			Reg:     clk.Reg(),
			Rate:    clk.Rate(),
			Enabled: clk.IsEnabled(),
		}
		if p, ok := clk.(*PLL); ok {
			f := p.desc.Layout.Extract(st.Reg)
			st.Factors = &f
		}
		s = append(s, st)
	}
	return s
}
