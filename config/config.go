// Package config reads the ccuctl YAML configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/Jon-Bright/sunxiccu/ccu"
	"github.com/Jon-Bright/sunxiccu/sunxi"
	"gopkg.in/yaml.v3"
)

type Config struct {
	SoC        string         `yaml:"soc"` // empty means read it from the device tree
	ParentRate uint64         `yaml:"parent_rate"`
	Resolver   string         `yaml:"resolver"` // table or search
	LockWait   LockWaitConfig `yaml:"lock_wait"`
	Server     ServerConfig   `yaml:"server"`
	Clocks     []ClockConfig  `yaml:"clocks"`
}

type LockWaitConfig struct {
	Retries  int    `yaml:"retries"`
	Interval string `yaml:"interval"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

// FieldConfig is one factor field of a register.
type FieldConfig struct {
	Shift uint8  `yaml:"shift"`
	Width uint8  `yaml:"width"`
	Max   uint64 `yaml:"max"`
}

type DivConfig struct {
	Val uint32 `yaml:"val"`
	Div uint64 `yaml:"div"`
}

// ClockConfig adds a clock to the SoC's set, or replaces the one with the
// same name. Missing enable or lock bits mean the clock has none.
type ClockConfig struct {
	Name      string      `yaml:"name"`
	Type      string      `yaml:"type"`
	Reg       uint32      `yaml:"reg"`
	N         FieldConfig `yaml:"n"`
	K         FieldConfig `yaml:"k"`
	M         FieldConfig `yaml:"m"`
	P         FieldConfig `yaml:"p"`
	Div       FieldConfig `yaml:"div"`
	Table     []DivConfig `yaml:"table"`
	TconReg   uint32      `yaml:"tcon_reg"`
	EnableBit *int        `yaml:"enable_bit"`
	LockBit   *int        `yaml:"lock_bit"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		ParentRate: 24000000,
		Resolver:   "table",
		LockWait: LockWaitConfig{
			Retries:  sunxi.DefaultLockWait.Retries,
			Interval: sunxi.DefaultLockWait.Interval.String(),
		},
		Server: ServerConfig{Port: 24602},
	}
}

// Load reads the YAML at path, fills in defaults and checks the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyDefaults(&c)
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func applyDefaults(c *Config) {
	d := Default()
	if c.ParentRate == 0 {
		c.ParentRate = d.ParentRate
	}
	if c.Resolver == "" {
		c.Resolver = d.Resolver
	}
	if c.LockWait.Retries == 0 {
		c.LockWait.Retries = d.LockWait.Retries
	}
	if c.LockWait.Interval == "" {
		c.LockWait.Interval = d.LockWait.Interval
	}
	if c.Server.Port == 0 {
		c.Server.Port = d.Server.Port
	}
}

func (c *Config) validate() error {
	if _, err := c.resolver(); err != nil {
		return err
	}
	if _, err := c.lockWait(); err != nil {
		return err
	}
	_, err := c.clocks()
	return err
}

func (c *Config) resolver() (ccu.Resolver, error) {
	r, ok := ccu.Resolvers[c.Resolver]
	if !ok {
		return nil, fmt.Errorf("unknown resolver %q", c.Resolver)
	}
	return r, nil
}

func (c *Config) lockWait() (sunxi.LockWait, error) {
	d, err := time.ParseDuration(c.LockWait.Interval)
	if err != nil {
		return sunxi.LockWait{}, fmt.Errorf("lock_wait interval: %w", err)
	}
	if c.LockWait.Retries < 0 || d < 0 {
		return sunxi.LockWait{}, fmt.Errorf("negative lock_wait %d x %v", c.LockWait.Retries, d)
	}
	return sunxi.LockWait{Retries: c.LockWait.Retries, Interval: d}, nil
}

func field(f FieldConfig) ccu.Field {
	return ccu.Field{Shift: f.Shift, Width: f.Width, Max: f.Max}
}

func bitOrNone(b *int) int {
	if b == nil {
		return -1
	}
	return *b
}

func (c *Config) clocks() ([]sunxi.ClockDesc, error) {
	var descs []sunxi.ClockDesc
	for i, cc := range c.Clocks {
		if cc.Name == "" {
			return nil, fmt.Errorf("clock %d has no name", i)
		}
		d := sunxi.ClockDesc{
			Name:      cc.Name,
			Type:      cc.Type,
			Reg:       uintptr(cc.Reg),
			EnableBit: bitOrNone(cc.EnableBit),
			LockBit:   bitOrNone(cc.LockBit),
		}
		if d.EnableBit > 31 || d.LockBit > 31 {
			return nil, fmt.Errorf("clock %s: bit number above 31", cc.Name)
		}
		if cc.Reg%4 != 0 || cc.Reg >= sunxi.CCU_SIZE {
			return nil, fmt.Errorf("clock %s: bad register offset %03X", cc.Name, cc.Reg)
		}
		switch cc.Type {
		case sunxi.TypeNKMP:
			d.Layout = ccu.Layout{N: field(cc.N), K: field(cc.K), M: field(cc.M), P: field(cc.P)}
			for _, f := range []FieldConfig{cc.N, cc.K, cc.M, cc.P} {
				if int(f.Shift)+int(f.Width) > 32 {
					return nil, fmt.Errorf("clock %s: field %d+%d doesn't fit a register", cc.Name, f.Shift, f.Width)
				}
			}
			if cc.P.Width > 6 {
				return nil, fmt.Errorf("clock %s: p field of %d bits, at most 6", cc.Name, cc.P.Width)
			}
			if maxM := uint64(1) << cc.M.Width; cc.M.Max > maxM {
				return nil, fmt.Errorf("clock %s: m max %d doesn't fit %d bits", cc.Name, cc.M.Max, cc.M.Width)
			}
			if maxP := uint64(1) << ((uint64(1) << cc.P.Width) - 1); cc.P.Max > maxP {
				return nil, fmt.Errorf("clock %s: p max %d doesn't fit %d bits", cc.Name, cc.P.Max, cc.P.Width)
			}
		case sunxi.TypeDiv:
			if int(cc.Div.Shift)+int(cc.Div.Width) > 32 || cc.Div.Width == 0 {
				return nil, fmt.Errorf("clock %s: bad divider field %d+%d", cc.Name, cc.Div.Shift, cc.Div.Width)
			}
			if len(cc.Table) == 0 {
				return nil, fmt.Errorf("clock %s: divider without table", cc.Name)
			}
			d.Div = field(cc.Div)
			for _, e := range cc.Table {
				if e.Div == 0 {
					return nil, fmt.Errorf("clock %s: divider 0 for value %d", cc.Name, e.Val)
				}
				if uint64(e.Val) >= uint64(1)<<cc.Div.Width {
					return nil, fmt.Errorf("clock %s: value %d doesn't fit %d bits", cc.Name, e.Val, cc.Div.Width)
				}
				d.Table = append(d.Table, ccu.DivEntry{Val: e.Val, Div: e.Div})
			}
		case sunxi.TypeVideo:
			if cc.TconReg%4 != 0 || cc.TconReg >= sunxi.CCU_SIZE {
				return nil, fmt.Errorf("clock %s: bad TCON register offset %03X", cc.Name, cc.TconReg)
			}
			d.TconReg = uintptr(cc.TconReg)
		default:
			return nil, fmt.Errorf("clock %s: unknown type %q", cc.Name, cc.Type)
		}
		descs = append(descs, d)
	}
	return descs, nil
}

// Options turns the configuration into what sunxi.Open needs.
func (c *Config) Options(sim bool) (sunxi.Options, error) {
	r, err := c.resolver()
	if err != nil {
		return sunxi.Options{}, err
	}
	w, err := c.lockWait()
	if err != nil {
		return sunxi.Options{}, err
	}
	descs, err := c.clocks()
	if err != nil {
		return sunxi.Options{}, err
	}
	return sunxi.Options{
		SoC:      c.SoC,
		Clocks:   descs,
		Parent:   c.ParentRate,
		Resolver: r,
		Wait:     w,
		Sim:      sim,
	}, nil
}
