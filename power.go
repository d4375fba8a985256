package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/Jon-Bright/sunxiccu/sunxi"
)

var initRates = flag.String("init", "", "Clocks to power up at start, as name=hz pairs separated by commas, e.g. pll-ddr=408000000,ths=6000000")

type initRate struct {
	name string
	rate uint64
}

func parseInit(s string) ([]initRate, error) {
	var out []initRate
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	for _, p := range strings.Split(s, ",") {
		t := strings.SplitN(strings.TrimSpace(p), "=", 2)
		if len(t) != 2 {
			return nil, fmt.Errorf("'%s' isn't name=hz", p)
		}
		r, err := parseRate(t[1])
		if err != nil {
			return nil, err
		}
		out = append(out, initRate{t[0], r})
	}
	return out, nil
}

// applyInit enables each clock and then sets its rate, so that PLLs are
// waited on until they lock. A PLL that doesn't lock in time is only logged.
func applyInit(c *sunxi.CCU, s string) error {
	rates, err := parseInit(s)
	if err != nil {
		return err
	}
	for _, ir := range rates {
		clk, err := c.Clock(ir.name)
		if err != nil {
			return err
		}
		log.Printf("Power on %s", ir.name)
		clk.Enable()
		got, err := clk.SetRate(ir.rate)
		if errors.Is(err, sunxi.ErrLockTimeout) {
			log.Printf("Warning: %s running at %dHz but not locked", ir.name, got)
			continue
		}
		if err != nil {
			return fmt.Errorf("couldn't set %s to %dHz: %v", ir.name, ir.rate, err)
		}
		log.Printf("%s stable at %dHz", ir.name, got)
	}
	return nil
}
