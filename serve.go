package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/Jon-Bright/sunxiccu/config"
	"github.com/Jon-Bright/sunxiccu/sunxi"
	"github.com/kr/pretty"
)

var configFile = flag.String("config", "", "A YAML file with SoC, resolver, lock wait, port and extra clocks")
var port = flag.Int("port", 0, "The port that the server should listen to, overrides the config file")
var sim = flag.Bool("sim", false, "Use simulated registers instead of /dev/mem")
var socName = flag.String("soc", "", "The SoC, as compatible string or short name; read from the device tree if empty")
var dump = flag.Bool("dump", false, "Print the state of all clocks and exit")

type Server struct {
	ccu *sunxi.CCU
	l   net.Listener
}

func NewServer(port int, c *sunxi.CCU) (*Server, error) {
	l, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, err
	}
	log.Printf("Listening on port %d", port)
	return &Server{c, l}, nil
}

func parseRate(s string) (uint64, error) {
	r, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad rate '%s': %v", s, err)
	}
	return r, nil
}

func parseReg(s string) (uint32, error) {
	s = strings.TrimPrefix(strings.ToLower(s), "0x")
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("bad register value '%s': %v", s, err)
	}
	return uint32(v), nil
}

// clockArgs splits parms into a clock and want further arguments.
func (s *Server) clockArgs(parms string, want int) (sunxi.Clock, []string, error) {
	t := strings.Fields(parms)
	if len(t) != want+1 {
		return nil, nil, fmt.Errorf("wanted a clock and %d arguments, got '%s'", want, parms)
	}
	clk, err := s.ccu.Clock(t[0])
	if err != nil {
		return nil, nil, err
	}
	return clk, t[1:], nil
}

func (s *Server) videoClock() (*sunxi.VideoClock, error) {
	for _, n := range s.ccu.Names() {
		clk, _ := s.ccu.Clock(n)
		if v, ok := clk.(*sunxi.VideoClock); ok {
			return v, nil
		}
	}
	return nil, errors.New("no video clock on this SoC")
}

func boolReply(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// runCommand executes one command and returns the reply line.
func (s *Server) runCommand(cmd, parms string) (string, error) {
	switch cmd {
	case "LIST":
		return strings.Join(s.ccu.Names(), " "), nil
	case "GET":
		clk, _, err := s.clockArgs(parms, 0)
		if err != nil {
			return "", err
		}
		return strconv.FormatUint(clk.Rate(), 10), nil
	case "ROUND":
		clk, a, err := s.clockArgs(parms, 1)
		if err != nil {
			return "", err
		}
		target, err := parseRate(a[0])
		if err != nil {
			return "", err
		}
		if p, ok := clk.(*sunxi.PLL); ok {
			r, f, err := p.Round(target)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("%d %v", r, f), nil
		}
		r, err := clk.RoundRate(target)
		if err != nil {
			return "", err
		}
		return strconv.FormatUint(r, 10), nil
	case "SET":
		clk, a, err := s.clockArgs(parms, 1)
		if err != nil {
			return "", err
		}
		target, err := parseRate(a[0])
		if err != nil {
			return "", err
		}
		r, err := clk.SetRate(target)
		if errors.Is(err, sunxi.ErrLockTimeout) {
			return fmt.Sprintf("%d WARN: %v", r, err), nil
		}
		if err != nil {
			return "", err
		}
		return strconv.FormatUint(r, 10), nil
	case "DECODE":
		clk, a, err := s.clockArgs(parms, 1)
		if err != nil {
			return "", err
		}
		v, err := parseReg(a[0])
		if err != nil {
			return "", err
		}
		return strconv.FormatUint(clk.Decode(v), 10), nil
	case "ENABLE", "DISABLE", "ENABLED":
		clk, _, err := s.clockArgs(parms, 0)
		if err != nil {
			return "", err
		}
		switch cmd {
		case "ENABLE":
			clk.Enable()
		case "DISABLE":
			clk.Disable()
		default:
			return boolReply(clk.IsEnabled()), nil
		}
		return "OK", nil
	case "DOTCLOCK":
		v, err := s.videoClock()
		if err != nil {
			return "", err
		}
		kHz, err := strconv.Atoi(strings.TrimSpace(parms))
		if err != nil {
			return "", fmt.Errorf("bad dot clock '%s': %v", parms, err)
		}
		got, err := v.SetDotClock(kHz)
		if errors.Is(err, sunxi.ErrLockTimeout) {
			return fmt.Sprintf("%d WARN: %v", got, err), nil
		}
		if err != nil {
			return "", err
		}
		return strconv.Itoa(got), nil
	}
	return "", fmt.Errorf("unknown command: %s", cmd)
}

func (s *Server) handleConnection(c net.Conn) {
	log.Printf("Handling connection from %v", c.RemoteAddr())
	defer c.Close()
	s.serve(c, c)
	log.Printf("Done with connection %v", c.RemoteAddr())
}

// serve reads commands from r until EOF or QUIT, writing one reply per
// command to w.
func (s *Server) serve(r io.Reader, w io.Writer) {
	br := bufio.NewReader(r)
	bw := bufio.NewWriter(w)
	for {
		l, err := br.ReadString('\n')
		if err != nil && (err != io.EOF || l == "") {
			if err != io.EOF {
				log.Printf("Error reading command: %v", err)
			}
			return
		}
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		log.Printf("Got line '%s'", l)
		t := strings.SplitN(l, " ", 2)
		cmd := strings.ToUpper(t[0])
		parms := ""
		if len(t) > 1 {
			parms = t[1]
		}
		if cmd == "QUIT" {
			return
		}
		reply, err := s.runCommand(cmd, parms)
		if err != nil {
			log.Printf("Error running %s: %v", cmd, err)
			reply = "ERR: " + err.Error()
		}
		bw.WriteString(reply + "\n")
		if err := bw.Flush(); err != nil {
			log.Printf("error writing reply: %v", err)
			return
		}
	}
}

func (s *Server) handleConnections() {
	for {
		conn, err := s.l.Accept()
		if err != nil {
			log.Printf("Error accepting connection: %v", err)
			continue
		}
		go s.handleConnection(conn)
	}
}

func loadConfig() (*config.Config, error) {
	if *configFile == "" {
		return config.Default(), nil
	}
	return config.Load(*configFile)
}

func dumpClocks(w io.Writer, c *sunxi.CCU) {
	for _, st := range c.Dump() {
		pretty.Fprintf(w, "%# v\n", st)
	}
}

func main() {
	flag.Parse()
	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("Failed loading config: %v", err)
	}
	if *socName != "" {
		cfg.SoC = *socName
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	o, err := cfg.Options(*sim)
	if err != nil {
		log.Fatalf("Bad config: %v", err)
	}
	c, err := sunxi.Open(o)
	if err != nil {
		log.Fatalf("Failed opening CCU: %v", err)
	}
	defer c.Close()
	log.Printf("Resolving PLL factors with %T, parent %dHz", o.Resolver, o.Parent)

	if err := applyInit(c, *initRates); err != nil {
		log.Fatalf("Failed initial clock setup: %v", err)
	}
	if *dump {
		dumpClocks(os.Stdout, c)
		return
	}

	s, err := NewServer(cfg.Server.Port, c)
	if err != nil {
		log.Fatalf("Failed creating server: %v", err)
	}
	s.handleConnections()
}
