package sunxi

import (
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"unsafe"

	mmap "github.com/edsrzf/mmap-go"
	"golang.org/x/sys/unix"
)

const MEM_FILE = "/dev/mem"

// Regs is 32-bit register access relative to the start of a register block.
type Regs interface {
	Read32(off uintptr) uint32
	Write32(off uintptr, v uint32)
}

// Mem is a register block mapped from /dev/mem.
type Mem struct {
	buf  mmap.MMap
	offs uintptr
	size uintptr
}

// MapMem opens /dev/mem and maps size bytes at physAddr into our address
// space. Since the mapping has to start at a page boundary, the physical
// address is rounded down and the difference kept as an offset.
func MapMem(physAddr uintptr, size int) (*Mem, error) {
	f, err := os.OpenFile(MEM_FILE, os.O_RDWR|unix.O_SYNC, os.ModePerm)
	if err != nil {
		return nil, fmt.Errorf("couldn't open %s: %v", MEM_FILE, err)
	}
	defer f.Close() // Ignore error, the mapping stays valid

	pagemask := ^uintptr(unix.Getpagesize() - 1)
	mapAddr := physAddr & pagemask
	offs := physAddr - mapAddr
	log.Printf("MapRegion(f, %d, RDWR, 0, %08X), physAddr %08X\n", size+int(offs), mapAddr, physAddr)
	mm, err := mmap.MapRegion(f, size+int(offs), mmap.RDWR, 0, int64(mapAddr))
	if err != nil {
		return nil, fmt.Errorf("couldn't map region (%08X, %v): %v", physAddr, size, err)
	}
	return &Mem{buf: mm, offs: offs, size: uintptr(size)}, nil
}

func (m *Mem) word(off uintptr) *uint32 {
	if off+4 > m.size || off%4 != 0 {
		panic(fmt.Sprintf("register offset %03X outside mapping of %d bytes", off, m.size))
	}
	return (*uint32)(unsafe.Pointer(&m.buf[m.offs+off]))
}

func (m *Mem) Read32(off uintptr) uint32 {
	return atomic.LoadUint32(m.word(off))
}

func (m *Mem) Write32(off uintptr, v uint32) {
	atomic.StoreUint32(m.word(off), v)
}

// Close unmaps the register block.
func (m *Mem) Close() error {
	if m.buf == nil {
		return nil
	}
	err := m.buf.Unmap()
	m.buf = nil
	return err
}

// Sim is an in-memory register block. Writes can be post-processed to model
// hardware, e.g. a PLL raising its lock bit.
type Sim struct {
	mu      sync.Mutex
	regs    map[uintptr]uint32
	onWrite map[uintptr]func(uint32) uint32
	reads   map[uintptr]int
}

func NewSim() *Sim {
	return &Sim{
		regs:    map[uintptr]uint32{},
		onWrite: map[uintptr]func(uint32) uint32{},
		reads:   map[uintptr]int{},
	}
}

func (s *Sim) Read32(off uintptr) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads[off]++
	return s.regs[off]
}

func (s *Sim) Write32(off uintptr, v uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f := s.onWrite[off]; f != nil {
		v = f(v)
	}
	s.regs[off] = v
}

// Set stores v without running write hooks.
func (s *Sim) Set(off uintptr, v uint32) {
	s.mu.Lock()
	s.regs[off] = v
	s.mu.Unlock()
}

// OnWrite installs f to transform every value written at off.
func (s *Sim) OnWrite(off uintptr, f func(uint32) uint32) {
	s.mu.Lock()
	s.onWrite[off] = f
	s.mu.Unlock()
}

// LockWhenEnabled makes the register at off report lock as soon as it is
// written with enable set.
func (s *Sim) LockWhenEnabled(off uintptr, enable, lock uint32) {
	s.OnWrite(off, func(v uint32) uint32 {
		if v&enable != 0 {
			return v | lock
		}
		return v &^ lock
	})
}

// Reads returns how many times off has been read.
func (s *Sim) Reads(off uintptr) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads[off]
}
