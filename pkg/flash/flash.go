// Package flash provides an in-memory flash medium that enforces the rules
// real NOR/NAND parts impose: fixed word size, erase units larger than a
// word, and no writes to words that have not been erased since their last
// write. It is the reference erase-before-write medium for tests and for the
// flash backend of mediumctl.
package flash

import (
	"errors"
	"fmt"

	"github.com/mesh-intelligence/mediums/pkg/types"
)

// State is the lifecycle position of one word.
//
//	Unknown -> Erased -> Written -> Unknown
//
// A write is legal only from Erased. Erase moves any word to Erased. A write
// interrupted by a fault leaves the affected word Unknown.
type State uint8

// Word states.
const (
	StateUnknown State = iota
	StateErased
	StateWritten
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateErased:
		return "erased"
	case StateWritten:
		return "written"
	default:
		return "unknown"
	}
}

// Config describes the simulated part.
type Config struct {
	Base       types.Address // Address of the first byte.
	Size       uint64        // Capacity in bytes; a multiple of EraseSize, at most MaxSize.
	WordSize   uint64        // Program unit in bytes; a power of two.
	EraseSize  uint64        // Erase unit in bytes; a multiple of WordSize.
	EraseValue byte          // Value erased bytes read back as, usually 0xFF.
	PreErased  bool          // Start with every word Erased instead of Unknown.
}

// MaxSize is the largest array New will allocate.
const MaxSize = 1 << 32

// ErrBaseMisaligned is returned by New when Base is not a multiple of
// EraseSize.
var ErrBaseMisaligned = errors.New("base address must be aligned to the erase size")

// Stats counts operations that reached the array.
type Stats struct {
	Reads   uint64   // Successful reads.
	Writes  uint64   // Successful writes.
	Erases  uint64   // Successful erase calls.
	Wear    []uint64 // Erase count per erase unit.
	Faulted uint64   // Operations that ended in an injected fault.
}

// Flash is a simulated flash array. It does no locking; callers own it
// exclusively for each operation.
type Flash struct {
	cfg    Config
	bounds types.Region
	data   []byte
	states []State // one per word
	stats  Stats

	readFault       error
	eraseFault      error
	writeFault      error
	writeFaultAfter int
}

var (
	_ types.ReadWriteEraser  = (*Flash)(nil)
	_ types.EraseBeforeWrite = (*Flash)(nil)
)

// New builds a flash array from cfg. Content starts at EraseValue; word
// states start Unknown unless cfg.PreErased is set.
func New(cfg Config) (*Flash, error) {
	g := types.Geometry{WordSize: cfg.WordSize, EraseSize: cfg.EraseSize, EraseValue: cfg.EraseValue}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	if cfg.EraseSize == 0 {
		return nil, fmt.Errorf("%w: flash needs an erase size", types.ErrEraseSizeInvalid)
	}
	if err := g.ValidateSize(cfg.Size); err != nil {
		return nil, err
	}
	if cfg.Size > MaxSize {
		return nil, fmt.Errorf("%w: size %d exceeds %d", types.ErrSizeInvalid, cfg.Size, uint64(MaxSize))
	}
	if uint64(cfg.Base)%cfg.EraseSize != 0 {
		return nil, fmt.Errorf("%w: base %s, erase size %d", ErrBaseMisaligned, cfg.Base, cfg.EraseSize)
	}
	bounds, err := types.NewRegion(cfg.Base, cfg.Size)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrSizeInvalid, err)
	}

	f := &Flash{
		cfg:    cfg,
		bounds: bounds,
		data:   make([]byte, cfg.Size),
		states: make([]State, cfg.Size/cfg.WordSize),
	}
	f.stats.Wear = make([]uint64, cfg.Size/cfg.EraseSize)
	fill(f.data, cfg.EraseValue)
	if cfg.PreErased {
		for i := range f.states {
			f.states[i] = StateErased
		}
	}
	return f, nil
}

// Bounds returns [Base, Base+Size).
func (f *Flash) Bounds() types.Region { return f.bounds }

// WordSize returns the program unit.
func (f *Flash) WordSize() uint64 { return f.cfg.WordSize }

// EraseSize returns the erase unit.
func (f *Flash) EraseSize() uint64 { return f.cfg.EraseSize }

// EraseValue returns the value erased bytes read as.
func (f *Flash) EraseValue() byte { return f.cfg.EraseValue }

// RequiresErase is always true.
func (f *Flash) RequiresErase() bool { return true }

// Read copies the bytes at addr into p. An injected read fault fails the
// whole read without touching p.
func (f *Flash) Read(addr types.Address, p []byte) error {
	r, err := types.CheckAccess(types.OpRead, f, addr, len(p))
	if err != nil || r.IsEmpty() {
		return err
	}
	if f.readFault != nil {
		f.stats.Faulted++
		return types.Fault(types.OpRead, r, f.readFault)
	}
	off := f.offset(addr)
	copy(p, f.data[off:off+r.Len()])
	f.stats.Reads++
	return nil
}

// Write programs data at addr. Every target word must be Erased; otherwise
// the write is rejected with NotErased and nothing changes.
func (f *Flash) Write(addr types.Address, data []byte) error {
	r, err := types.CheckAccess(types.OpWrite, f, addr, len(data))
	if err != nil || r.IsEmpty() {
		return err
	}

	ws := f.cfg.WordSize
	first := f.offset(addr) / ws
	count := r.Len() / ws
	for i := first; i < first+count; i++ {
		if f.states[i] != StateErased {
			bad := types.Span(f.bounds.Start+types.Address(i*ws), ws)
			return types.NotErased(types.OpWrite, bad)
		}
	}

	for w := uint64(0); w < count; w++ {
		idx := first + w
		if f.writeFault != nil && w == uint64(f.writeFaultAfter) {
			// The interrupted word holds whatever the part latched.
			f.states[idx] = StateUnknown
			f.stats.Faulted++
			return types.Fault(types.OpWrite, r, f.writeFault)
		}
		copy(f.data[idx*ws:(idx+1)*ws], data[w*ws:(w+1)*ws])
		f.states[idx] = StateWritten
	}
	f.stats.Writes++
	return nil
}

// Erase resets r to EraseValue and marks its words Erased.
func (f *Flash) Erase(r types.Region) error {
	if err := types.CheckErase(f, r); err != nil || r.IsEmpty() {
		return err
	}
	if f.eraseFault != nil {
		f.stats.Faulted++
		return types.Fault(types.OpErase, r, f.eraseFault)
	}
	start := f.offset(r.Start)
	fill(f.data[start:start+r.Len()], f.cfg.EraseValue)
	ws := f.cfg.WordSize
	for i := start / ws; i < (start+r.Len())/ws; i++ {
		f.states[i] = StateErased
	}
	es := f.cfg.EraseSize
	for u := start / es; u < (start+r.Len())/es; u++ {
		f.stats.Wear[u]++
	}
	f.stats.Erases++
	return nil
}

// State returns the state of the word containing addr. Addresses outside
// the array report StateUnknown.
func (f *Flash) State(addr types.Address) State {
	if !f.bounds.Contains(addr) {
		return StateUnknown
	}
	return f.states[f.offset(addr)/f.cfg.WordSize]
}

// Stats returns a copy of the operation counters.
func (f *Flash) Stats() Stats {
	s := f.stats
	s.Wear = append([]uint64(nil), f.stats.Wear...)
	return s
}

// InjectReadFault makes every following read fail with cause.
func (f *Flash) InjectReadFault(cause error) { f.readFault = cause }

// InjectEraseFault makes every following erase fail with cause before any
// byte changes.
func (f *Flash) InjectEraseFault(cause error) { f.eraseFault = cause }

// InjectWriteFault makes every following write fail with cause after
// afterWords words have been programmed.
func (f *Flash) InjectWriteFault(afterWords int, cause error) {
	f.writeFault = cause
	f.writeFaultAfter = afterWords
}

// ClearFaults removes all injected faults.
func (f *Flash) ClearFaults() {
	f.readFault = nil
	f.eraseFault = nil
	f.writeFault = nil
	f.writeFaultAfter = 0
}

func (f *Flash) offset(addr types.Address) uint64 {
	return uint64(addr - f.bounds.Start)
}

func fill(b []byte, v byte) {
	for i := range b {
		b[i] = v
	}
}
