package types

import (
	"errors"
	"fmt"
	"strings"
)

// Bounded is implemented by every medium: it declares the span of addresses
// the medium answers to.
type Bounded interface {
	// Bounds returns the medium's address space. Every valid access lies
	// inside it.
	Bounds() Region
}

// Medium is the part every capability shares: bounds and the word size.
type Medium interface {
	Bounded

	// WordSize returns the number of bytes moved per transfer unit.
	// Addresses and lengths must be multiples of it unless the medium also
	// implements Unaligned and reports true.
	WordSize() uint64
}

// Readable is a medium whose contents can be read.
type Readable interface {
	Medium

	// Read fills p with the bytes starting at addr. It either fills all of
	// p or returns an error and leaves p untouched.
	// Returns OutOfBounds, Misaligned or MediumFault errors.
	Read(addr Address, p []byte) error
}

// Writable is a medium whose contents can be written.
type Writable interface {
	Medium

	// Write stores data starting at addr.
	// Returns OutOfBounds or Misaligned before touching the medium, and
	// NotErased when the medium requires an erase the target has not had.
	// A MediumFault may be returned after part of data was stored; the
	// content of the target region is then unspecified.
	Write(addr Address, data []byte) error
}

// Erasable is a medium that can reset regions to a defined erase value.
type Erasable interface {
	Medium

	// Erase resets every byte in r to EraseValue. r must be aligned to
	// EraseSize. Returns OutOfBounds, Misaligned or MediumFault errors.
	Erase(r Region) error

	// EraseSize returns the erase granularity in bytes. It may exceed
	// the word size.
	EraseSize() uint64

	// EraseValue returns the byte value an erased region reads back as.
	EraseValue() byte
}

// Unaligned is implemented by media that accept transfers that do not start
// or end on a word boundary.
type Unaligned interface {
	AllowsUnaligned() bool
}

// EraseBeforeWrite is implemented by media that reject writes to words that
// have not been erased since they were last written.
type EraseBeforeWrite interface {
	RequiresErase() bool
}

// ReadWriter groups Readable and Writable.
type ReadWriter interface {
	Readable
	Writable
}

// ReadEraser groups Readable and Erasable, enough for blank checks and
// sector reads.
type ReadEraser interface {
	Readable
	Erasable
}

// ReadWriteEraser groups all three transfer capabilities.
type ReadWriteEraser interface {
	Readable
	Writable
	Erasable
}

// Capability is a set of capability flags.
type Capability uint8

// Capability flags.
const (
	CapRead Capability = 1 << iota
	CapWrite
	CapErase
	CapUnaligned
	CapEraseBeforeWrite
)

var capabilityNames = []struct {
	cap  Capability
	name string
}{
	{CapRead, "read"},
	{CapWrite, "write"},
	{CapErase, "erase"},
	{CapUnaligned, "unaligned"},
	{CapEraseBeforeWrite, "erase-before-write"},
}

// Has reports whether every flag in want is set in c.
func (c Capability) Has(want Capability) bool {
	return c&want == want
}

// String lists the set flags joined by "|", or "none".
func (c Capability) String() string {
	var names []string
	for _, n := range capabilityNames {
		if c&n.cap != 0 {
			names = append(names, n.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// ErrMissingCapability is returned by Require and the As helpers when a
// value lacks a capability the caller needs.
var ErrMissingCapability = errors.New("missing capability")

// CapabilitiesOf returns the capability set v implements. Values that do
// not implement Medium have no capabilities.
func CapabilitiesOf(v any) Capability {
	m, ok := v.(Medium)
	if !ok {
		return 0
	}
	var c Capability
	if _, ok := m.(Readable); ok {
		c |= CapRead
	}
	if _, ok := m.(Writable); ok {
		c |= CapWrite
	}
	if _, ok := m.(Erasable); ok {
		c |= CapErase
	}
	if allowsUnaligned(m) {
		c |= CapUnaligned
	}
	if requiresErase(m) {
		c |= CapEraseBeforeWrite
	}
	return c
}

// Require returns nil if v implements every capability in want, and an
// error wrapping ErrMissingCapability naming the missing ones otherwise.
func Require(v any, want Capability) error {
	have := CapabilitiesOf(v)
	if have.Has(want) {
		return nil
	}
	return fmt.Errorf("%w: %T lacks %s", ErrMissingCapability, v, want&^have)
}

// AsReadable returns v as a Readable or fails fast.
func AsReadable(v any) (Readable, error) {
	if err := Require(v, CapRead); err != nil {
		return nil, err
	}
	return v.(Readable), nil
}

// AsWritable returns v as a Writable or fails fast.
func AsWritable(v any) (Writable, error) {
	if err := Require(v, CapWrite); err != nil {
		return nil, err
	}
	return v.(Writable), nil
}

// AsErasable returns v as an Erasable or fails fast.
func AsErasable(v any) (Erasable, error) {
	if err := Require(v, CapErase); err != nil {
		return nil, err
	}
	return v.(Erasable), nil
}

// AsReadWriter returns v as a ReadWriter or fails fast.
func AsReadWriter(v any) (ReadWriter, error) {
	if err := Require(v, CapRead|CapWrite); err != nil {
		return nil, err
	}
	return v.(ReadWriter), nil
}

// AsReadWriteEraser returns v as a ReadWriteEraser or fails fast.
func AsReadWriteEraser(v any) (ReadWriteEraser, error) {
	if err := Require(v, CapRead|CapWrite|CapErase); err != nil {
		return nil, err
	}
	return v.(ReadWriteEraser), nil
}

// Info summarizes a medium for display and logging.
type Info struct {
	Start        Address    `json:"start" yaml:"start"`
	End          Address    `json:"end" yaml:"end"`
	Size         uint64     `json:"size" yaml:"size"`
	WordSize     uint64     `json:"word_size" yaml:"word_size"`
	EraseSize    uint64     `json:"erase_size,omitempty" yaml:"erase_size,omitempty"`
	EraseValue   byte       `json:"erase_value" yaml:"erase_value"`
	Capabilities Capability `json:"-" yaml:"-"`
	Caps         string     `json:"capabilities" yaml:"capabilities"`
}

// Describe collects the Info of a medium.
func Describe(m Medium) Info {
	g := GeometryOf(m)
	b := m.Bounds()
	caps := CapabilitiesOf(m)
	return Info{
		Start:        b.Start,
		End:          b.End,
		Size:         b.Len(),
		WordSize:     g.WordSize,
		EraseSize:    g.EraseSize,
		EraseValue:   g.EraseValue,
		Capabilities: caps,
		Caps:         caps.String(),
	}
}

func allowsUnaligned(m Medium) bool {
	u, ok := m.(Unaligned)
	return ok && u.AllowsUnaligned()
}

func requiresErase(m Medium) bool {
	e, ok := m.(EraseBeforeWrite)
	return ok && e.RequiresErase()
}
