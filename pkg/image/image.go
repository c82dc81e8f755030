// Package image captures medium content into portable snapshots and
// restores them onto other media. Images are stored as canonical CBOR with
// integer map keys and carry a BLAKE2b-256 digest of their data.
package image

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"

	"github.com/mesh-intelligence/mediums/pkg/ops"
	"github.com/mesh-intelligence/mediums/pkg/types"
)

// FormatVersion is the image format written by Encode.
const FormatVersion = 1

// Image errors.
var (
	ErrDigestMismatch     = errors.New("image digest mismatch")
	ErrVersionUnsupported = errors.New("unsupported image version")
)

// Image is a snapshot of one region of a medium.
type Image struct {
	Version    uint16        `cbor:"1,keyasint"`
	Base       types.Address `cbor:"2,keyasint"`
	WordSize   uint64        `cbor:"3,keyasint"`
	EraseSize  uint64        `cbor:"4,keyasint,omitempty"`
	EraseValue byte          `cbor:"5,keyasint,omitempty"`
	Data       []byte        `cbor:"6,keyasint"`
	Digest     []byte        `cbor:"7,keyasint"`
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
	}
	encMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create image CBOR encoder mode: %v", err))
	}

	decOpts := cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyEnforcedAPF,
		IndefLength: cbor.IndefLengthForbidden,
	}
	decMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create image CBOR decoder mode: %v", err))
	}
}

// Region returns the address range the image covers.
func (img *Image) Region() types.Region {
	return types.Span(img.Base, uint64(len(img.Data)))
}

// Check verifies the version and digest.
func (img *Image) Check() error {
	if img.Version != FormatVersion {
		return fmt.Errorf("%w: %d", ErrVersionUnsupported, img.Version)
	}
	if !bytes.Equal(img.Digest, ops.DigestBytes(img.Data)) {
		return fmt.Errorf("%w: %s", ErrDigestMismatch, img.Region())
	}
	return nil
}

// Capture reads r from m into a new image.
func Capture(m types.Readable, r types.Region) (*Image, error) {
	if err := types.CheckRegion(types.OpRead, m, r); err != nil {
		return nil, err
	}
	data, err := ops.ReadN(m, r.Start, int(r.Len()))
	if err != nil {
		return nil, err
	}
	g := types.GeometryOf(m)
	return &Image{
		Version:    FormatVersion,
		Base:       r.Start,
		WordSize:   g.WordSize,
		EraseSize:  g.EraseSize,
		EraseValue: g.EraseValue,
		Data:       data,
		Digest:     ops.DigestBytes(data),
	}, nil
}

// Restore writes img back to m at img.Base. Media that require erase
// before write are erased first: whole erase units are programmed
// directly and partial units go through a read-modify-write update.
func Restore(m types.Writable, img *Image) error {
	if err := img.Check(); err != nil {
		return err
	}
	caps := types.CapabilitiesOf(m)
	if !caps.Has(types.CapEraseBeforeWrite) {
		return m.Write(img.Base, img.Data)
	}
	rwe, err := types.AsReadWriteEraser(m)
	if err != nil {
		return err
	}
	if img.Region().AlignedTo(rwe.EraseSize()) {
		return ops.Program(rwe, img.Base, img.Data)
	}
	return ops.Update(rwe, img.Base, img.Data)
}

// Marshal returns the canonical CBOR encoding of img.
func Marshal(img *Image) ([]byte, error) {
	return encMode.Marshal(img)
}

// Unmarshal decodes data and verifies the result.
func Unmarshal(data []byte) (*Image, error) {
	var img Image
	if err := decMode.Unmarshal(data, &img); err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	if err := img.Check(); err != nil {
		return nil, err
	}
	return &img, nil
}

// Encode writes img to w as CBOR.
func Encode(w io.Writer, img *Image) error {
	return encMode.NewEncoder(w).Encode(img)
}

// Decode reads one image from r and verifies it.
func Decode(r io.Reader) (*Image, error) {
	var img Image
	if err := decMode.NewDecoder(r).Decode(&img); err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	if err := img.Check(); err != nil {
		return nil, err
	}
	return &img, nil
}
