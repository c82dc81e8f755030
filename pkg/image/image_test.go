package image

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/mediums/pkg/flash"
	"github.com/mesh-intelligence/mediums/pkg/ops"
	"github.com/mesh-intelligence/mediums/pkg/ram"
	"github.com/mesh-intelligence/mediums/pkg/types"
)

func pattern(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i*7 + 3)
	}
	return b
}

func TestCapture(t *testing.T) {
	m := ram.NewAt(0x1000, pattern(64))

	img, err := Capture(m, types.Region{Start: 0x1010, End: 0x1020})
	require.NoError(t, err)
	assert.Equal(t, uint16(FormatVersion), img.Version)
	assert.Equal(t, types.Address(0x1010), img.Base)
	assert.Equal(t, uint64(1), img.WordSize)
	assert.Equal(t, pattern(64)[16:32], img.Data)
	assert.Equal(t, ops.DigestBytes(img.Data), img.Digest)
	assert.Equal(t, types.Region{Start: 0x1010, End: 0x1020}, img.Region())

	for _, r := range []types.Region{
		{Start: 0x1030, End: 0x1050},
		{Start: 0x1000, End: 0x1000 + 1<<62},
		{Start: 0, End: math.MaxUint64},
		{Start: 0x1020, End: 0x1010},
	} {
		img, err := Capture(m, r)
		require.ErrorIs(t, err, types.ErrOutOfBounds, "region %s", r)
		assert.Nil(t, img)
	}
}

func TestEncodeDecode(t *testing.T) {
	f, err := flash.New(flash.Config{Size: 64, WordSize: 4, EraseSize: 16, EraseValue: 0xFF, PreErased: true})
	require.NoError(t, err)
	require.NoError(t, f.Write(0, pattern(32)))

	img, err := Capture(f, f.Bounds())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, img))

	got, err := Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, img, got)
}

func TestMarshal_Canonical(t *testing.T) {
	img, err := Capture(ram.New(pattern(8)), types.Span(0, 8))
	require.NoError(t, err)

	a, err := Marshal(img)
	require.NoError(t, err)
	b, err := Marshal(img)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	got, err := Unmarshal(a)
	require.NoError(t, err)
	assert.Equal(t, img.Data, got.Data)
}

func TestDecode_DigestMismatch(t *testing.T) {
	img, err := Capture(ram.New(pattern(16)), types.Span(0, 16))
	require.NoError(t, err)
	img.Data[3] ^= 0xFF

	raw, err := Marshal(img)
	require.NoError(t, err)

	_, err = Unmarshal(raw)
	assert.ErrorIs(t, err, ErrDigestMismatch)
	_, err = Decode(bytes.NewReader(raw))
	assert.ErrorIs(t, err, ErrDigestMismatch)
}

func TestDecode_VersionAndGarbage(t *testing.T) {
	img, err := Capture(ram.New(pattern(4)), types.Span(0, 4))
	require.NoError(t, err)
	img.Version = 9

	raw, err := Marshal(img)
	require.NoError(t, err)
	_, err = Unmarshal(raw)
	assert.ErrorIs(t, err, ErrVersionUnsupported)

	_, err = Unmarshal([]byte{0xFF, 0x00})
	assert.Error(t, err)
}

func TestRestore_RAM(t *testing.T) {
	img, err := Capture(ram.New(pattern(32)), types.Span(8, 8))
	require.NoError(t, err)

	dst := ram.NewSize(32)
	require.NoError(t, Restore(dst, img))
	assert.Equal(t, pattern(32)[8:16], dst.Bytes()[8:16])
	assert.Equal(t, make([]byte, 8), dst.Bytes()[:8])
}

func TestRestore_FlashWholeUnits(t *testing.T) {
	img, err := Capture(ram.New(pattern(64)), types.Span(16, 32))
	require.NoError(t, err)

	f, err := flash.New(flash.Config{Size: 64, WordSize: 4, EraseSize: 16, EraseValue: 0xFF})
	require.NoError(t, err)

	// Words start Unknown, so a plain write would be rejected.
	require.NoError(t, Restore(f, img))
	require.NoError(t, ops.Verify(f, 16, pattern(64)[16:48]))
	assert.Equal(t, []uint64{0, 1, 1, 0}, f.Stats().Wear)
}

func TestRestore_FlashPartialUnit(t *testing.T) {
	f, err := flash.New(flash.Config{Size: 32, WordSize: 4, EraseSize: 16, EraseValue: 0xFF})
	require.NoError(t, err)
	require.NoError(t, ops.Program(f, 0, bytes.Repeat([]byte{0xAB}, 32)))

	img, err := Capture(ram.New(pattern(32)), types.Span(4, 8))
	require.NoError(t, err)
	require.NoError(t, Restore(f, img))

	want := bytes.Repeat([]byte{0xAB}, 32)
	copy(want[4:], pattern(32)[4:12])
	require.NoError(t, ops.Verify(f, 0, want))
}

func TestRestore_RejectsTamperedImage(t *testing.T) {
	img, err := Capture(ram.New(pattern(8)), types.Span(0, 8))
	require.NoError(t, err)
	img.Digest = nil

	dst := ram.NewSize(8)
	assert.ErrorIs(t, Restore(dst, img), ErrDigestMismatch)
	assert.Equal(t, make([]byte, 8), dst.Bytes())
}
