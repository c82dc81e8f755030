package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type halfWord uint16

func TestSizeOf(t *testing.T) {
	assert.Equal(t, 1, SizeOf[uint8]())
	assert.Equal(t, 2, SizeOf[uint16]())
	assert.Equal(t, 4, SizeOf[uint32]())
	assert.Equal(t, 8, SizeOf[uint64]())
	assert.Equal(t, 2, SizeOf[halfWord]())
}

func TestEncodeDecodeWords(t *testing.T) {
	words := []uint32{0x04030201, 0xdeadbeef}
	b := EncodeWords(words)
	assert.Equal(t, []byte{0x01, 0x02, 0x03, 0x04, 0xef, 0xbe, 0xad, 0xde}, b)

	got, err := DecodeWords[uint32](b)
	require.NoError(t, err)
	assert.Equal(t, words, got)

	named, err := DecodeWords[halfWord]([]byte{0x34, 0x12})
	require.NoError(t, err)
	assert.Equal(t, []halfWord{0x1234}, named)
}

func TestDecodeWordsPartial(t *testing.T) {
	_, err := DecodeWords[uint64]([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrPartialWord)
}

func TestGeometryValidate(t *testing.T) {
	assert.NoError(t, Geometry{WordSize: 1}.Validate())
	assert.NoError(t, Geometry{WordSize: 4, EraseSize: 4096}.Validate())
	assert.ErrorIs(t, Geometry{WordSize: 0}.Validate(), ErrWordSizeInvalid)
	assert.ErrorIs(t, Geometry{WordSize: 12}.Validate(), ErrWordSizeInvalid)
	assert.ErrorIs(t, Geometry{WordSize: 8, EraseSize: 12}.Validate(), ErrEraseSizeInvalid)

	assert.NoError(t, Geometry{WordSize: 4, EraseSize: 16}.ValidateSize(64))
	assert.ErrorIs(t, Geometry{WordSize: 4, EraseSize: 16}.ValidateSize(40), ErrSizeInvalid)
	assert.ErrorIs(t, Geometry{WordSize: 4}.ValidateSize(0), ErrSizeInvalid)
	assert.NoError(t, Geometry{WordSize: 4}.ValidateSize(12))
}
