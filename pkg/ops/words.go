package ops

import (
	"math"

	"github.com/mesh-intelligence/mediums/pkg/types"
)

// ReadWords reads count little-endian words of type W starting at addr.
func ReadWords[W types.Word](m types.Readable, addr types.Address, count int) ([]W, error) {
	size := types.SizeOf[W]()
	if count < 0 || count > math.MaxInt/size {
		return nil, types.OutOfBounds(types.OpRead, types.Region{Start: addr, End: types.Address(math.MaxUint64)})
	}
	raw, err := ReadN(m, addr, count*size)
	if err != nil {
		return nil, err
	}
	return types.DecodeWords[W](raw)
}

// WriteWords writes words in little-endian form starting at addr.
func WriteWords[W types.Word](m types.Writable, addr types.Address, words []W) error {
	return m.Write(addr, types.EncodeWords(words))
}
