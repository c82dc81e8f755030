package ops

import (
	"golang.org/x/crypto/blake2b"

	"github.com/mesh-intelligence/mediums/pkg/types"
)

// DigestSize is the length of a Digest result in bytes.
const DigestSize = blake2b.Size256

// Digest returns the BLAKE2b-256 hash of the bytes in r, read in chunks.
func Digest(m types.Readable, r types.Region) ([]byte, error) {
	if !r.Valid() {
		return nil, types.OutOfBounds(types.OpRead, r)
	}
	if _, err := types.CheckAccess(types.OpRead, m, r.Start, int(r.Len())); err != nil {
		return nil, err
	}
	h, err := blake2b.New256(nil)
	if err != nil {
		return nil, err
	}
	size := chunkSize(transferUnit(m), 0)
	buf := make([]byte, size)
	for _, c := range r.Chunks(size) {
		p := buf[:c.Len()]
		if err := m.Read(c.Start, p); err != nil {
			return nil, err
		}
		h.Write(p)
	}
	return h.Sum(nil), nil
}

// DigestBytes hashes b the same way Digest hashes medium content.
func DigestBytes(b []byte) []byte {
	sum := blake2b.Sum256(b)
	return sum[:]
}
