package ops

import "github.com/mesh-intelligence/mediums/pkg/types"

const (
	opReadSector  = "read sector"
	opWriteSector = "write sector"
)

// CapacityBytes returns the size of the medium in bytes.
func CapacityBytes(m types.Medium) uint64 {
	return m.Bounds().Len()
}

// CapacityWords returns the size of the medium in words.
func CapacityWords(m types.Medium) uint64 {
	return m.Bounds().Len() / m.WordSize()
}

// Sectors returns the number of whole erase units in the medium.
func Sectors(m types.Erasable) uint64 {
	if m.EraseSize() == 0 {
		return 0
	}
	return m.Bounds().Len() / m.EraseSize()
}

// SectorRegion returns the region of erase unit idx.
func SectorRegion(m types.Erasable, idx uint64) (types.Region, error) {
	return sectorRegion(opReadSector, m, idx)
}

// ReadSector reads erase unit idx.
func ReadSector(m types.ReadEraser, idx uint64) ([]byte, error) {
	r, err := sectorRegion(opReadSector, m, idx)
	if err != nil {
		return nil, err
	}
	return ReadN(m, r.Start, int(r.Len()))
}

// WriteSector erases erase unit idx and writes data, which must be exactly
// one erase unit long.
func WriteSector(m types.ReadWriteEraser, idx uint64, data []byte) error {
	r, err := sectorRegion(opWriteSector, m, idx)
	if err != nil {
		return err
	}
	if uint64(len(data)) != r.Len() {
		return types.Misaligned(opWriteSector, types.Span(r.Start, uint64(len(data))))
	}
	if err := m.Erase(r); err != nil {
		return err
	}
	return m.Write(r.Start, data)
}

func sectorRegion(op string, m types.Erasable, idx uint64) (types.Region, error) {
	es := m.EraseSize()
	r := types.Span(m.Bounds().Start+types.Address(idx*es), es)
	if idx >= Sectors(m) {
		return r, types.OutOfBounds(op, r)
	}
	return r, nil
}
