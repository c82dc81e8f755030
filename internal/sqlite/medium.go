package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/mesh-intelligence/mediums/pkg/types"
)

// layout is the geometry of the attached medium. It implements
// types.Medium without locking so checks can run while b.mu is held.
type layout struct {
	bounds       types.Region
	wordSize     uint64
	eraseSize    uint64
	eraseValue   byte
	requireErase bool
}

func newLayout(c types.Config) layout {
	return layout{
		bounds:       types.Span(types.Address(c.Base), c.Size),
		wordSize:     c.WordSize,
		eraseSize:    c.EraseSize,
		eraseValue:   c.EraseValue,
		requireErase: c.RequireErase,
	}
}

func (l layout) Bounds() types.Region { return l.bounds }
func (l layout) WordSize() uint64     { return l.wordSize }

// sectorsOf returns the first sector index and the sector count covering r.
func (l layout) sectorsOf(r types.Region) (first, count uint64) {
	off := l.bounds.Offset(r.Start)
	first = off / l.eraseSize
	last := (off + r.Len() - 1) / l.eraseSize
	return first, last - first + 1
}

// sector is one erase unit loaded from the sectors table.
type sector struct {
	index      uint64
	data       []byte
	state      []byte
	eraseCount int64
	dirty      bool
}

type querier interface {
	Query(query string, args ...any) (*sql.Rows, error)
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// Bounds returns the address range of the attached medium, or an empty
// region when detached.
func (b *Backend) Bounds() types.Region {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.layout.bounds
}

// WordSize returns the configured word size.
func (b *Backend) WordSize() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.layout.wordSize
}

// EraseSize returns the configured erase size, which is also the size of
// one sectors row.
func (b *Backend) EraseSize() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.layout.eraseSize
}

// EraseValue returns the configured erase value.
func (b *Backend) EraseValue() byte {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.layout.eraseValue
}

// RequiresErase reports whether writes need freshly erased words.
func (b *Backend) RequiresErase() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.layout.requireErase
}

// Read fills p from the stored sectors. Sectors never written read as the
// erase value.
func (b *Backend) Read(addr types.Address, p []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return types.Fault(types.OpRead, types.Span(addr, uint64(len(p))), types.ErrDetached)
	}
	r, err := types.CheckAccess(types.OpRead, b.layout, addr, len(p))
	if err != nil || r.IsEmpty() {
		return err
	}

	first, count := b.layout.sectorsOf(r)
	secs, err := b.loadSectors(b.db, first, count)
	if err != nil {
		return b.fault(types.OpRead, r, err)
	}

	buf := make([]byte, r.Len())
	b.gather(secs, r, buf)
	copy(p, buf)
	return nil
}

// Write stores data in one transaction. When the medium requires erase,
// every target word must be erased or nothing is written.
func (b *Backend) Write(addr types.Address, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return types.Fault(types.OpWrite, types.Span(addr, uint64(len(data))), types.ErrDetached)
	}
	r, err := types.CheckAccess(types.OpWrite, b.layout, addr, len(data))
	if err != nil || r.IsEmpty() {
		return err
	}

	tx, err := b.db.Begin()
	if err != nil {
		return b.fault(types.OpWrite, r, err)
	}
	defer tx.Rollback()

	first, count := b.layout.sectorsOf(r)
	secs, err := b.loadSectors(tx, first, count)
	if err != nil {
		return b.fault(types.OpWrite, r, err)
	}

	l := b.layout
	off := l.bounds.Offset(r.Start)
	ws := l.wordSize
	if l.requireErase {
		for w := off / ws; w < (off+r.Len())/ws; w++ {
			s := &secs[w*ws/l.eraseSize-first]
			if s.state[(w*ws%l.eraseSize)/ws] != wordErased {
				return types.NotErased(types.OpWrite, types.Span(l.bounds.Start+types.Address(w*ws), ws))
			}
		}
	}

	for i := uint64(0); i < r.Len(); i++ {
		pos := off + i
		s := &secs[pos/l.eraseSize-first]
		s.data[pos%l.eraseSize] = data[i]
		s.state[(pos%l.eraseSize)/ws] = wordWritten
		s.dirty = true
	}

	if err := b.storeSectors(tx, secs); err != nil {
		return b.fault(types.OpWrite, r, err)
	}
	if err := tx.Commit(); err != nil {
		return b.fault(types.OpWrite, r, err)
	}
	return nil
}

// Erase resets r to the erase value and marks its words erased. r must be
// aligned to the erase size.
func (b *Backend) Erase(r types.Region) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return types.Fault(types.OpErase, r, types.ErrDetached)
	}
	if err := types.CheckRegion(types.OpErase, b.layout, r); err != nil || r.IsEmpty() {
		return err
	}
	l := b.layout
	// Attach keeps the base erase-aligned, so absolute alignment suffices.
	if !r.AlignedTo(l.eraseSize) {
		return types.Misaligned(types.OpErase, r)
	}

	tx, err := b.db.Begin()
	if err != nil {
		return b.fault(types.OpErase, r, err)
	}
	defer tx.Rollback()

	first, count := l.sectorsOf(r)
	secs, err := b.loadSectors(tx, first, count)
	if err != nil {
		return b.fault(types.OpErase, r, err)
	}
	for i := range secs {
		s := &secs[i]
		for j := range s.data {
			s.data[j] = l.eraseValue
		}
		for j := range s.state {
			s.state[j] = wordErased
		}
		s.eraseCount++
		s.dirty = true
	}

	if err := b.storeSectors(tx, secs); err != nil {
		return b.fault(types.OpErase, r, err)
	}
	if err := tx.Commit(); err != nil {
		return b.fault(types.OpErase, r, err)
	}
	b.logger.Debug("medium erased", "medium", b.id, "region", r.String())
	return nil
}

// Wear returns the erase count of every erase unit.
func (b *Backend) Wear() ([]uint64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.Fault("wear", types.Region{}, types.ErrDetached)
	}
	n := b.layout.bounds.Len() / b.layout.eraseSize
	secs, err := b.loadSectors(b.db, 0, n)
	if err != nil {
		return nil, b.fault("wear", b.layout.bounds, err)
	}
	wear := make([]uint64, n)
	for i, s := range secs {
		wear[i] = uint64(s.eraseCount)
	}
	return wear, nil
}

// loadSectors returns count sectors starting at first. Sectors with no
// row come back filled with the erase value and every word Unknown.
func (b *Backend) loadSectors(q querier, first, count uint64) ([]sector, error) {
	l := b.layout
	secs := make([]sector, count)
	for i := range secs {
		secs[i] = sector{
			index: first + uint64(i),
			data:  make([]byte, l.eraseSize),
			state: make([]byte, l.eraseSize/l.wordSize),
		}
		for j := range secs[i].data {
			secs[i].data[j] = l.eraseValue
		}
	}

	rows, err := q.Query(
		`SELECT sector, data, state, erase_count FROM sectors
		 WHERE medium_id = ? AND sector >= ? AND sector < ?`,
		b.id, int64(first), int64(first+count),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			idx         int64
			data, state []byte
			eraseCount  int64
		)
		if err := rows.Scan(&idx, &data, &state, &eraseCount); err != nil {
			return nil, err
		}
		s := &secs[uint64(idx)-first]
		if len(data) != len(s.data) || len(state) != len(s.state) {
			return nil, fmt.Errorf("sector %d: stored %d bytes and %d states, want %d and %d",
				idx, len(data), len(state), len(s.data), len(s.state))
		}
		copy(s.data, data)
		copy(s.state, state)
		s.eraseCount = eraseCount
	}
	return secs, rows.Err()
}

// storeSectors upserts every dirty sector.
func (b *Backend) storeSectors(e execer, secs []sector) error {
	now := time.Now().UTC().Format(time.RFC3339)
	for _, s := range secs {
		if !s.dirty {
			continue
		}
		_, err := e.Exec(
			`INSERT INTO sectors (medium_id, sector, data, state, erase_count, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT (medium_id, sector) DO UPDATE SET
			   data = excluded.data,
			   state = excluded.state,
			   erase_count = excluded.erase_count,
			   updated_at = excluded.updated_at`,
			b.id, int64(s.index), s.data, s.state, s.eraseCount, now,
		)
		if err != nil {
			return fmt.Errorf("store sector %d: %w", s.index, err)
		}
	}
	return nil
}

// gather copies the bytes of r out of secs into buf.
func (b *Backend) gather(secs []sector, r types.Region, buf []byte) {
	l := b.layout
	off := l.bounds.Offset(r.Start)
	first := secs[0].index
	for i := range buf {
		pos := off + uint64(i)
		buf[i] = secs[pos/l.eraseSize-first].data[pos%l.eraseSize]
	}
}

// fault logs a storage failure and wraps it as a MediumFault.
func (b *Backend) fault(op string, r types.Region, err error) error {
	b.logger.Error("medium fault", "medium", b.id, "op", op, "region", r.String(), "error", err)
	return types.Fault(op, r, err)
}
