package bus

import (
	"encoding/binary"
	"fmt"
)

// RAM is a fixed-size, zero-initialised byte buffer mapped at Base.
type RAM struct {
	base uint32
	data []byte
}

// NewRAM allocates size bytes of RAM mapped at base.
func NewRAM(base, size uint32) *RAM {
	return &RAM{base: base, data: make([]byte, size)}
}

func (r *RAM) Name() string { return "ram" }
func (r *RAM) Base() uint32 { return r.base }
func (r *RAM) Size() uint32 { return uint32(len(r.data)) }
func (r *RAM) Contains(addr uint32) bool { return Contains(r, addr) }

// span converts [addr, addr+n) to a slice range of the backing buffer.
// Any byte outside the buffer fails the whole access.
func (r *RAM) span(addr uint32, n uint64) (int, int, error) {
	if addr < r.base {
		return 0, 0, fmt.Errorf("%w: %08X below base %08X", ErrOutOfBounds, addr, r.base)
	}
	start := uint64(addr - r.base)
	end := start + n
	if end > uint64(len(r.data)) {
		return 0, 0, fmt.Errorf("%w: [%08X,+%d) past end %08X",
			ErrOutOfBounds, addr, n, uint64(r.base)+uint64(len(r.data)))
	}
	return int(start), int(end), nil
}

// ReadWord reads a little-endian word at addr.
func (r *RAM) ReadWord(addr uint32) (uint32, error) {
	start, end, err := r.span(addr, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(r.data[start:end]), nil
}

// WriteWord writes a little-endian word at addr.
func (r *RAM) WriteWord(addr, val uint32) error {
	start, end, err := r.span(addr, 4)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(r.data[start:end], val)
	return nil
}

// Load copies data into RAM starting at addr. The whole range must be
// mapped; nothing is written otherwise.
func (r *RAM) Load(addr uint32, data []byte) error {
	start, end, err := r.span(addr, uint64(len(data)))
	if err != nil {
		return err
	}
	copy(r.data[start:end], data)
	return nil
}

// Zero clears n bytes starting at addr.
func (r *RAM) Zero(addr uint32, n uint64) error {
	start, end, err := r.span(addr, n)
	if err != nil {
		return err
	}
	clear(r.data[start:end])
	return nil
}
