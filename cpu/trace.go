// trace.go implements the execution trace recorder. Each retired step is
// captured as pc, instruction word, register write and memory access; the
// trace can be serialized, compared against a reference run and reduced to
// a Keccak-256 Merkle commitment.

package cpu

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

// ErrTraceCorrupt is returned when a serialized trace cannot be decoded.
var ErrTraceCorrupt = errors.New("cpu: corrupt trace")

// MemOp records a single data memory access made by a step.
type MemOp struct {
	Addr  uint32
	Value uint32
	Write bool
}

// TraceStep records one retired instruction.
type TraceStep struct {
	PC   uint32
	Word uint32

	// Rd and RdValue are only meaningful when WroteRd is set. Writes to x0
	// are recorded as issued.
	WroteRd bool
	Rd      uint32
	RdValue uint32

	// NextPC is the pc after the step.
	NextPC uint32

	Mem *MemOp
}

// Trace accumulates retired steps for later comparison or storage.
type Trace struct {
	Steps []TraceStep
}

// NewTrace creates an empty trace with room for capacity steps.
func NewTrace(capacity int) *Trace {
	return &Trace{Steps: make([]TraceStep, 0, capacity)}
}

func (t *Trace) record(pc, word, rd uint32, fx effect) {
	step := TraceStep{
		PC:      pc,
		Word:    word,
		WroteRd: fx.writeRd,
		NextPC:  fx.next,
	}
	if fx.writeRd {
		step.Rd = rd
		step.RdValue = fx.rdValue
	}
	if fx.mem != nil {
		op := *fx.mem
		step.Mem = &op
	}
	t.Steps = append(t.Steps, step)
}

// Len returns the number of recorded steps.
func (t *Trace) Len() int { return len(t.Steps) }

// Divergence returns the index of the first step at which t and other
// differ. ok is false when the traces are identical. A trace that is a
// strict prefix of the other diverges at its own length.
func (t *Trace) Divergence(other *Trace) (index int, ok bool) {
	n := min(len(t.Steps), len(other.Steps))
	for i := 0; i < n; i++ {
		if !t.Steps[i].equal(other.Steps[i]) {
			return i, true
		}
	}
	if len(t.Steps) != len(other.Steps) {
		return n, true
	}
	return 0, false
}

func (s TraceStep) equal(o TraceStep) bool {
	if s.PC != o.PC || s.Word != o.Word || s.NextPC != o.NextPC || s.WroteRd != o.WroteRd {
		return false
	}
	if s.WroteRd && (s.Rd != o.Rd || s.RdValue != o.RdValue) {
		return false
	}
	if (s.Mem == nil) != (o.Mem == nil) {
		return false
	}
	return s.Mem == nil || *s.Mem == *o.Mem
}

const (
	flagWroteRd = 1 << 0
	flagMem     = 1 << 1
	flagWrite   = 1 << 2

	stepBaseSize = 4 + 4 + 4 + 1 + 1 + 4 // pc, word, next, flags, rd, rd value
	memOpSize    = 4 + 4
)

func appendStep(buf []byte, s TraceStep) []byte {
	var flags byte
	if s.WroteRd {
		flags |= flagWroteRd
	}
	if s.Mem != nil {
		flags |= flagMem
		if s.Mem.Write {
			flags |= flagWrite
		}
	}
	buf = binary.LittleEndian.AppendUint32(buf, s.PC)
	buf = binary.LittleEndian.AppendUint32(buf, s.Word)
	buf = binary.LittleEndian.AppendUint32(buf, s.NextPC)
	buf = append(buf, flags, byte(s.Rd))
	buf = binary.LittleEndian.AppendUint32(buf, s.RdValue)
	if s.Mem != nil {
		buf = binary.LittleEndian.AppendUint32(buf, s.Mem.Addr)
		buf = binary.LittleEndian.AppendUint32(buf, s.Mem.Value)
	}
	return buf
}

// Serialize encodes the trace. Format:
//
//	count(4) then per step:
//	pc(4) + word(4) + next pc(4) + flags(1) + rd(1) + rd value(4)
//	[+ addr(4) + value(4) when the step accessed memory]
//
// All integers are little-endian.
func (t *Trace) Serialize() []byte {
	size := 4
	for _, s := range t.Steps {
		size += stepBaseSize
		if s.Mem != nil {
			size += memOpSize
		}
	}
	buf := make([]byte, 0, size)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(t.Steps)))
	for _, s := range t.Steps {
		buf = appendStep(buf, s)
	}
	return buf
}

// DeserializeTrace reconstructs a trace produced by Serialize.
func DeserializeTrace(data []byte) (*Trace, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("%w: missing step count", ErrTraceCorrupt)
	}
	count := binary.LittleEndian.Uint32(data)
	off := 4
	if uint64(count)*stepBaseSize > uint64(len(data)-off) {
		return nil, fmt.Errorf("%w: %d steps do not fit in %d bytes", ErrTraceCorrupt, count, len(data))
	}

	t := NewTrace(int(count))
	for i := uint32(0); i < count; i++ {
		if off+stepBaseSize > len(data) {
			return nil, fmt.Errorf("%w: step %d truncated", ErrTraceCorrupt, i)
		}
		s := TraceStep{
			PC:      binary.LittleEndian.Uint32(data[off:]),
			Word:    binary.LittleEndian.Uint32(data[off+4:]),
			NextPC:  binary.LittleEndian.Uint32(data[off+8:]),
			Rd:      uint32(data[off+13]),
			RdValue: binary.LittleEndian.Uint32(data[off+14:]),
		}
		flags := data[off+12]
		off += stepBaseSize
		s.WroteRd = flags&flagWroteRd != 0
		if flags&flagMem != 0 {
			if off+memOpSize > len(data) {
				return nil, fmt.Errorf("%w: step %d memory op truncated", ErrTraceCorrupt, i)
			}
			s.Mem = &MemOp{
				Addr:  binary.LittleEndian.Uint32(data[off:]),
				Value: binary.LittleEndian.Uint32(data[off+4:]),
				Write: flags&flagWrite != 0,
			}
			off += memOpSize
		}
		t.Steps = append(t.Steps, s)
	}
	if off != len(data) {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrTraceCorrupt, len(data)-off)
	}
	return t, nil
}

// Commitment computes a Keccak-256 Merkle root over the recorded steps.
// Each leaf is the hash of the step's serialized form; odd levels are
// padded by repeating the last node. Two runs of the same image produce
// the same commitment.
func (t *Trace) Commitment() common.Hash {
	if len(t.Steps) == 0 {
		return keccak(nil)
	}
	level := make([]common.Hash, len(t.Steps))
	var buf []byte
	for i, s := range t.Steps {
		buf = appendStep(buf[:0], s)
		level[i] = keccak(buf)
	}
	for len(level) > 1 {
		if len(level)%2 != 0 {
			level = append(level, level[len(level)-1])
		}
		next := make([]common.Hash, len(level)/2)
		for i := range next {
			next[i] = keccak(level[2*i][:], level[2*i+1][:])
		}
		level = next
	}
	return level[0]
}

func keccak(data ...[]byte) common.Hash {
	d := sha3.NewLegacyKeccak256()
	for _, b := range data {
		d.Write(b)
	}
	return common.BytesToHash(d.Sum(nil))
}
