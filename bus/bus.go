// Package bus implements the emulator's physical address space: a fixed,
// ordered set of non-overlapping regions (RAM, the debug peripheral) with
// word-granularity load and store.
package bus

import (
	"errors"
	"fmt"
)

// Memory access errors. Every refinement wraps ErrMemoryAccess.
var (
	ErrMemoryAccess    = errors.New("bus: memory access fault")
	ErrInvalidAddress  = fmt.Errorf("%w: invalid address", ErrMemoryAccess)
	ErrOutOfBounds     = fmt.Errorf("%w: access crosses region end", ErrMemoryAccess)
	ErrReadUnsupported = fmt.Errorf("%w: region does not support reads", ErrMemoryAccess)
	ErrUnmappedOffset  = fmt.Errorf("%w: no register at offset", ErrMemoryAccess)
	ErrRegionOverlap   = errors.New("bus: regions overlap")
)

// AccessKind says which kind of access faulted.
type AccessKind uint8

const (
	AccessFetch AccessKind = iota
	AccessRead
	AccessWrite
)

func (k AccessKind) String() string {
	switch k {
	case AccessFetch:
		return "fetch"
	case AccessRead:
		return "read"
	case AccessWrite:
		return "write"
	}
	return fmt.Sprintf("AccessKind(%d)", uint8(k))
}

// AccessError reports a failed load or store together with the faulting
// address.
type AccessError struct {
	Kind   AccessKind
	Addr   uint32
	Region string // empty when no region contains Addr
	Err    error
}

func (e *AccessError) Error() string {
	if e.Region == "" {
		return fmt.Sprintf("invalid %s address: %08X", e.Kind, e.Addr)
	}
	return fmt.Sprintf("%s %s at %08X: %v", e.Region, e.Kind, e.Addr, e.Err)
}

func (e *AccessError) Unwrap() error { return e.Err }

// Region is a contiguous window of the address space backed by some device.
// Addresses passed to ReadWord and WriteWord are absolute and always
// satisfy Contains.
type Region interface {
	Name() string
	Base() uint32
	Size() uint32
	ReadWord(addr uint32) (uint32, error)
	WriteWord(addr, val uint32) error
}

// Contains reports whether addr lies in [base, base+size) of r.
func Contains(r Region, addr uint32) bool {
	return addr >= r.Base() && uint64(addr) < uint64(r.Base())+uint64(r.Size())
}

// AddressSpace dispatches accesses to the first region that contains the
// address. Lookup order is the order regions were given to New.
type AddressSpace struct {
	regions []Region
}

// New builds an AddressSpace over regions, tested in the given order.
// Overlapping regions are rejected.
func New(regions ...Region) (*AddressSpace, error) {
	for i, a := range regions {
		for _, b := range regions[i+1:] {
			if overlaps(a, b) {
				return nil, fmt.Errorf("%w: %s [%08X,+%#x) and %s [%08X,+%#x)",
					ErrRegionOverlap, a.Name(), a.Base(), a.Size(), b.Name(), b.Base(), b.Size())
			}
		}
	}
	return &AddressSpace{regions: regions}, nil
}

func overlaps(a, b Region) bool {
	aEnd := uint64(a.Base()) + uint64(a.Size())
	bEnd := uint64(b.Base()) + uint64(b.Size())
	return uint64(a.Base()) < bEnd && uint64(b.Base()) < aEnd
}

// Regions returns the regions in lookup order.
func (as *AddressSpace) Regions() []Region {
	out := make([]Region, len(as.regions))
	copy(out, as.regions)
	return out
}

// Find returns the region containing addr, or nil.
func (as *AddressSpace) Find(addr uint32) Region {
	for _, r := range as.regions {
		if Contains(r, addr) {
			return r
		}
	}
	return nil
}

// Fetch reads an instruction word. It differs from Read only in the access
// kind reported on failure.
func (as *AddressSpace) Fetch(addr uint32) (uint32, error) {
	return as.load(AccessFetch, addr)
}

// Read loads a 32-bit little-endian word.
func (as *AddressSpace) Read(addr uint32) (uint32, error) {
	return as.load(AccessRead, addr)
}

func (as *AddressSpace) load(kind AccessKind, addr uint32) (uint32, error) {
	r := as.Find(addr)
	if r == nil {
		return 0, &AccessError{Kind: kind, Addr: addr, Err: ErrInvalidAddress}
	}
	v, err := r.ReadWord(addr)
	if err != nil {
		return 0, &AccessError{Kind: kind, Addr: addr, Region: r.Name(), Err: err}
	}
	return v, nil
}

// Write stores a 32-bit little-endian word.
func (as *AddressSpace) Write(addr, val uint32) error {
	r := as.Find(addr)
	if r == nil {
		return &AccessError{Kind: AccessWrite, Addr: addr, Err: ErrInvalidAddress}
	}
	if err := r.WriteWord(addr, val); err != nil {
		return &AccessError{Kind: AccessWrite, Addr: addr, Region: r.Name(), Err: err}
	}
	return nil
}
