package bus

import (
	"errors"
	"math/rand"
	"testing"
)

const (
	testRAMBase   uint32 = 0x01000000
	testRAMSize   uint32 = 64 * 1024
	testDebugBase uint32 = 0x03000000
)

func newTestSpace(t *testing.T) (*AddressSpace, *RAM, *DebugPeripheral) {
	t.Helper()
	ram := NewRAM(testRAMBase, testRAMSize)
	dbg := NewDebugPeripheral(testDebugBase)
	as, err := New(ram, dbg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return as, ram, dbg
}

func TestAddressSpace_ReadWriteWord(t *testing.T) {
	as, ram, _ := newTestSpace(t)

	if err := as.Write(testRAMBase+8, 0xDEADBEEF); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := as.Read(testRAMBase + 8)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got != 0xDEADBEEF {
		t.Fatalf("Read = 0x%08x, want 0xDEADBEEF", got)
	}

	// Little-endian byte order.
	b := ramBytes(ram, testRAMBase+8, 4)
	want := []byte{0xEF, 0xBE, 0xAD, 0xDE}
	for i := range want {
		if b[i] != want[i] {
			t.Fatalf("byte %d = 0x%02x, want 0x%02x", i, b[i], want[i])
		}
	}
}

func TestAddressSpace_UnalignedInsideRAM(t *testing.T) {
	as, _, _ := newTestSpace(t)
	if err := as.Write(testRAMBase, 0x44332211); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := as.Write(testRAMBase+4, 0x88776655); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := as.Read(testRAMBase + 2)
	if err != nil {
		t.Fatalf("Read unaligned: %v", err)
	}
	if got != 0x66554433 {
		t.Fatalf("Read unaligned = 0x%08x, want 0x66554433", got)
	}
}

func TestAddressSpace_InvalidAddress(t *testing.T) {
	as, _, _ := newTestSpace(t)

	for _, addr := range []uint32{0, testRAMBase - 4, testRAMBase + testRAMSize, 0x02000000, testDebugBase + DebugSize, 0xFFFFFFFC} {
		_, err := as.Read(addr)
		if !errors.Is(err, ErrInvalidAddress) || !errors.Is(err, ErrMemoryAccess) {
			t.Errorf("Read(%08X) error = %v, want ErrInvalidAddress", addr, err)
		}
		var ae *AccessError
		if !errors.As(err, &ae) || ae.Addr != addr || ae.Kind != AccessRead {
			t.Errorf("Read(%08X) AccessError = %+v", addr, ae)
		}
		if err := as.Write(addr, 1); !errors.Is(err, ErrInvalidAddress) {
			t.Errorf("Write(%08X) error = %v, want ErrInvalidAddress", addr, err)
		}
	}

	_, err := as.Fetch(0x02000000)
	var ae *AccessError
	if !errors.As(err, &ae) || ae.Kind != AccessFetch {
		t.Fatalf("Fetch error = %v, want fetch AccessError", err)
	}
	if ae.Error() != "invalid fetch address: 02000000" {
		t.Fatalf("Error() = %q", ae.Error())
	}
}

func TestAddressSpace_OverrunAtRAMEnd(t *testing.T) {
	as, _, _ := newTestSpace(t)
	last := testRAMBase + testRAMSize - 4

	if err := as.Write(last, 7); err != nil {
		t.Fatalf("Write last word: %v", err)
	}
	for _, addr := range []uint32{last + 1, last + 2, last + 3} {
		if _, err := as.Read(addr); !errors.Is(err, ErrOutOfBounds) {
			t.Errorf("Read(%08X) error = %v, want ErrOutOfBounds", addr, err)
		}
		if err := as.Write(addr, 1); !errors.Is(err, ErrOutOfBounds) {
			t.Errorf("Write(%08X) error = %v, want ErrOutOfBounds", addr, err)
		}
	}
}

func TestAddressSpace_Disjoint(t *testing.T) {
	as, ram, dbg := newTestSpace(t)
	rng := rand.New(rand.NewSource(1))

	check := func(addr uint32) {
		inRAM := ram.Contains(addr)
		inDebug := Contains(dbg, addr)
		if inRAM && inDebug {
			t.Fatalf("%08X claimed by both regions", addr)
		}
		r := as.Find(addr)
		switch {
		case inRAM && r != Region(ram):
			t.Fatalf("%08X: Find = %v, want ram", addr, r)
		case inDebug && r != Region(dbg):
			t.Fatalf("%08X: Find = %v, want debug", addr, r)
		case !inRAM && !inDebug && r != nil:
			t.Fatalf("%08X: Find = %v, want nil", addr, r)
		}
	}

	for i := 0; i < 10000; i++ {
		check(testRAMBase + uint32(rng.Intn(int(testRAMSize))))
		check(testDebugBase + uint32(rng.Intn(int(DebugSize))))
		check(rng.Uint32())
	}
	for _, addr := range []uint32{testRAMBase - 1, testRAMBase, testRAMBase + testRAMSize - 1,
		testRAMBase + testRAMSize, testDebugBase - 1, testDebugBase, testDebugBase + DebugSize - 1,
		testDebugBase + DebugSize} {
		check(addr)
	}
}

func TestNew_RejectsOverlap(t *testing.T) {
	ram := NewRAM(0x1000, 0x1000)
	dbg := NewDebugPeripheral(0x1FFC)
	if _, err := New(ram, dbg); !errors.Is(err, ErrRegionOverlap) {
		t.Fatalf("New overlap error = %v, want ErrRegionOverlap", err)
	}
	if _, err := New(ram, NewDebugPeripheral(0x2000)); err != nil {
		t.Fatalf("New adjacent: %v", err)
	}
}

func TestDebugPeripheral_WriteSemantics(t *testing.T) {
	as, _, dbg := newTestSpace(t)

	if _, ok := dbg.Status(); ok {
		t.Fatal("status set before any write")
	}
	if err := as.Write(testDebugBase+DebugRegPass, 0x12345678); err != nil {
		t.Fatalf("write pass: %v", err)
	}
	if s, ok := dbg.Status(); !ok || s != StatusSuccess {
		t.Fatalf("status = %v/%v, want Success", s, ok)
	}
	if err := as.Write(testDebugBase+DebugRegFail, 0); err != nil {
		t.Fatalf("write fail: %v", err)
	}
	if s, ok := dbg.Status(); !ok || s != StatusFailure {
		t.Fatalf("status = %v/%v, want Failure", s, ok)
	}
}

func TestDebugPeripheral_ReadFails(t *testing.T) {
	as, _, _ := newTestSpace(t)
	_, err := as.Read(testDebugBase)
	if !errors.Is(err, ErrReadUnsupported) || !errors.Is(err, ErrMemoryAccess) {
		t.Fatalf("debug read error = %v, want ErrReadUnsupported", err)
	}
}

func TestDebugPeripheral_UnmappedOffset(t *testing.T) {
	as, _, dbg := newTestSpace(t)
	for _, off := range []uint32{1, 2, 3, 5, 6, 7} {
		if err := as.Write(testDebugBase+off, 0); !errors.Is(err, ErrUnmappedOffset) {
			t.Errorf("write offset %d error = %v, want ErrUnmappedOffset", off, err)
		}
	}
	if _, ok := dbg.Status(); ok {
		t.Fatal("unmapped writes must not set status")
	}
}

func TestRAM_LoadBounds(t *testing.T) {
	ram := NewRAM(testRAMBase, 16)
	if err := ram.Load(testRAMBase+8, []byte{1, 2, 3, 4, 5, 6, 7, 8}); err != nil {
		t.Fatalf("Load fitting: %v", err)
	}
	if err := ram.Load(testRAMBase+9, make([]byte, 8)); !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("Load past end error = %v, want ErrOutOfBounds", err)
	}
	if err := ram.Load(testRAMBase-1, []byte{1}); !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("Load below base error = %v, want ErrOutOfBounds", err)
	}
	// Failed loads leave memory untouched.
	b := ramBytes(ram, testRAMBase+8, 8)
	if b[1] != 2 || b[7] != 8 {
		t.Fatalf("memory modified by failed load: %v", b)
	}
	if err := ram.Zero(testRAMBase+8, 4); err != nil {
		t.Fatalf("Zero: %v", err)
	}
	b = ramBytes(ram, testRAMBase+8, 8)
	if b[0] != 0 || b[3] != 0 || b[4] != 5 {
		t.Fatalf("Zero cleared wrong range: %v", b)
	}
}

func TestStatus_String(t *testing.T) {
	if StatusSuccess.String() != "Success" || StatusFailure.String() != "Failure" {
		t.Fatalf("Status strings = %q/%q", StatusSuccess, StatusFailure)
	}
}

func ramBytes(r *RAM, addr, n uint32) []byte {
	off := addr - r.base
	return r.data[off : off+n]
}
