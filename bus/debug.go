// debug.go implements the write-only debug peripheral through which
// firmware reports its pass or fail result.

package bus

import "fmt"

// Debug peripheral register offsets. The written value is ignored.
const (
	DebugRegPass uint32 = 0x0
	DebugRegFail uint32 = 0x4

	// DebugSize covers both registers.
	DebugSize uint32 = 0x8
)

// Status is the completion state firmware reports through the debug
// peripheral.
type Status uint8

const (
	StatusSuccess Status = iota + 1
	StatusFailure
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "Success"
	case StatusFailure:
		return "Failure"
	}
	return fmt.Sprintf("Status(%d)", uint8(s))
}

// DebugPeripheral is a write-only device that lets firmware signal pass or
// fail without real hardware.
type DebugPeripheral struct {
	base   uint32
	status Status // zero until written
}

// NewDebugPeripheral maps the debug peripheral at base.
func NewDebugPeripheral(base uint32) *DebugPeripheral {
	return &DebugPeripheral{base: base}
}

func (d *DebugPeripheral) Name() string { return "debug" }
func (d *DebugPeripheral) Base() uint32 { return d.base }
func (d *DebugPeripheral) Size() uint32 { return DebugSize }

// ReadWord always fails: firmware only ever writes this device.
func (d *DebugPeripheral) ReadWord(addr uint32) (uint32, error) {
	return 0, ErrReadUnsupported
}

// WriteWord records Success for a write to offset 0 and Failure for a write
// to offset 4. Later writes overwrite earlier ones.
func (d *DebugPeripheral) WriteWord(addr, _ uint32) error {
	switch off := addr - d.base; off {
	case DebugRegPass:
		d.status = StatusSuccess
	case DebugRegFail:
		d.status = StatusFailure
	default:
		return fmt.Errorf("%w: %#x", ErrUnmappedOffset, off)
	}
	return nil
}

// Status returns the reported status and whether one has been written.
func (d *DebugPeripheral) Status() (Status, bool) {
	return d.status, d.status != 0
}
