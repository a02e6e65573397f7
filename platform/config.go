// Package platform describes the emulated board: where RAM and the debug
// peripheral live, how images are placed into RAM, and how long a run may
// take. It also builds the address space a Config describes.
package platform

import (
	"errors"
	"fmt"

	"github.com/calebfletcher/OrkaRV/bus"
)

// Default board layout.
const (
	DefaultRAMBase   uint32 = 0x01000000
	DefaultRAMSize   uint32 = 64 * 1024
	DefaultDebugBase uint32 = 0x03000000
)

// Image formats accepted by Config.Format.
const (
	FormatAuto = "auto"
	FormatELF  = "elf"
	FormatFlat = "flat"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config holds the board layout and run parameters.
type Config struct {
	// RAMBase is the first address of RAM.
	RAMBase uint32

	// RAMSize is the size of RAM in bytes.
	RAMSize uint32

	// DebugBase is the address of the debug peripheral's pass register.
	DebugBase uint32

	// LoadOffset is added to every ELF segment address and to the entry
	// point.
	LoadOffset uint32

	// Format selects the image loader (auto, elf, flat).
	Format string

	// MaxSteps bounds a run. Zero means unlimited.
	MaxSteps uint64

	// LogLevel controls log verbosity (debug, info, warn, error).
	LogLevel string

	// LogFormat selects the log encoding (json, text).
	LogFormat string
}

// DefaultConfig returns the layout of the reference board.
func DefaultConfig() Config {
	return Config{
		RAMBase:   DefaultRAMBase,
		RAMSize:   DefaultRAMSize,
		DebugBase: DefaultDebugBase,
		Format:    FormatAuto,
		LogLevel:  "info",
		LogFormat: "json",
	}
}

// Validate checks configuration values for correctness.
func (c *Config) Validate() error {
	if c.RAMSize == 0 {
		return fmt.Errorf("%w: ram size must be greater than 0", ErrInvalidConfig)
	}
	if c.RAMSize%4 != 0 {
		return fmt.Errorf("%w: ram size %d is not a multiple of 4", ErrInvalidConfig, c.RAMSize)
	}
	if c.RAMBase%4 != 0 {
		return fmt.Errorf("%w: ram base %08X is not word aligned", ErrInvalidConfig, c.RAMBase)
	}
	if uint64(c.RAMBase)+uint64(c.RAMSize) > 1<<32 {
		return fmt.Errorf("%w: ram [%08X,+%#x) exceeds the 32-bit address space",
			ErrInvalidConfig, c.RAMBase, c.RAMSize)
	}
	if c.DebugBase%4 != 0 {
		return fmt.Errorf("%w: debug base %08X is not word aligned", ErrInvalidConfig, c.DebugBase)
	}
	if uint64(c.DebugBase)+uint64(bus.DebugSize) > 1<<32 {
		return fmt.Errorf("%w: debug peripheral at %08X exceeds the 32-bit address space",
			ErrInvalidConfig, c.DebugBase)
	}
	ramEnd := uint64(c.RAMBase) + uint64(c.RAMSize)
	dbgEnd := uint64(c.DebugBase) + uint64(bus.DebugSize)
	if uint64(c.RAMBase) < dbgEnd && uint64(c.DebugBase) < ramEnd {
		return fmt.Errorf("%w: debug peripheral at %08X overlaps ram", ErrInvalidConfig, c.DebugBase)
	}
	switch c.Format {
	case FormatAuto, FormatELF, FormatFlat:
	default:
		return fmt.Errorf("%w: unknown image format %q", ErrInvalidConfig, c.Format)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown log level %q", ErrInvalidConfig, c.LogLevel)
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("%w: unknown log format %q", ErrInvalidConfig, c.LogFormat)
	}
	return nil
}

// Board is the set of devices a Config describes, wired into an address
// space with RAM tested before the debug peripheral.
type Board struct {
	Space *bus.AddressSpace
	RAM   *bus.RAM
	Debug *bus.DebugPeripheral
}

// NewBoard validates c and allocates a fresh, zeroed board.
func NewBoard(c Config) (*Board, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	ram := bus.NewRAM(c.RAMBase, c.RAMSize)
	dbg := bus.NewDebugPeripheral(c.DebugBase)
	space, err := bus.New(ram, dbg)
	if err != nil {
		return nil, err
	}
	return &Board{Space: space, RAM: ram, Debug: dbg}, nil
}
