// Package loader places firmware images into the emulated board's RAM and
// determines the program counter execution starts from. Two image formats
// are supported: statically linked RV32 ELF executables and flat binaries.
package loader

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"

	"github.com/calebfletcher/OrkaRV/bus"
	"github.com/calebfletcher/OrkaRV/log"
	"github.com/calebfletcher/OrkaRV/metrics"
	"github.com/calebfletcher/OrkaRV/platform"
)

// Image errors. Every refinement wraps ErrImage.
var (
	ErrImage           = errors.New("loader: invalid image")
	ErrEmptyImage      = fmt.Errorf("%w: empty image", ErrImage)
	ErrMalformed       = fmt.Errorf("%w: malformed elf", ErrImage)
	ErrWrongImage      = fmt.Errorf("%w: wrong image", ErrImage)
	ErrSegmentUnmapped = fmt.Errorf("%w: segment not mapped", ErrImage)
	ErrEntryUnmapped   = fmt.Errorf("%w: entry address not mapped", ErrImage)
	ErrTooLarge        = fmt.Errorf("%w: file is too large for memory", ErrImage)
	ErrUnknownFormat   = fmt.Errorf("%w: unknown image format", ErrImage)
)

var elfMagic = []byte{0x7F, 'E', 'L', 'F'}

// Segment describes one PT_LOAD segment copied into RAM.
type Segment struct {
	FileOffset uint64
	FileSize   uint64
	MemSize    uint64
	Vaddr      uint64
	Dest       uint32
}

// Image describes a loaded image.
type Image struct {
	Format   string
	Entry    uint32
	Size     int
	Segments []Segment

	// Relocations counts SHT_RELA entries that target a loaded segment.
	// They are reported only; no relocation is ever applied.
	Relocations int

	// Digest is the Keccak-256 hash of the raw image bytes.
	Digest common.Hash
}

// Digest returns the Keccak-256 hash of data.
func Digest(data []byte) common.Hash {
	d := sha3.NewLegacyKeccak256()
	d.Write(data)
	return common.BytesToHash(d.Sum(nil))
}

// Detect returns FormatELF if data starts with the ELF magic, FormatFlat
// otherwise.
func Detect(data []byte) string {
	if bytes.HasPrefix(data, elfMagic) {
		return platform.FormatELF
	}
	return platform.FormatFlat
}

// Load loads data into ram using the loader selected by cfg.Format.
func Load(data []byte, cfg platform.Config, ram *bus.RAM) (*Image, error) {
	format := cfg.Format
	if format == platform.FormatAuto || format == "" {
		format = Detect(data)
	}
	switch format {
	case platform.FormatELF:
		return LoadELF(data, cfg, ram)
	case platform.FormatFlat:
		return LoadFlat(data, cfg, ram)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, cfg.Format)
}

// LoadFlat copies a raw binary to the start of RAM. Execution starts at
// the RAM base.
func LoadFlat(data []byte, cfg platform.Config, ram *bus.RAM) (*Image, error) {
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}
	if uint64(len(data)) > uint64(ram.Size()) {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooLarge, len(data), ram.Size())
	}
	if err := ram.Load(ram.Base(), data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTooLarge, err)
	}
	img := &Image{
		Format: platform.FormatFlat,
		Entry:  ram.Base(),
		Size:   len(data),
		Segments: []Segment{{
			FileSize: uint64(len(data)),
			MemSize:  uint64(len(data)),
			Vaddr:    uint64(ram.Base()),
			Dest:     ram.Base(),
		}},
		Digest: Digest(data),
	}
	loaded(img)
	return img, nil
}

// loaded records metrics and logs a summary for a successfully loaded image.
func loaded(img *Image) {
	metrics.ImagesLoaded.Inc()
	metrics.SegmentsLoaded.Add(int64(len(img.Segments)))
	metrics.ImageBytes.Set(int64(img.Size))

	log.Default().Module("loader").Info("image loaded",
		"format", img.Format,
		"size", img.Size,
		"entry", fmt.Sprintf("0x%08X", img.Entry),
		"segments", len(img.Segments),
		"digest", img.Digest.Hex(),
	)
}
