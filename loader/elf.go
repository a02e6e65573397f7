// elf.go implements the ELF32 loader: header validation, PT_LOAD segment
// placement with zero-filled bss, and relocation detection.

package loader

import (
	"bytes"
	"debug/elf"
	"fmt"

	"github.com/calebfletcher/OrkaRV/bus"
	"github.com/calebfletcher/OrkaRV/log"
	"github.com/calebfletcher/OrkaRV/platform"
)

// elf32RelaSize is sizeof(Elf32_Rela).
const elf32RelaSize = 12

// LoadELF validates an RV32 executable, copies its PT_LOAD segments into
// ram at LoadOffset+p_vaddr and returns the entry point LoadOffset+e_entry.
//
// Relocations are never applied: only statically linked, non-relocatable
// executables are supported. SHT_RELA entries that target a loaded segment
// are counted and reported in Image.Relocations.
func LoadELF(data []byte, cfg platform.Config, ram *bus.RAM) (*Image, error) {
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}
	f, err := elf.NewFile(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	defer f.Close()

	if f.Class != elf.ELFCLASS32 {
		return nil, fmt.Errorf("%w: elf of class %v was not 32-bit", ErrWrongImage, f.Class)
	}
	if f.Data != elf.ELFDATA2LSB {
		return nil, fmt.Errorf("%w: elf of encoding %v was not little-endian", ErrWrongImage, f.Data)
	}
	if f.Type != elf.ET_EXEC {
		return nil, fmt.Errorf("%w: elf of type %v was not an executable", ErrWrongImage, f.Type)
	}
	if f.Machine != elf.EM_RISCV {
		return nil, fmt.Errorf("%w: elf of arch %v was not RISC-V", ErrWrongImage, f.Machine)
	}

	logger := log.Default().Module("loader")
	img := &Image{
		Format: platform.FormatELF,
		Size:   len(data),
		Digest: Digest(data),
	}

	for _, p := range f.Progs {
		logger.Debug("program header",
			"type", p.Type.String(),
			"offset", fmt.Sprintf("0x%08X", p.Off),
			"vaddr", fmt.Sprintf("0x%08X", p.Vaddr),
			"paddr", fmt.Sprintf("0x%08X", p.Paddr),
			"filesz", fmt.Sprintf("0x%08X", p.Filesz),
			"memsz", fmt.Sprintf("0x%08X", p.Memsz),
			"flags", p.Flags.String(),
			"align", p.Align,
		)
		if p.Type != elf.PT_LOAD {
			continue
		}
		seg, err := loadSegment(p, cfg.LoadOffset, ram)
		if err != nil {
			return nil, err
		}
		img.Segments = append(img.Segments, seg)
	}

	img.Relocations = countRelocations(f, img.Segments)
	if img.Relocations > 0 {
		logger.Warn("relocations present but not applied", "entries", img.Relocations)
	}

	entry := uint64(cfg.LoadOffset) + f.Entry
	if entry > 0xFFFFFFFF || !ram.Contains(uint32(entry)) {
		return nil, fmt.Errorf("%w: 0x%X", ErrEntryUnmapped, entry)
	}
	img.Entry = uint32(entry)

	loaded(img)
	return img, nil
}

// loadSegment copies one PT_LOAD segment and zero-fills its tail. The whole
// memory image of the segment must fit in RAM; nothing is truncated.
func loadSegment(p *elf.Prog, offset uint32, ram *bus.RAM) (Segment, error) {
	seg := Segment{
		FileOffset: p.Off,
		FileSize:   p.Filesz,
		MemSize:    p.Memsz,
		Vaddr:      p.Vaddr,
	}
	size := max(p.Filesz, p.Memsz)
	dest := uint64(offset) + p.Vaddr
	ramEnd := uint64(ram.Base()) + uint64(ram.Size())
	if dest < uint64(ram.Base()) || dest+size > ramEnd {
		return seg, fmt.Errorf("%w: [0x%X,+0x%X) outside ram [0x%08X,0x%X)",
			ErrSegmentUnmapped, dest, size, ram.Base(), ramEnd)
	}
	seg.Dest = uint32(dest)

	if p.Filesz > 0 {
		buf := make([]byte, p.Filesz)
		if _, err := p.ReadAt(buf, 0); err != nil {
			return seg, fmt.Errorf("%w: read segment at 0x%X: %v", ErrMalformed, p.Off, err)
		}
		if err := ram.Load(seg.Dest, buf); err != nil {
			return seg, fmt.Errorf("%w: %v", ErrSegmentUnmapped, err)
		}
	}
	if p.Memsz > p.Filesz {
		if err := ram.Zero(seg.Dest+uint32(p.Filesz), p.Memsz-p.Filesz); err != nil {
			return seg, fmt.Errorf("%w: %v", ErrSegmentUnmapped, err)
		}
	}
	return seg, nil
}

// countRelocations counts the entries of every SHT_RELA section whose
// target section (sh_info) starts inside the file range of a loaded
// segment. Dynamic relocation sections have sh_info 0, the null section,
// and are not tied to any loaded bytes.
func countRelocations(f *elf.File, segs []Segment) int {
	count := 0
	for _, s := range f.Sections {
		if s.Type != elf.SHT_RELA {
			continue
		}
		if s.Info == 0 || int(s.Info) >= len(f.Sections) {
			continue
		}
		target := f.Sections[s.Info]
		if !inLoadedSegment(target.Offset, segs) {
			continue
		}
		entsize := s.Entsize
		if entsize == 0 {
			entsize = elf32RelaSize
		}
		count += int(s.Size / entsize)
	}
	return count
}

func inLoadedSegment(off uint64, segs []Segment) bool {
	for _, seg := range segs {
		if off >= seg.FileOffset && off < seg.FileOffset+seg.FileSize {
			return true
		}
	}
	return false
}
