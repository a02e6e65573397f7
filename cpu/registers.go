package cpu

import (
	"fmt"
	"strings"

	"github.com/calebfletcher/OrkaRV/isa"
)

// Registers is the integer register file. x0 reads as zero and discards
// writes.
type Registers [isa.RegCount]uint32

// Get returns the value of register i.
func (r *Registers) Get(i uint32) uint32 {
	if i == 0 {
		return 0
	}
	return r[i&0x1F]
}

// Set writes v to register i. Writes to x0 are dropped.
func (r *Registers) Set(i, v uint32) {
	if i == 0 {
		return
	}
	r[i&0x1F] = v
}

// String renders the register file four registers per line.
func (r Registers) String() string {
	var b strings.Builder
	for i, v := range r {
		fmt.Fprintf(&b, "x%-2d %08X", i, v)
		if i%4 == 3 {
			b.WriteByte('\n')
		} else {
			b.WriteString("  ")
		}
	}
	return b.String()
}
