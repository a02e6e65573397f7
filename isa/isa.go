// Package isa describes the RV32I base integer instruction set: the closed
// set of operations, their encoding families, and the bit-exact decoding and
// encoding of 32-bit instruction words.
package isa

import "fmt"

// Major opcodes (bits [6:0]) of the RV32I base ISA.
const (
	OpcodeLoad   uint32 = 0b0000011
	OpcodeMisc   uint32 = 0b0001111 // FENCE
	OpcodeOpImm  uint32 = 0b0010011
	OpcodeAuipc  uint32 = 0b0010111
	OpcodeStore  uint32 = 0b0100011
	OpcodeOp     uint32 = 0b0110011
	OpcodeLui    uint32 = 0b0110111
	OpcodeBranch uint32 = 0b1100011
	OpcodeJalr   uint32 = 0b1100111
	OpcodeJal    uint32 = 0b1101111
	OpcodeSystem uint32 = 0b1110011
)

// funct7 values that select between operation variants.
const (
	Funct7Base uint32 = 0b0000000
	Funct7Alt  uint32 = 0b0100000 // SUB, SRA, SRAI
)

// RegCount is the number of general-purpose registers.
const RegCount = 32

// Op identifies a single RV32I operation.
type Op uint8

// RV32I operations.
const (
	OpInvalid Op = iota
	LUI
	AUIPC
	JAL
	JALR
	BEQ
	BNE
	BLT
	BGE
	BLTU
	BGEU
	LB
	LH
	LW
	LBU
	LHU
	SB
	SH
	SW
	ADDI
	SLTI
	SLTIU
	XORI
	ORI
	ANDI
	SLLI
	SRLI
	SRAI
	ADD
	SUB
	SLL
	SLT
	SLTU
	XOR
	SRL
	SRA
	OR
	AND
	FENCE
	ECALL
	EBREAK
	opCount
)

var opNames = [opCount]string{
	OpInvalid: "invalid",
	LUI:       "lui",
	AUIPC:     "auipc",
	JAL:       "jal",
	JALR:      "jalr",
	BEQ:       "beq",
	BNE:       "bne",
	BLT:       "blt",
	BGE:       "bge",
	BLTU:      "bltu",
	BGEU:      "bgeu",
	LB:        "lb",
	LH:        "lh",
	LW:        "lw",
	LBU:       "lbu",
	LHU:       "lhu",
	SB:        "sb",
	SH:        "sh",
	SW:        "sw",
	ADDI:      "addi",
	SLTI:      "slti",
	SLTIU:     "sltiu",
	XORI:      "xori",
	ORI:       "ori",
	ANDI:      "andi",
	SLLI:      "slli",
	SRLI:      "srli",
	SRAI:      "srai",
	ADD:       "add",
	SUB:       "sub",
	SLL:       "sll",
	SLT:       "slt",
	SLTU:      "sltu",
	XOR:       "xor",
	SRL:       "srl",
	SRA:       "sra",
	OR:        "or",
	AND:       "and",
	FENCE:     "fence",
	ECALL:     "ecall",
	EBREAK:    "ebreak",
}

// String returns the lower-case assembler mnemonic.
func (op Op) String() string {
	if op < opCount {
		return opNames[op]
	}
	return fmt.Sprintf("Op(%d)", uint8(op))
}

// Encoding is one of the six RISC-V instruction layouts.
type Encoding uint8

// Encoding families.
const (
	EncodingR Encoding = iota
	EncodingI
	EncodingS
	EncodingB
	EncodingU
	EncodingJ
)

func (e Encoding) String() string {
	switch e {
	case EncodingR:
		return "R"
	case EncodingI:
		return "I"
	case EncodingS:
		return "S"
	case EncodingB:
		return "B"
	case EncodingU:
		return "U"
	case EncodingJ:
		return "J"
	default:
		return fmt.Sprintf("Encoding(%d)", uint8(e))
	}
}
