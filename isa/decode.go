package isa

import (
	"errors"
	"fmt"
)

// Decode errors. Every refinement wraps ErrDecode.
var (
	ErrDecode             = errors.New("isa: decode failed")
	ErrNotWordInstruction = fmt.Errorf("%w: instruction is not a 32-bit form", ErrDecode)
	ErrUnknownOpcode      = fmt.Errorf("%w: unknown opcode", ErrDecode)
	ErrUnknownInstruction = fmt.Errorf("%w: could not decode instruction", ErrDecode)
	ErrNoImmediate        = fmt.Errorf("%w: r-type instruction does not have an immediate", ErrDecode)
)

// Instruction is a fully decoded instruction word.
type Instruction struct {
	Raw      uint32
	Op       Op
	Encoding Encoding
	Opcode   uint32
	Funct3   uint32
	Funct7   uint32
	Rd       uint32
	Rs1      uint32
	Rs2      uint32
	// Imm is the sign-extended immediate. Zero for R-type instructions.
	Imm int32
}

// Opcode returns bits [6:0] of a 32-bit instruction word. Words whose low
// two bits are not 0b11 belong to the compressed encoding space and are
// rejected.
func Opcode(word uint32) (uint32, error) {
	if word&0b11 != 0b11 {
		return 0, fmt.Errorf("%w: %032b", ErrNotWordInstruction, word)
	}
	return word & 0x7F, nil
}

// Rd returns bits [11:7].
func Rd(word uint32) uint32 { return (word >> 7) & 0x1F }

// Rs1 returns bits [19:15].
func Rs1(word uint32) uint32 { return (word >> 15) & 0x1F }

// Rs2 returns bits [24:20].
func Rs2(word uint32) uint32 { return (word >> 20) & 0x1F }

// Funct3 returns bits [14:12].
func Funct3(word uint32) uint32 { return (word >> 12) & 0x7 }

// Funct7 returns bits [31:25].
func Funct7(word uint32) uint32 { return (word >> 25) & 0x7F }

// EncodingOf returns the encoding family of a major opcode.
func EncodingOf(opcode uint32) (Encoding, error) {
	switch opcode {
	case OpcodeJalr, OpcodeLoad, OpcodeOpImm, OpcodeSystem, OpcodeMisc:
		return EncodingI, nil
	case OpcodeStore:
		return EncodingS, nil
	case OpcodeBranch:
		return EncodingB, nil
	case OpcodeLui, OpcodeAuipc:
		return EncodingU, nil
	case OpcodeJal:
		return EncodingJ, nil
	case OpcodeOp:
		return EncodingR, nil
	}
	return 0, fmt.Errorf("%w: %07b", ErrUnknownOpcode, opcode)
}

// signExtend sign-extends the low bits of v by shifting bit (bits-1) into
// the sign position and arithmetic-shifting it back.
func signExtend(v uint32, bits uint) int32 {
	shift := 32 - bits
	return int32(v<<shift) >> shift
}

// Immediate reconstructs the sign-extended immediate of word according to
// its encoding family.
func Immediate(word uint32) (int32, error) {
	opcode, err := Opcode(word)
	if err != nil {
		return 0, err
	}
	enc, err := EncodingOf(opcode)
	if err != nil {
		return 0, err
	}
	return immediate(word, enc)
}

func immediate(word uint32, enc Encoding) (int32, error) {
	switch enc {
	case EncodingI:
		return int32(word) >> 20, nil
	case EncodingS:
		raw := ((word >> 7) & 0x1F) | // imm[4:0]
			(((word >> 25) & 0x7F) << 5) // imm[11:5]
		return signExtend(raw, 12), nil
	case EncodingB:
		raw := (((word >> 31) & 0x1) << 12) | // imm[12]
			(((word >> 7) & 0x1) << 11) | // imm[11]
			(((word >> 25) & 0x3F) << 5) | // imm[10:5]
			(((word >> 8) & 0xF) << 1) // imm[4:1]
		return signExtend(raw, 13), nil
	case EncodingU:
		return int32(word & 0xFFFFF000), nil
	case EncodingJ:
		raw := (((word >> 31) & 0x1) << 20) | // imm[20]
			(((word >> 12) & 0xFF) << 12) | // imm[19:12]
			(((word >> 20) & 0x1) << 11) | // imm[11]
			(((word >> 21) & 0x3FF) << 1) // imm[10:1]
		return signExtend(raw, 21), nil
	}
	return 0, fmt.Errorf("%w: %032b", ErrNoImmediate, word)
}

// Lookup classifies a word by (opcode, funct3, funct7) against the RV32I
// operation table.
func Lookup(word uint32) (Op, error) {
	opcode, err := Opcode(word)
	if err != nil {
		return OpInvalid, err
	}
	funct3 := Funct3(word)
	funct7 := Funct7(word)

	op := OpInvalid
	switch opcode {
	case OpcodeLui:
		op = LUI
	case OpcodeAuipc:
		op = AUIPC
	case OpcodeJal:
		op = JAL
	case OpcodeJalr:
		if funct3 == 0 {
			op = JALR
		}
	case OpcodeBranch:
		op = [8]Op{BEQ, BNE, OpInvalid, OpInvalid, BLT, BGE, BLTU, BGEU}[funct3]
	case OpcodeLoad:
		op = [8]Op{LB, LH, LW, OpInvalid, LBU, LHU, OpInvalid, OpInvalid}[funct3]
	case OpcodeStore:
		op = [8]Op{SB, SH, SW, OpInvalid, OpInvalid, OpInvalid, OpInvalid, OpInvalid}[funct3]
	case OpcodeOpImm:
		switch {
		case funct3 == 0b001 && funct7 == Funct7Base:
			op = SLLI
		case funct3 == 0b101 && funct7 == Funct7Base:
			op = SRLI
		case funct3 == 0b101 && funct7 == Funct7Alt:
			op = SRAI
		case funct3 != 0b001 && funct3 != 0b101:
			op = [8]Op{ADDI, OpInvalid, SLTI, SLTIU, XORI, OpInvalid, ORI, ANDI}[funct3]
		}
	case OpcodeOp:
		switch funct7 {
		case Funct7Base:
			op = [8]Op{ADD, SLL, SLT, SLTU, XOR, SRL, OR, AND}[funct3]
		case Funct7Alt:
			switch funct3 {
			case 0b000:
				op = SUB
			case 0b101:
				op = SRA
			}
		}
	case OpcodeMisc:
		if funct3 == 0 {
			op = FENCE
		}
	case OpcodeSystem:
		if funct3 == 0 {
			switch word >> 20 {
			case 0:
				op = ECALL
			case 1:
				op = EBREAK
			}
		}
	}
	if op == OpInvalid {
		return OpInvalid, fmt.Errorf("%w: %032b", ErrUnknownInstruction, word)
	}
	return op, nil
}

// Decode classifies word and extracts all of its fields.
func Decode(word uint32) (Instruction, error) {
	op, err := Lookup(word)
	if err != nil {
		return Instruction{}, err
	}
	opcode := word & 0x7F
	enc, err := EncodingOf(opcode)
	if err != nil {
		return Instruction{}, err
	}
	inst := Instruction{
		Raw:      word,
		Op:       op,
		Encoding: enc,
		Opcode:   opcode,
		Funct3:   Funct3(word),
		Funct7:   Funct7(word),
		Rd:       Rd(word),
		Rs1:      Rs1(word),
		Rs2:      Rs2(word),
	}
	if enc != EncodingR {
		// Cannot fail: enc is never R here.
		inst.Imm, _ = immediate(word, enc)
	}
	return inst, nil
}
