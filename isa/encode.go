// encode.go implements the inverse of decode.go: field packers for each
// instruction format plus mnemonic helpers for hand-assembled programs.

package isa

// Instruction encoders. Each is the exact inverse of the corresponding
// immediate reconstruction in decode.go; bits of imm that the family cannot
// represent are dropped.

// EncodeR encodes an R-type instruction.
func EncodeR(opcode, rd, funct3, rs1, rs2, funct7 uint32) uint32 {
	return (funct7&0x7F)<<25 | (rs2&0x1F)<<20 | (rs1&0x1F)<<15 |
		(funct3&0x7)<<12 | (rd&0x1F)<<7 | opcode&0x7F
}

// EncodeI encodes an I-type instruction.
func EncodeI(opcode, rd, funct3, rs1 uint32, imm int32) uint32 {
	return uint32(imm&0xFFF)<<20 | (rs1&0x1F)<<15 | (funct3&0x7)<<12 |
		(rd&0x1F)<<7 | opcode&0x7F
}

// EncodeS encodes an S-type instruction.
func EncodeS(opcode, funct3, rs1, rs2 uint32, imm int32) uint32 {
	u := uint32(imm & 0xFFF)
	return (u>>5)<<25 | (rs2&0x1F)<<20 | (rs1&0x1F)<<15 | (funct3&0x7)<<12 |
		(u&0x1F)<<7 | opcode&0x7F
}

// EncodeB encodes a B-type instruction. imm is a byte offset; bit 0 is
// dropped.
func EncodeB(opcode, funct3, rs1, rs2 uint32, imm int32) uint32 {
	u := uint32(imm)
	return ((u>>12)&0x1)<<31 | ((u>>5)&0x3F)<<25 |
		(rs2&0x1F)<<20 | (rs1&0x1F)<<15 | (funct3&0x7)<<12 |
		((u>>1)&0xF)<<8 | ((u>>11)&0x1)<<7 | opcode&0x7F
}

// EncodeU encodes a U-type instruction. The low 12 bits of imm are dropped.
func EncodeU(opcode, rd uint32, imm uint32) uint32 {
	return imm&0xFFFFF000 | (rd&0x1F)<<7 | opcode&0x7F
}

// EncodeJ encodes a J-type instruction. imm is a byte offset; bit 0 is
// dropped.
func EncodeJ(opcode, rd uint32, imm int32) uint32 {
	u := uint32(imm)
	return ((u>>20)&0x1)<<31 | ((u>>1)&0x3FF)<<21 |
		((u>>11)&0x1)<<20 | ((u>>12)&0xFF)<<12 |
		(rd&0x1F)<<7 | opcode&0x7F
}

// --- Mnemonic helpers, used to assemble small programs ---

// LUIInst encodes LUI rd, imm. Only the upper 20 bits of imm are kept.
func LUIInst(rd, imm uint32) uint32 { return EncodeU(OpcodeLui, rd, imm) }

// AUIPCInst encodes AUIPC rd, imm. Only the upper 20 bits of imm are kept.
func AUIPCInst(rd, imm uint32) uint32 { return EncodeU(OpcodeAuipc, rd, imm) }

// JALInst encodes JAL rd, off where off is relative to the instruction.
func JALInst(rd uint32, off int32) uint32 {
	return EncodeJ(OpcodeJal, rd, off)
}

// JALRInst encodes JALR rd, imm(rs1).
func JALRInst(rd, rs1 uint32, imm int32) uint32 {
	return EncodeI(OpcodeJalr, rd, 0, rs1, imm)
}

// BranchInst encodes one of BEQ, BNE, BLT, BGE, BLTU, BGEU.
func BranchInst(op Op, rs1, rs2 uint32, off int32) uint32 {
	var funct3 uint32
	switch op {
	case BEQ:
		funct3 = 0b000
	case BNE:
		funct3 = 0b001
	case BLT:
		funct3 = 0b100
	case BGE:
		funct3 = 0b101
	case BLTU:
		funct3 = 0b110
	case BGEU:
		funct3 = 0b111
	default:
		panic("isa: not a branch: " + op.String())
	}
	return EncodeB(OpcodeBranch, funct3, rs1, rs2, off)
}

// LWInst encodes LW rd, imm(rs1).
func LWInst(rd, rs1 uint32, imm int32) uint32 { return EncodeI(OpcodeLoad, rd, 0b010, rs1, imm) }

// LHUInst encodes LHU rd, imm(rs1).
func LHUInst(rd, rs1 uint32, imm int32) uint32 { return EncodeI(OpcodeLoad, rd, 0b101, rs1, imm) }

// SWInst encodes SW rs2, imm(rs1). The value register comes first, as in
// assembly.
func SWInst(rs2, rs1 uint32, imm int32) uint32 { return EncodeS(OpcodeStore, 0b010, rs1, rs2, imm) }

// ADDIInst encodes ADDI rd, rs1, imm.
func ADDIInst(rd, rs1 uint32, imm int32) uint32 { return EncodeI(OpcodeOpImm, rd, 0b000, rs1, imm) }

// SLTIUInst encodes SLTIU rd, rs1, imm.
func SLTIUInst(rd, rs1 uint32, imm int32) uint32 { return EncodeI(OpcodeOpImm, rd, 0b011, rs1, imm) }

// XORIInst encodes XORI rd, rs1, imm.
func XORIInst(rd, rs1 uint32, imm int32) uint32 { return EncodeI(OpcodeOpImm, rd, 0b100, rs1, imm) }

// ANDIInst encodes ANDI rd, rs1, imm.
func ANDIInst(rd, rs1 uint32, imm int32) uint32 { return EncodeI(OpcodeOpImm, rd, 0b111, rs1, imm) }

// SLLIInst encodes SLLI rd, rs1, shamt.
func SLLIInst(rd, rs1, shamt uint32) uint32 {
	return EncodeR(OpcodeOpImm, rd, 0b001, rs1, shamt, Funct7Base)
}

// SRLIInst encodes SRLI rd, rs1, shamt.
func SRLIInst(rd, rs1, shamt uint32) uint32 {
	return EncodeR(OpcodeOpImm, rd, 0b101, rs1, shamt, Funct7Base)
}

// SRAIInst encodes SRAI rd, rs1, shamt.
func SRAIInst(rd, rs1, shamt uint32) uint32 {
	return EncodeR(OpcodeOpImm, rd, 0b101, rs1, shamt, Funct7Alt)
}

// RegInst encodes a register-register ALU operation.
func RegInst(op Op, rd, rs1, rs2 uint32) uint32 {
	funct7 := Funct7Base
	var funct3 uint32
	switch op {
	case ADD:
	case SUB:
		funct7 = Funct7Alt
	case SLL:
		funct3 = 0b001
	case SLT:
		funct3 = 0b010
	case SLTU:
		funct3 = 0b011
	case XOR:
		funct3 = 0b100
	case SRL:
		funct3 = 0b101
	case SRA:
		funct3, funct7 = 0b101, Funct7Alt
	case OR:
		funct3 = 0b110
	case AND:
		funct3 = 0b111
	default:
		panic("isa: not a register op: " + op.String())
	}
	return EncodeR(OpcodeOp, rd, funct3, rs1, rs2, funct7)
}

// Fixed encodings of the SYSTEM and MISC-MEM instructions used in tests.
const (
	ECALLInst  uint32 = 0x00000073
	EBREAKInst uint32 = 0x00100073
	FENCEInst  uint32 = 0x0FF0000F
)
