package isa

import "fmt"

// String renders the instruction in assembler syntax, e.g. "addi x1, x0, 5".
func (i Instruction) String() string {
	switch i.Op {
	case LUI, AUIPC:
		return fmt.Sprintf("%s x%d, 0x%x", i.Op, i.Rd, uint32(i.Imm)>>12)
	case JAL:
		return fmt.Sprintf("%s x%d, %d", i.Op, i.Rd, i.Imm)
	case JALR, LB, LH, LW, LBU, LHU:
		return fmt.Sprintf("%s x%d, %d(x%d)", i.Op, i.Rd, i.Imm, i.Rs1)
	case BEQ, BNE, BLT, BGE, BLTU, BGEU:
		return fmt.Sprintf("%s x%d, x%d, %d", i.Op, i.Rs1, i.Rs2, i.Imm)
	case SB, SH, SW:
		return fmt.Sprintf("%s x%d, %d(x%d)", i.Op, i.Rs2, i.Imm, i.Rs1)
	case SLLI, SRLI, SRAI:
		return fmt.Sprintf("%s x%d, x%d, %d", i.Op, i.Rd, i.Rs1, i.Imm&0x1F)
	case ADDI, SLTI, SLTIU, XORI, ORI, ANDI:
		return fmt.Sprintf("%s x%d, x%d, %d", i.Op, i.Rd, i.Rs1, i.Imm)
	case ADD, SUB, SLL, SLT, SLTU, XOR, SRL, SRA, OR, AND:
		return fmt.Sprintf("%s x%d, x%d, x%d", i.Op, i.Rd, i.Rs1, i.Rs2)
	case FENCE, ECALL, EBREAK:
		return i.Op.String()
	}
	return fmt.Sprintf("unknown 0x%08x", i.Raw)
}
