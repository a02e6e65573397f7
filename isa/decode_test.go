package isa

import (
	"errors"
	"testing"
)

func TestImmediate_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		enc  func(imm int32) uint32
		imms []int32
	}{
		{
			name: "I",
			enc:  func(imm int32) uint32 { return EncodeI(OpcodeOpImm, 1, 0, 2, imm) },
			imms: []int32{0, 1, -1, 5, 2047, -2048, -7},
		},
		{
			name: "S",
			enc:  func(imm int32) uint32 { return EncodeS(OpcodeStore, 0b010, 1, 2, imm) },
			imms: []int32{0, 4, -4, 31, 32, 2047, -2048},
		},
		{
			name: "B",
			enc:  func(imm int32) uint32 { return EncodeB(OpcodeBranch, 0, 1, 2, imm) },
			imms: []int32{0, 2, -2, 8, 2048, 4094, -4096, -8},
		},
		{
			name: "U",
			enc:  func(imm int32) uint32 { return EncodeU(OpcodeLui, 1, uint32(imm)) },
			imms: []int32{0, 0x1000, 0x12345000, -0x1000, -0x80000000},
		},
		{
			name: "J",
			enc:  func(imm int32) uint32 { return EncodeJ(OpcodeJal, 1, imm) },
			imms: []int32{0, 2, -2, 2048, 1048574, -1048576, -4},
		},
	}
	for _, tt := range tests {
		for _, imm := range tt.imms {
			word := tt.enc(imm)
			got, err := Immediate(word)
			if err != nil {
				t.Fatalf("%s imm=%d: Immediate(0x%08x): %v", tt.name, imm, word, err)
			}
			if got != imm {
				t.Errorf("%s: Immediate(0x%08x) = %d, want %d", tt.name, word, got, imm)
			}
		}
	}
}

func TestImmediate_RType(t *testing.T) {
	word := RegInst(ADD, 3, 1, 2)
	_, err := Immediate(word)
	if !errors.Is(err, ErrNoImmediate) {
		t.Fatalf("Immediate(R-type) error = %v, want ErrNoImmediate", err)
	}
	if !errors.Is(err, ErrDecode) {
		t.Fatal("ErrNoImmediate should wrap ErrDecode")
	}
}

func TestImmediate_KnownWords(t *testing.T) {
	tests := []struct {
		word uint32
		want int32
	}{
		{0xFFF00093, -1},          // addi x1, x0, -1
		{0x80000EB7, -0x80000000}, // lui x29, 0x80000
		{0xFE000EE3, -4},          // beq x0, x0, -4
		{0xFFDFF0EF, -4},          // jal x1, -4
		{0xFE112E23, -4},          // sw x1, -4(x2)
	}
	for _, tt := range tests {
		got, err := Immediate(tt.word)
		if err != nil {
			t.Fatalf("Immediate(0x%08x): %v", tt.word, err)
		}
		if got != tt.want {
			t.Errorf("Immediate(0x%08x) = %d, want %d", tt.word, got, tt.want)
		}
	}
}

func TestOpcode_Compressed(t *testing.T) {
	for _, word := range []uint32{0x00000000, 0x00000001, 0x00000002, 0x4505} {
		if _, err := Opcode(word); !errors.Is(err, ErrNotWordInstruction) {
			t.Errorf("Opcode(0x%08x) error = %v, want ErrNotWordInstruction", word, err)
		}
		if _, err := Decode(word); !errors.Is(err, ErrDecode) {
			t.Errorf("Decode(0x%08x) error = %v, want ErrDecode", word, err)
		}
	}
}

func TestDecode_Table(t *testing.T) {
	tests := []struct {
		word uint32
		op   Op
		enc  Encoding
	}{
		{LUIInst(1, 0x12345000), LUI, EncodingU},
		{AUIPCInst(1, 0x1000), AUIPC, EncodingU},
		{JALInst(1, 8), JAL, EncodingJ},
		{JALRInst(0, 1, 0), JALR, EncodingI},
		{BranchInst(BEQ, 1, 2, 8), BEQ, EncodingB},
		{BranchInst(BNE, 1, 2, 8), BNE, EncodingB},
		{BranchInst(BLT, 1, 2, 8), BLT, EncodingB},
		{BranchInst(BGE, 1, 2, 8), BGE, EncodingB},
		{BranchInst(BLTU, 1, 2, 8), BLTU, EncodingB},
		{BranchInst(BGEU, 1, 2, 8), BGEU, EncodingB},
		{EncodeI(OpcodeLoad, 1, 0b000, 2, 0), LB, EncodingI},
		{EncodeI(OpcodeLoad, 1, 0b001, 2, 0), LH, EncodingI},
		{LWInst(1, 2, 0), LW, EncodingI},
		{EncodeI(OpcodeLoad, 1, 0b100, 2, 0), LBU, EncodingI},
		{LHUInst(1, 2, 0), LHU, EncodingI},
		{EncodeS(OpcodeStore, 0b000, 1, 2, 0), SB, EncodingS},
		{EncodeS(OpcodeStore, 0b001, 1, 2, 0), SH, EncodingS},
		{SWInst(1, 2, 0), SW, EncodingS},
		{ADDIInst(1, 2, 3), ADDI, EncodingI},
		{EncodeI(OpcodeOpImm, 1, 0b010, 2, 3), SLTI, EncodingI},
		{SLTIUInst(1, 2, 3), SLTIU, EncodingI},
		{XORIInst(1, 2, 3), XORI, EncodingI},
		{EncodeI(OpcodeOpImm, 1, 0b110, 2, 3), ORI, EncodingI},
		{ANDIInst(1, 2, 3), ANDI, EncodingI},
		{SLLIInst(1, 2, 3), SLLI, EncodingI},
		{SRLIInst(1, 2, 3), SRLI, EncodingI},
		{SRAIInst(1, 2, 3), SRAI, EncodingI},
		{RegInst(ADD, 1, 2, 3), ADD, EncodingR},
		{RegInst(SUB, 1, 2, 3), SUB, EncodingR},
		{RegInst(SLL, 1, 2, 3), SLL, EncodingR},
		{RegInst(SLT, 1, 2, 3), SLT, EncodingR},
		{RegInst(SLTU, 1, 2, 3), SLTU, EncodingR},
		{RegInst(XOR, 1, 2, 3), XOR, EncodingR},
		{RegInst(SRL, 1, 2, 3), SRL, EncodingR},
		{RegInst(SRA, 1, 2, 3), SRA, EncodingR},
		{RegInst(OR, 1, 2, 3), OR, EncodingR},
		{RegInst(AND, 1, 2, 3), AND, EncodingR},
		{FENCEInst, FENCE, EncodingI},
		{ECALLInst, ECALL, EncodingI},
		{EBREAKInst, EBREAK, EncodingI},
	}
	for _, tt := range tests {
		inst, err := Decode(tt.word)
		if err != nil {
			t.Fatalf("Decode(0x%08x) want %s: %v", tt.word, tt.op, err)
		}
		if inst.Op != tt.op {
			t.Errorf("Decode(0x%08x).Op = %s, want %s", tt.word, inst.Op, tt.op)
		}
		if inst.Encoding != tt.enc {
			t.Errorf("Decode(0x%08x).Encoding = %s, want %s", tt.word, inst.Encoding, tt.enc)
		}
	}
}

func TestDecode_Fields(t *testing.T) {
	inst, err := Decode(RegInst(SUB, 7, 12, 31))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if inst.Rd != 7 || inst.Rs1 != 12 || inst.Rs2 != 31 {
		t.Errorf("fields = rd %d rs1 %d rs2 %d, want 7 12 31", inst.Rd, inst.Rs1, inst.Rs2)
	}
	if inst.Funct7 != Funct7Alt || inst.Funct3 != 0 || inst.Opcode != OpcodeOp {
		t.Errorf("funct7=%07b funct3=%03b opcode=%07b", inst.Funct7, inst.Funct3, inst.Opcode)
	}
	if inst.Imm != 0 {
		t.Errorf("R-type Imm = %d, want 0", inst.Imm)
	}
}

func TestDecode_Unknown(t *testing.T) {
	words := []uint32{
		EncodeB(OpcodeBranch, 0b010, 1, 2, 4),           // branch funct3 2
		EncodeI(OpcodeLoad, 1, 0b011, 2, 0),             // ld (RV64)
		EncodeS(OpcodeStore, 0b011, 1, 2, 0),            // sd (RV64)
		EncodeR(OpcodeOp, 1, 0b000, 2, 3, 0b0000001),    // mul
		EncodeR(OpcodeOpImm, 1, 0b101, 2, 3, 0b0010000), // bad shift funct7
		EncodeR(OpcodeOp, 1, 0b001, 2, 3, Funct7Alt),    // no alt sll
		EncodeI(OpcodeSystem, 0, 0b001, 0, 0x300),       // csrrw
		0x0000007F,                                      // reserved opcode
	}
	for _, word := range words {
		_, err := Decode(word)
		if !errors.Is(err, ErrDecode) {
			t.Errorf("Decode(0x%08x) error = %v, want ErrDecode", word, err)
		}
	}
}

func TestEncodingOf_Unknown(t *testing.T) {
	if _, err := EncodingOf(0b1010111); !errors.Is(err, ErrUnknownOpcode) {
		t.Fatalf("EncodingOf(vector opcode) error = %v, want ErrUnknownOpcode", err)
	}
}

func TestInstruction_String(t *testing.T) {
	tests := []struct {
		word uint32
		want string
	}{
		{ADDIInst(1, 0, 5), "addi x1, x0, 5"},
		{RegInst(ADD, 3, 1, 2), "add x3, x1, x2"},
		{SWInst(3, 0, 0), "sw x3, 0(x0)"},
		{LWInst(4, 2, -8), "lw x4, -8(x2)"},
		{BranchInst(BLTU, 1, 2, -4), "bltu x1, x2, -4"},
		{LUIInst(5, 0x03000000), "lui x5, 0x3000"},
		{SRAIInst(1, 2, 31), "srai x1, x2, 31"},
		{ECALLInst, "ecall"},
	}
	for _, tt := range tests {
		inst, err := Decode(tt.word)
		if err != nil {
			t.Fatalf("Decode(0x%08x): %v", tt.word, err)
		}
		if got := inst.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
