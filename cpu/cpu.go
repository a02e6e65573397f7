// Package cpu implements the RV32I execution engine. A CPU owns the program
// counter, the register file and the board's address space, and advances
// one instruction per Step.
package cpu

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/calebfletcher/OrkaRV/bus"
	"github.com/calebfletcher/OrkaRV/isa"
	"github.com/calebfletcher/OrkaRV/loader"
	"github.com/calebfletcher/OrkaRV/log"
	"github.com/calebfletcher/OrkaRV/metrics"
	"github.com/calebfletcher/OrkaRV/platform"
)

// Execution errors.
var (
	ErrUnsupportedOperation = errors.New("cpu: unsupported operation")
	ErrStepLimit            = errors.New("cpu: step limit reached")
)

// ctxCheckInterval is how many steps Run executes between context checks.
const ctxCheckInterval = 4096

// CPU is a single RV32I hart attached to a board.
type CPU struct {
	pc    uint32
	regs  Registers
	steps uint64

	board *platform.Board
	image *loader.Image

	trace  *Trace
	logger *log.Logger
}

// New creates a CPU on board with pc set to entry. The board's memory is
// used as is.
func New(board *platform.Board, entry uint32) *CPU {
	return &CPU{
		pc:     entry,
		board:  board,
		logger: log.Default().Module("cpu"),
	}
}

// FromImage builds a fresh board from cfg, loads data with the loader cfg
// selects and returns a CPU positioned at the image entry point.
func FromImage(data []byte, cfg platform.Config) (*CPU, error) {
	board, err := platform.NewBoard(cfg)
	if err != nil {
		return nil, err
	}
	img, err := loader.Load(data, cfg, board.RAM)
	if err != nil {
		return nil, err
	}
	c := New(board, img.Entry)
	c.image = img
	return c, nil
}

// FromELF is FromImage with the ELF loader.
func FromELF(data []byte, cfg platform.Config) (*CPU, error) {
	cfg.Format = platform.FormatELF
	return FromImage(data, cfg)
}

// FromFlat is FromImage with the flat binary loader.
func FromFlat(data []byte, cfg platform.Config) (*CPU, error) {
	cfg.Format = platform.FormatFlat
	return FromImage(data, cfg)
}

// SetLogger replaces the logger used for per-step debug output.
func (c *CPU) SetLogger(l *log.Logger) {
	if l != nil {
		c.logger = l
	}
}

// SetTrace attaches t to record every subsequent step. A nil t stops
// recording.
func (c *CPU) SetTrace(t *Trace) { c.trace = t }

// Trace returns the attached trace recorder, if any.
func (c *CPU) Trace() *Trace { return c.trace }

// PC returns the address of the next instruction.
func (c *CPU) PC() uint32 { return c.pc }

// Reg returns register xi.
func (c *CPU) Reg(i uint32) uint32 { return c.regs.Get(i) }

// Registers returns a copy of the register file.
func (c *CPU) Registers() Registers { return c.regs }

// Steps returns the number of instructions retired so far.
func (c *CPU) Steps() uint64 { return c.steps }

// Board returns the board the CPU is attached to.
func (c *CPU) Board() *platform.Board { return c.board }

// Image describes the loaded image. It is nil for a CPU built with New.
func (c *CPU) Image() *loader.Image { return c.image }

// Status returns the status last written to the debug peripheral. ok is
// false while the firmware is still running.
func (c *CPU) Status() (status bus.Status, ok bool) {
	return c.board.Debug.Status()
}

// State is a point-in-time copy of the architectural state.
type State struct {
	PC        uint32
	Steps     uint64
	Status    string
	Registers Registers
}

// Snapshot returns the current architectural state.
func (c *CPU) Snapshot() State {
	s := State{PC: c.pc, Steps: c.steps, Registers: c.regs, Status: "running"}
	if st, ok := c.Status(); ok {
		s.Status = st.String()
	}
	return s
}

// Run steps the CPU until the firmware reports a status, a step fails,
// maxSteps steps have run (0 means no limit) or ctx is cancelled.
func (c *CPU) Run(ctx context.Context, maxSteps uint64) (bus.Status, error) {
	timer := metrics.NewTimer(metrics.RunDuration)
	start := c.steps
	defer func() {
		timer.Stop()
		metrics.RunSteps.Set(int64(c.steps - start))
	}()

	for n := uint64(0); ; n++ {
		if st, ok := c.Status(); ok {
			return st, nil
		}
		if maxSteps > 0 && n >= maxSteps {
			return 0, fmt.Errorf("%w: %d steps at pc %08X", ErrStepLimit, maxSteps, c.pc)
		}
		if n%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
		}
		if err := c.Step(); err != nil {
			return 0, err
		}
	}
}

// Step runs one fetch, decode, execute and advance cycle. A failed step
// leaves pc and the register file unchanged.
func (c *CPU) Step() error {
	pc := c.pc
	word, err := c.board.Space.Fetch(pc)
	if err != nil {
		return c.fault(err)
	}
	inst, err := isa.Decode(word)
	if err != nil {
		return c.fault(fmt.Errorf("at %08X: %w", pc, err))
	}

	if c.logger.Enabled(slog.LevelDebug) {
		c.logger.Debug("step",
			"pc", fmt.Sprintf("%08X", pc),
			"inst", inst.String(),
			"imm", inst.Imm,
			"rd", inst.Rd,
			"rs1", inst.Rs1,
			"rs2", inst.Rs2,
		)
	}

	fx, err := c.execute(pc, inst)
	if err != nil {
		return c.fault(fmt.Errorf("%s at %08X: %w", inst.Op, pc, err))
	}

	// Commit.
	if fx.writeRd {
		c.regs.Set(inst.Rd, fx.rdValue)
	}
	c.pc = fx.next
	c.steps++

	metrics.InstructionsRetired.Inc()
	if fx.taken {
		metrics.BranchesTaken.Inc()
	}
	if fx.mem != nil {
		if fx.mem.Write {
			metrics.MemoryStores.Inc()
		} else {
			metrics.MemoryLoads.Inc()
		}
	}
	if c.trace != nil {
		c.trace.record(pc, word, inst.Rd, fx)
	}
	return nil
}

func (c *CPU) fault(err error) error {
	metrics.StepErrors.Inc()
	return err
}

// effect is the outcome of executing one instruction, applied by Step only
// once execution has succeeded.
type effect struct {
	next    uint32
	writeRd bool
	rdValue uint32
	taken   bool
	mem     *MemOp
}

func (fx *effect) setRd(v uint32) {
	fx.writeRd = true
	fx.rdValue = v
}

func (fx *effect) jump(target uint32) {
	fx.next = target
	fx.taken = true
}

func b2u(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

// execute evaluates inst at pc. rs1 and rs2 are read before any register
// is written; stores are the only side effect applied here.
func (c *CPU) execute(pc uint32, inst isa.Instruction) (effect, error) {
	fx := effect{next: pc + 4}
	a := c.regs.Get(inst.Rs1)
	b := c.regs.Get(inst.Rs2)
	imm := uint32(inst.Imm)

	switch inst.Op {
	case isa.LUI:
		fx.setRd(imm)
	case isa.AUIPC:
		fx.setRd(pc + imm)

	case isa.JAL:
		fx.setRd(pc + 4)
		fx.jump((pc + imm) &^ 1)
	case isa.JALR:
		fx.setRd(pc + 4)
		fx.jump((a + imm) &^ 1)

	case isa.BEQ, isa.BNE, isa.BLT, isa.BGE, isa.BLTU, isa.BGEU:
		if branchTaken(inst.Op, a, b) {
			fx.jump(pc + imm)
		}

	case isa.LW, isa.LHU:
		addr := a + imm
		v, err := c.board.Space.Read(addr)
		if err != nil {
			return fx, err
		}
		if inst.Op == isa.LHU {
			v &= 0xFFFF
		}
		fx.setRd(v)
		fx.mem = &MemOp{Addr: addr, Value: v}

	case isa.SW:
		addr := a + imm
		if err := c.board.Space.Write(addr, b); err != nil {
			return fx, err
		}
		fx.mem = &MemOp{Addr: addr, Value: b, Write: true}

	case isa.ADDI:
		fx.setRd(a + imm)
	case isa.SLTIU:
		fx.setRd(b2u(a < imm))
	case isa.XORI:
		fx.setRd(a ^ imm)
	case isa.ANDI:
		fx.setRd(a & imm)
	case isa.SLLI:
		fx.setRd(a << (imm & 0x1F))
	case isa.SRLI:
		fx.setRd(a >> (imm & 0x1F))
	case isa.SRAI:
		fx.setRd(uint32(int32(a) >> (imm & 0x1F)))

	case isa.ADD:
		fx.setRd(a + b)
	case isa.SUB:
		fx.setRd(a - b)
	case isa.SLL:
		fx.setRd(a << (b & 0x1F))
	case isa.SLT:
		fx.setRd(b2u(int32(a) < int32(b)))
	case isa.SLTU:
		fx.setRd(b2u(a < b))
	case isa.XOR:
		fx.setRd(a ^ b)
	case isa.SRL:
		fx.setRd(a >> (b & 0x1F))
	case isa.SRA:
		fx.setRd(uint32(int32(a) >> (b & 0x1F)))
	case isa.OR:
		fx.setRd(a | b)
	case isa.AND:
		fx.setRd(a & b)

	default:
		// LB, LH, LBU, SB, SH, SLTI, ORI, FENCE, ECALL, EBREAK.
		return fx, fmt.Errorf("%w: %s", ErrUnsupportedOperation, inst.Op)
	}
	return fx, nil
}

func branchTaken(op isa.Op, a, b uint32) bool {
	switch op {
	case isa.BEQ:
		return a == b
	case isa.BNE:
		return a != b
	case isa.BLT:
		return int32(a) < int32(b)
	case isa.BGE:
		return int32(a) >= int32(b)
	case isa.BLTU:
		return a < b
	case isa.BGEU:
		return a >= b
	}
	return false
}
