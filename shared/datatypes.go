package dubcc

import "fmt"

type (
	MachineAddress = uint32
	MachineWord    = uint32
)

type ISA struct {
	Instructions map[string]Instruction
	Registers    map[string]*Register
}

func GetDefaultISA() ISA {
	return ISA{
		Instructions: InstMap(),
		Registers:    RegisterInfo(),
	}
}

type RegisterKind byte

const (
	RegKindGeneral RegisterKind = iota
	RegKindControl
)

type Register struct {
	Name    string
	Address byte
	Kind    RegisterKind
	Desc    string
}

const (
	RegSP byte = 14
	RegPC byte = 15
)

const (
	CsrStatus byte = iota
	CsrHandler
	CsrCause
)

const NumGeneralRegisters = 16

// RegisterInfo maps every register spelling accepted by the assembler,
// without its leading '%', to the register it names.
func RegisterInfo() map[string]*Register {
	regs := make(map[string]*Register, NumGeneralRegisters+5)
	for i := 0; i < NumGeneralRegisters; i++ {
		name := fmt.Sprintf("r%d", i)
		regs[name] = &Register{Name: name, Address: byte(i), Kind: RegKindGeneral}
	}
	regs["r14"].Desc = "stack pointer"
	regs["r15"].Desc = "program counter"
	regs["sp"] = &Register{Name: "sp", Address: RegSP, Kind: RegKindGeneral, Desc: "stack pointer"}
	regs["pc"] = &Register{Name: "pc", Address: RegPC, Kind: RegKindGeneral, Desc: "program counter"}

	regs["status"] = &Register{Name: "status", Address: CsrStatus, Kind: RegKindControl, Desc: "processor status"}
	regs["handler"] = &Register{Name: "handler", Address: CsrHandler, Kind: RegKindControl, Desc: "interrupt handler address"}
	regs["cause"] = &Register{Name: "cause", Address: CsrCause, Kind: RegKindControl, Desc: "interrupt cause"}
	return regs
}

// RegisterName is the canonical spelling used by the disassembler.
func RegisterName(kind RegisterKind, addr byte) string {
	if kind == RegKindControl {
		switch addr {
		case CsrStatus:
			return "%status"
		case CsrHandler:
			return "%handler"
		case CsrCause:
			return "%cause"
		}
		return fmt.Sprintf("%%csr%d", addr)
	}
	switch addr {
	case RegSP:
		return "%sp"
	case RegPC:
		return "%pc"
	}
	return fmt.Sprintf("%%r%d", addr)
}
