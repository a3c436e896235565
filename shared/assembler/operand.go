package assembler

import (
	"regexp"
	"strings"

	dubcc "dubcc/shared"
	"dubcc/shared/dulf"
)

type AddressMode byte

const (
	ModeNone AddressMode = iota
	ModeImmediate
	ModeDirect
	ModeRegisterDirect
	ModeRegisterIndirect
	ModeRegisterIndirectLiteral // [reg + literal]
	ModeRegisterIndirectSymbol  // [reg + symbol]
	ModeSymbolic                // address of a symbol
	ModeSymbolicIndirect        // contents of the word at a symbol
)

// Operand is a resolved operand. Reg fills the instruction word, Value
// goes to the literal pool.
type Operand struct {
	Mode  AddressMode
	Reg   byte
	Value uint32
}

const regPattern = `%(r\d{1,2}|sp|pc)`

var (
	reRegInd       = regexp.MustCompile(`^\[\s*` + regPattern + `\s*\]$`)
	reRegIndHex    = regexp.MustCompile(`^\[\s*` + regPattern + `\s*\+\s*(0x[0-9a-fA-F]+)\s*\]$`)
	reRegIndDec    = regexp.MustCompile(`^\[\s*` + regPattern + `\s*\+\s*(\d+)\s*\]$`)
	reRegIndSymbol = regexp.MustCompile(`^\[\s*` + regPattern + `\s*\+\s*([a-zA-Z_]\w*)\s*\]$`)
)

func isGPR(k TokenKind) bool { return k == TokRegister || k == TokRegisterSpecial }

func isCSR(k TokenKind) bool { return k == TokStatusRegister }

func isComma(k TokenKind) bool { return k == TokComma }

func isSymbol(k TokenKind) bool { return k == TokSymbol }

func isNumber(k TokenKind) bool {
	return k == TokDecimal || k == TokHex || k == TokDecimalIndirect || k == TokHexIndirect
}

func isOperand(k TokenKind) bool {
	switch k {
	case TokRegisterIndirect, TokRegister, TokRegisterSpecial,
		TokDecimal, TokHex, TokDecimalIndirect, TokHexIndirect,
		TokSymbol, TokSymbolIndirect:
		return true
	}
	return false
}

// register resolves a register token to its number.
func (info *Info) register(tok Token) (byte, error) {
	reg, found := info.isa.Registers[strings.TrimPrefix(tok.Text, "%")]
	if !found {
		return 0, info.errorf(dubcc.ErrOperandTooLarge, tok.Text)
	}
	return reg.Address, nil
}

// jumpOperand resolves the target of call, jmp and the branches. Only
// literals and symbols are accepted; a '$' makes the jump go through the
// word at that address.
func (info *Info) jumpOperand(tok Token) (Operand, error) {
	switch tok.Kind {
	case TokDecimalIndirect, TokHexIndirect:
		v, err := info.number(tok)
		return Operand{Mode: ModeImmediate, Value: v}, err
	case TokDecimal, TokHex:
		v, err := info.number(tok)
		return Operand{Mode: ModeDirect, Value: v}, err
	case TokSymbol, TokSymbolIndirect:
		sym, err := info.lookup(tok.Text)
		if err != nil {
			return Operand{}, err
		}
		info.addRelocation(tok.Text, dulf.RelocSymbol, info.writePos()+dubcc.LiteralPoolOffset)
		mode := ModeSymbolic
		if tok.Kind == TokSymbolIndirect {
			mode = ModeSymbolicIndirect
		}
		return Operand{Mode: mode, Value: sym.Value}, nil
	}
	return Operand{}, info.errorf(dubcc.ErrUnsupportedJumpOperand, tok.Text)
}

// dataOperand resolves the memory or register operand of ld and st.
func (info *Info) dataOperand(tok Token) (Operand, error) {
	switch tok.Kind {
	case TokRegisterIndirect:
		return info.indirectOperand(tok)
	case TokDecimal, TokHex:
		v, err := info.number(tok)
		return Operand{Mode: ModeImmediate, Value: v}, err
	case TokDecimalIndirect, TokHexIndirect:
		v, err := info.number(tok)
		return Operand{Mode: ModeDirect, Value: v}, err
	case TokRegister, TokRegisterSpecial:
		reg, err := info.register(tok)
		return Operand{Mode: ModeRegisterDirect, Reg: reg}, err
	case TokSymbol:
		sym, err := info.lookup(tok.Text)
		if err != nil {
			return Operand{}, err
		}
		info.addRelocation(tok.Text, dulf.RelocSymbolIndirect, info.writePos()+dubcc.LiteralPoolOffset)
		return Operand{Mode: ModeSymbolicIndirect, Value: sym.Value}, nil
	case TokSymbolIndirect:
		sym, err := info.lookup(tok.Text)
		if err != nil {
			return Operand{}, err
		}
		info.addRelocation(tok.Text, dulf.RelocSymbol, info.writePos()+dubcc.LiteralPoolOffset)
		return Operand{Mode: ModeSymbolic, Value: sym.Value}, nil
	}
	return Operand{}, info.errorf(dubcc.ErrSyntax, tok.Text)
}

func (info *Info) indirectOperand(tok Token) (Operand, error) {
	regOf := func(name string) (byte, error) {
		return info.register(Token{Kind: TokRegister, Text: "%" + name})
	}

	if m := reRegInd.FindStringSubmatch(tok.Text); m != nil {
		reg, err := regOf(m[1])
		return Operand{Mode: ModeRegisterIndirect, Reg: reg}, err
	}
	for _, re := range []*regexp.Regexp{reRegIndHex, reRegIndDec} {
		m := re.FindStringSubmatch(tok.Text)
		if m == nil {
			continue
		}
		reg, err := regOf(m[1])
		if err != nil {
			return Operand{}, err
		}
		v, err := info.number(Token{Kind: TokDecimalIndirect, Text: m[2]})
		return Operand{Mode: ModeRegisterIndirectLiteral, Reg: reg, Value: v}, err
	}
	if m := reRegIndSymbol.FindStringSubmatch(tok.Text); m != nil {
		reg, err := regOf(m[1])
		if err != nil {
			return Operand{}, err
		}
		sym, err := info.lookup(m[2])
		if err != nil {
			return Operand{}, err
		}
		if int64(sym.Value) > dubcc.DispMax {
			return Operand{}, info.errorf(dubcc.ErrOperandTooLarge, m[2])
		}
		info.addRelocation(m[2], dulf.RelocSymbol, info.writePos()+dubcc.LiteralPoolOffset)
		return Operand{Mode: ModeRegisterIndirectSymbol, Reg: reg, Value: sym.Value}, nil
	}
	return Operand{}, info.errorf(dubcc.ErrSyntax, tok.Text)
}
