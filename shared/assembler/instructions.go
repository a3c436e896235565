package assembler

import (
	dubcc "dubcc/shared"
)

// directForm reports whether an operand in mode m selects the direct
// opcode of op rather than its memory form. st stores through its
// operand, so for st a symbol read as memory selects the direct form.
func directForm(op dubcc.Mnemonic, m AddressMode) bool {
	if op == dubcc.InstSt {
		return m == ModeRegisterDirect || m == ModeImmediate || m == ModeSymbolicIndirect
	}
	return m == ModeRegisterDirect || m == ModeImmediate || m == ModeSymbolic
}

func pickOpcode(in dubcc.Instruction, op Operand) byte {
	if directForm(in.Op, op.Mode) {
		return in.Opcode
	}
	return in.Indirect
}

// expect checks args against one predicate per position.
func (info *Info) expect(mnemonic string, args []Token, shape ...func(TokenKind) bool) error {
	if len(args) != len(shape) {
		return info.errorf(dubcc.ErrSyntax, mnemonic+" "+joinTokens(args))
	}
	for i, ok := range shape {
		if !ok(args[i].Kind) {
			return info.errorf(dubcc.ErrSyntax, args[i].Text)
		}
	}
	return nil
}

// registers resolves the register tokens at the given positions.
func (info *Info) registers(args []Token, at ...int) ([]byte, error) {
	out := make([]byte, len(at))
	for i, pos := range at {
		reg, err := info.register(args[pos])
		if err != nil {
			return nil, err
		}
		out[i] = reg
	}
	return out, nil
}

func (info *Info) encodeInstruction(head Token, args []Token) error {
	in, err := info.instruction(head.Text)
	if err != nil {
		return err
	}
	if info.current == nil {
		return info.errorf(dubcc.ErrNoSection, head.Text)
	}

	var (
		f       = dubcc.Fields{Opcode: in.Opcode}
		literal uint32
	)
	switch in.Op {
	case dubcc.InstHalt, dubcc.InstInt, dubcc.InstIret, dubcc.InstRet:
		if err := info.expect(in.Name, args); err != nil {
			return err
		}

	case dubcc.InstCall, dubcc.InstJmp:
		if err := info.expect(in.Name, args, isOperand); err != nil {
			return err
		}
		op, err := info.jumpOperand(args[0])
		if err != nil {
			return err
		}
		f.Opcode = pickOpcode(in, op)
		f.A, literal = op.Reg, op.Value

	case dubcc.InstBeq, dubcc.InstBne, dubcc.InstBgt:
		if err := info.expect(in.Name, args, isGPR, isComma, isGPR, isComma, isOperand); err != nil {
			return err
		}
		regs, err := info.registers(args, 0, 2)
		if err != nil {
			return err
		}
		op, err := info.jumpOperand(args[4])
		if err != nil {
			return err
		}
		f.Opcode = pickOpcode(in, op)
		f.A, f.B, f.C, literal = op.Reg, regs[0], regs[1], op.Value

	case dubcc.InstPush:
		if err := info.expect(in.Name, args, isGPR); err != nil {
			return err
		}
		regs, err := info.registers(args, 0)
		if err != nil {
			return err
		}
		f.A, f.C, f.Disp = dubcc.RegSP, regs[0], 1

	case dubcc.InstPop:
		if err := info.expect(in.Name, args, isGPR); err != nil {
			return err
		}
		regs, err := info.registers(args, 0)
		if err != nil {
			return err
		}
		f.A, f.B, f.Disp = regs[0], dubcc.RegSP, -1

	case dubcc.InstXchg:
		if err := info.expect(in.Name, args, isGPR, isComma, isGPR); err != nil {
			return err
		}
		regs, err := info.registers(args, 0, 2)
		if err != nil {
			return err
		}
		f.B, f.C = regs[0], regs[1]

	case dubcc.InstAdd, dubcc.InstSub, dubcc.InstMul, dubcc.InstDiv,
		dubcc.InstAnd, dubcc.InstOr, dubcc.InstXor, dubcc.InstShl, dubcc.InstShr:
		if err := info.expect(in.Name, args, isGPR, isComma, isGPR); err != nil {
			return err
		}
		regs, err := info.registers(args, 0, 2)
		if err != nil {
			return err
		}
		// gprD <= gprD op gprS
		f.A, f.B, f.C = regs[1], regs[1], regs[0]

	case dubcc.InstNot:
		if err := info.expect(in.Name, args, isGPR); err != nil {
			return err
		}
		regs, err := info.registers(args, 0)
		if err != nil {
			return err
		}
		f.A, f.B = regs[0], regs[0]

	case dubcc.InstLd:
		if err := info.expect(in.Name, args, isOperand, isComma, isGPR); err != nil {
			return err
		}
		regs, err := info.registers(args, 2)
		if err != nil {
			return err
		}
		op, err := info.dataOperand(args[0])
		if err != nil {
			return err
		}
		f.Opcode = pickOpcode(in, op)
		f.A, f.B, literal = regs[0], op.Reg, op.Value

	case dubcc.InstSt:
		if err := info.expect(in.Name, args, isGPR, isComma, isOperand); err != nil {
			return err
		}
		regs, err := info.registers(args, 0)
		if err != nil {
			return err
		}
		op, err := info.dataOperand(args[2])
		if err != nil {
			return err
		}
		f.Opcode = pickOpcode(in, op)
		f.A, f.C, literal = op.Reg, regs[0], op.Value

	case dubcc.InstCsrrd:
		if err := info.expect(in.Name, args, isCSR, isComma, isGPR); err != nil {
			return err
		}
		regs, err := info.registers(args, 0, 2)
		if err != nil {
			return err
		}
		f.A, f.B = regs[1], regs[0]

	case dubcc.InstCsrwr:
		if err := info.expect(in.Name, args, isGPR, isComma, isCSR); err != nil {
			return err
		}
		regs, err := info.registers(args, 0, 2)
		if err != nil {
			return err
		}
		f.A, f.B = regs[1], regs[0]

	default:
		return info.errorf(dubcc.ErrInternal, in.Name)
	}

	info.current.AppendBytes(dubcc.Encode(in, f, literal)...)
	return nil
}
