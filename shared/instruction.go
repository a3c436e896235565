package dubcc

import (
	"encoding/binary"
)

type Mnemonic byte

const (
	InstNone Mnemonic = iota
	InstHalt
	InstInt
	InstIret
	InstCall
	InstRet
	InstJmp
	InstBeq
	InstBne
	InstBgt
	InstPush
	InstPop
	InstXchg
	InstAdd
	InstSub
	InstMul
	InstDiv
	InstNot
	InstAnd
	InstOr
	InstXor
	InstShl
	InstShr
	InstLd
	InstSt
	InstCsrrd
	InstCsrwr
)

// Shape groups instructions that take the same operand layout.
type Shape byte

const (
	ShapeNone        Shape = iota // halt, int, iret, ret
	ShapeJump                     // call, jmp
	ShapeBranch                   // beq, bne, bgt
	ShapeStack                    // push, pop
	ShapeRegReg                   // xchg and the arithmetic/logic ops
	ShapeReg                      // not
	ShapeLoad                     // ld
	ShapeStore                    // st
	ShapeCsrRead                  // csrrd
	ShapeCsrWrite                 // csrwr
)

type Instruction struct {
	Name  string
	Op    Mnemonic
	Shape Shape
	// Opcode is the full first byte (opcode nibble and mode nibble) of the
	// register/direct form, Indirect the one of the memory form. They are
	// equal for instructions with a single form.
	Opcode   byte
	Indirect byte
	Size     uint32
}

// HasLiteral reports whether the encoding carries a literal pool word
// after the instruction word.
func (i Instruction) HasLiteral() bool {
	return i.Size > WordSize
}

// WordLen is the number of bytes of the instruction word itself.
func (i Instruction) WordLen() uint32 {
	return min(i.Size, WordSize)
}

const (
	WordSize = 4
	// LiteralPoolOffset is the distance from the start of an instruction to
	// the literal word that its relocation patches.
	LiteralPoolOffset = 4

	DispBits = 12
	DispMin  = -(1 << (DispBits - 1))
	DispMax  = 1<<(DispBits-1) - 1
)

type inst = Instruction // shorthand for these defs
func InstMap() map[string]Instruction {
	return map[string]Instruction{
		"halt":  inst{Name: "halt", Op: InstHalt, Shape: ShapeNone, Opcode: 0x00, Indirect: 0x00, Size: 1},
		"int":   inst{Name: "int", Op: InstInt, Shape: ShapeNone, Opcode: 0x10, Indirect: 0x10, Size: 1},
		"iret":  inst{Name: "iret", Op: InstIret, Shape: ShapeNone, Opcode: 0x34, Indirect: 0x34, Size: 1},
		"ret":   inst{Name: "ret", Op: InstRet, Shape: ShapeNone, Opcode: 0x3C, Indirect: 0x3C, Size: 1},
		"call":  inst{Name: "call", Op: InstCall, Shape: ShapeJump, Opcode: 0x20, Indirect: 0x21, Size: 8},
		"jmp":   inst{Name: "jmp", Op: InstJmp, Shape: ShapeJump, Opcode: 0x30, Indirect: 0x38, Size: 8},
		"beq":   inst{Name: "beq", Op: InstBeq, Shape: ShapeBranch, Opcode: 0x31, Indirect: 0x39, Size: 8},
		"bne":   inst{Name: "bne", Op: InstBne, Shape: ShapeBranch, Opcode: 0x32, Indirect: 0x3A, Size: 8},
		"bgt":   inst{Name: "bgt", Op: InstBgt, Shape: ShapeBranch, Opcode: 0x33, Indirect: 0x3B, Size: 8},
		"push":  inst{Name: "push", Op: InstPush, Shape: ShapeStack, Opcode: 0x81, Indirect: 0x81, Size: 4},
		"pop":   inst{Name: "pop", Op: InstPop, Shape: ShapeStack, Opcode: 0x93, Indirect: 0x93, Size: 4},
		"xchg":  inst{Name: "xchg", Op: InstXchg, Shape: ShapeRegReg, Opcode: 0x40, Indirect: 0x40, Size: 3},
		"add":   inst{Name: "add", Op: InstAdd, Shape: ShapeRegReg, Opcode: 0x50, Indirect: 0x50, Size: 3},
		"sub":   inst{Name: "sub", Op: InstSub, Shape: ShapeRegReg, Opcode: 0x51, Indirect: 0x51, Size: 3},
		"mul":   inst{Name: "mul", Op: InstMul, Shape: ShapeRegReg, Opcode: 0x52, Indirect: 0x52, Size: 3},
		"div":   inst{Name: "div", Op: InstDiv, Shape: ShapeRegReg, Opcode: 0x53, Indirect: 0x53, Size: 3},
		"not":   inst{Name: "not", Op: InstNot, Shape: ShapeReg, Opcode: 0x60, Indirect: 0x60, Size: 2},
		"and":   inst{Name: "and", Op: InstAnd, Shape: ShapeRegReg, Opcode: 0x61, Indirect: 0x61, Size: 3},
		"or":    inst{Name: "or", Op: InstOr, Shape: ShapeRegReg, Opcode: 0x62, Indirect: 0x62, Size: 3},
		"xor":   inst{Name: "xor", Op: InstXor, Shape: ShapeRegReg, Opcode: 0x63, Indirect: 0x63, Size: 3},
		"shl":   inst{Name: "shl", Op: InstShl, Shape: ShapeRegReg, Opcode: 0x70, Indirect: 0x70, Size: 3},
		"shr":   inst{Name: "shr", Op: InstShr, Shape: ShapeRegReg, Opcode: 0x71, Indirect: 0x71, Size: 3},
		"ld":    inst{Name: "ld", Op: InstLd, Shape: ShapeLoad, Opcode: 0x91, Indirect: 0x92, Size: 8},
		"st":    inst{Name: "st", Op: InstSt, Shape: ShapeStore, Opcode: 0x80, Indirect: 0x82, Size: 8},
		"csrrd": inst{Name: "csrrd", Op: InstCsrrd, Shape: ShapeCsrRead, Opcode: 0x90, Indirect: 0x90, Size: 2},
		"csrwr": inst{Name: "csrwr", Op: InstCsrwr, Shape: ShapeCsrWrite, Opcode: 0x94, Indirect: 0x94, Size: 2},
	}
}

// OpcodeTable indexes the instruction set by every first byte it can
// encode to.
func OpcodeTable() map[byte]Instruction {
	mot := make(map[byte]Instruction)
	for _, in := range InstMap() {
		mot[in.Opcode] = in
		mot[in.Indirect] = in
	}
	return mot
}

// Fields is the decomposed instruction word:
//
//	byte0 = opcode<<4 | mode
//	byte1 = A<<4 | B
//	byte2 = C<<4 | D[11:8]
//	byte3 = D[7:0]
type Fields struct {
	Opcode  byte
	A, B, C byte
	Disp    int32
}

// Encode writes the word described by f, truncated to the instruction's
// word length, followed by the literal when the instruction carries one.
func Encode(in Instruction, f Fields, literal uint32) []byte {
	d := uint32(f.Disp) & (1<<DispBits - 1)
	word := [WordSize]byte{
		f.Opcode,
		(f.A&0xF)<<4 | f.B&0xF,
		(f.C&0xF)<<4 | byte(d>>8),
		byte(d),
	}
	out := make([]byte, 0, in.Size)
	out = append(out, word[:in.WordLen()]...)
	if in.HasLiteral() {
		out = binary.BigEndian.AppendUint32(out, literal)
	}
	return out
}

type Decoded struct {
	Inst Instruction
	Fields
	Literal uint32
}

// IsIndirect reports whether the decoded opcode byte selects the memory
// form of a two-form instruction.
func (d Decoded) IsIndirect() bool {
	return d.Opcode == d.Inst.Indirect && d.Inst.Indirect != d.Inst.Opcode
}

// Decode reads one instruction from the start of code.
func Decode(code []byte) (Decoded, error) {
	return decodeWith(OpcodeTable(), code)
}

// Decoder keeps the opcode table between calls.
type Decoder struct {
	mot map[byte]Instruction
}

func MakeDecoder() Decoder {
	return Decoder{mot: OpcodeTable()}
}

func (d Decoder) Decode(code []byte) (Decoded, error) {
	return decodeWith(d.mot, code)
}

func decodeWith(mot map[byte]Instruction, code []byte) (Decoded, error) {
	if len(code) == 0 {
		return Decoded{}, ErrTruncated
	}
	in, found := mot[code[0]]
	if !found {
		return Decoded{}, &Error{Kind: ErrBadOpcode, Name: hexByte(code[0])}
	}
	if uint32(len(code)) < in.Size {
		return Decoded{}, &Error{Kind: ErrTruncated, Name: in.Name}
	}

	var word [WordSize]byte
	copy(word[:], code[:in.WordLen()])
	d := uint32(word[2]&0xF)<<8 | uint32(word[3])
	disp := int32(d)
	if disp > DispMax {
		disp -= 1 << DispBits
	}
	out := Decoded{
		Inst: in,
		Fields: Fields{
			Opcode: word[0],
			A:      word[1] >> 4,
			B:      word[1] & 0xF,
			C:      word[2] >> 4,
			Disp:   disp,
		},
	}
	if in.HasLiteral() {
		out.Literal = binary.BigEndian.Uint32(code[WordSize:in.Size])
	}
	return out, nil
}

func hexByte(b byte) string {
	const digits = "0123456789abcdef"
	return "0x" + string([]byte{digits[b>>4], digits[b&0xF]})
}
