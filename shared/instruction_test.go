package dubcc

import (
	"bytes"
	"errors"
	"testing"
)

func check(t *testing.T, a1 any, a2 any) {
	t.Helper()
	if a1 != a2 {
		t.Errorf("%[1]v (a %[1]T) != %[2]v (a %[2]T)", a1, a2)
	}
}

func TestInstMapSizes(t *testing.T) {
	sizes := map[string]uint32{
		"halt": 1, "int": 1, "iret": 1, "ret": 1,
		"call": 8, "jmp": 8, "beq": 8, "bne": 8, "bgt": 8,
		"push": 4, "pop": 4,
		"xchg": 3, "add": 3, "sub": 3, "mul": 3, "div": 3,
		"not": 2, "and": 3, "or": 3, "xor": 3, "shl": 3, "shr": 3,
		"ld": 8, "st": 8, "csrrd": 2, "csrwr": 2,
	}
	isa := InstMap()
	check(t, len(sizes), len(isa))
	for name, size := range sizes {
		in, ok := isa[name]
		if !ok {
			t.Errorf("missing %s", name)
			continue
		}
		check(t, name, in.Name)
		check(t, size, in.Size)
	}
}

func TestOpcodesAreUnique(t *testing.T) {
	seen := map[byte]string{}
	for _, in := range InstMap() {
		for _, op := range []byte{in.Opcode, in.Indirect} {
			if other, dup := seen[op]; dup && other != in.Name {
				t.Errorf("opcode %#02x used by %s and %s", op, in.Name, other)
			}
			seen[op] = in.Name
		}
	}
}

func TestEncodeRegReg(t *testing.T) {
	add := InstMap()["add"]
	got := Encode(add, Fields{Opcode: add.Opcode, A: 2, B: 2, C: 1}, 0)
	check(t, true, bytes.Equal([]byte{0x50, 0x22, 0x10}, got))
}

func TestEncodeStackDisplacement(t *testing.T) {
	isa := InstMap()
	push := Encode(isa["push"], Fields{Opcode: 0x81, A: RegSP, C: 3, Disp: 1}, 0)
	check(t, true, bytes.Equal([]byte{0x81, 0xE0, 0x30, 0x01}, push))

	pop := Encode(isa["pop"], Fields{Opcode: 0x93, A: 3, B: RegSP, Disp: -1}, 0)
	check(t, true, bytes.Equal([]byte{0x93, 0x3E, 0x0F, 0xFF}, pop))

	d, err := Decode(pop)
	check(t, nil, err)
	check(t, int32(-1), d.Disp)
	check(t, byte(3), d.A)
	check(t, RegSP, d.B)
}

func TestEncodeLiteral(t *testing.T) {
	call := InstMap()["call"]
	got := Encode(call, Fields{Opcode: call.Opcode}, 0x2010)
	check(t, true, bytes.Equal([]byte{0x20, 0, 0, 0, 0x00, 0x00, 0x20, 0x10}, got))

	d, err := Decode(got)
	check(t, nil, err)
	check(t, "call", d.Inst.Name)
	check(t, uint32(0x2010), d.Literal)
	check(t, false, d.IsIndirect())
}

func TestDecodeIndirectForm(t *testing.T) {
	d, err := Decode([]byte{0x92, 0x1F, 0, 0, 0, 0, 0, 4})
	check(t, nil, err)
	check(t, "ld", d.Inst.Name)
	check(t, true, d.IsIndirect())
	check(t, byte(1), d.A)
	check(t, RegPC, d.B)
	check(t, uint32(4), d.Literal)
}

func TestDecodeErrors(t *testing.T) {
	_, err := Decode(nil)
	check(t, true, errors.Is(err, ErrTruncated))

	_, err = Decode([]byte{0x20, 0, 0})
	check(t, true, errors.Is(err, ErrTruncated))

	_, err = Decode([]byte{0xFF})
	check(t, true, errors.Is(err, ErrBadOpcode))
}

func TestErrorFormatting(t *testing.T) {
	err := LineError(ErrUndefinedSymbol, 7, "foo")
	check(t, `line 7: undefined symbol: "foo"`, err.Error())
	check(t, true, errors.Is(err, ErrUndefinedSymbol))
	check(t, false, errors.Is(err, ErrSyntax))
	check(t, ErrUndefinedSymbol, KindOf(err))

	wrapped := InFile(&Error{Kind: ErrMultipleDefinition, Name: "foo", Other: "b.o"}, "a.o")
	check(t, `a.o: multiple definition: "foo" and "b.o"`, wrapped.Error())
}

func TestRegisterInfo(t *testing.T) {
	regs := RegisterInfo()
	check(t, RegSP, regs["sp"].Address)
	check(t, RegPC, regs["pc"].Address)
	check(t, byte(7), regs["r7"].Address)
	check(t, RegKindControl, regs["cause"].Kind)
	check(t, "%sp", RegisterName(RegKindGeneral, 14))
	check(t, "%handler", RegisterName(RegKindControl, CsrHandler))
}
