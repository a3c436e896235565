package assembler

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	dubcc "dubcc/shared"
	"dubcc/shared/dulf"
)

func assemble(t *testing.T, src string) (*dulf.ObjectFile, error) {
	t.Helper()
	info := MakeAssembler()
	info.Logf = t.Logf
	return info.Assemble(t.Name()+".s", strings.NewReader(src))
}

func mustAssemble(t *testing.T, src string) *dulf.ObjectFile {
	t.Helper()
	obj, err := assemble(t, src)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	return obj
}

func expectKind(t *testing.T, src string, kind dubcc.ErrorKind, line int) {
	t.Helper()
	_, err := assemble(t, src)
	if !errors.Is(err, kind) {
		t.Fatalf("got %v, want %v", err, kind)
	}
	var de *dubcc.Error
	check(t, true, errors.As(err, &de))
	check(t, line, de.Line)
}

func TestMinimalProgram(t *testing.T) {
	obj := mustAssemble(t, ".global start\n.section text\nstart: add %r1,%r2\nhalt\n.end\n")

	text := obj.Section("text")
	check(t, true, text != nil)
	check(t, true, bytes.Equal([]byte{0x50, 0x22, 0x10, 0x00}, text.Code))
	check(t, 0, obj.Relocations.Len())

	start := obj.Symbols.Get("start")
	check(t, true, start.Global)
	check(t, true, start.Defined)
	check(t, "text", start.Section)
	check(t, uint32(0), start.Value)

	sec := obj.Symbols.Get("text")
	check(t, 4, sec.Size)
	check(t, true, sec.IsSection())
}

func TestExternLoad(t *testing.T) {
	obj := mustAssemble(t, ".extern foo\n.section text\nld foo, %r1\n")

	check(t, true, bytes.Equal([]byte{0x92, 0x10, 0, 0, 0, 0, 0, 0}, obj.Section("text").Code))
	rels := obj.Relocations.Get("foo")
	check(t, 1, len(rels))
	check(t, dulf.RelocSymbolIndirect, rels[0].Type)
	check(t, uint32(dubcc.LiteralPoolOffset), rels[0].Location)
	check(t, "text", rels[0].Section)

	foo := obj.Symbols.Get("foo")
	check(t, true, foo.Extern)
	check(t, dulf.UndefinedSection, foo.Section)
}

func TestForwardReference(t *testing.T) {
	src := `
.section text
	jmp done        # forward
	ld $value, %r2
done:
	halt
.section data
value: .word 0x10, 7, done
`
	obj := mustAssemble(t, src)
	text := obj.Section("text")
	check(t, 17, len(text.Code))
	// jmp done: direct form, literal holds the local offset of done
	check(t, byte(0x30), text.Code[0])
	check(t, uint32(16), text.Word(4))
	// ld $value: address of value, local offset 0 in data
	check(t, byte(0x91), text.Code[8])
	check(t, byte(0x20), text.Code[9])

	data := obj.Section("data")
	check(t, 12, len(data.Code))
	check(t, uint32(0x10), data.Word(0))
	check(t, uint32(7), data.Word(4))
	check(t, uint32(16), data.Word(8))

	done := obj.Relocations.Get("done")
	check(t, 2, len(done))
	check(t, "text", done[0].Section)
	check(t, uint32(4), done[0].Location)
	check(t, "data", done[1].Section)
	check(t, uint32(8), done[1].Location)

	value := obj.Relocations.Get("value")
	check(t, 1, len(value))
	check(t, dulf.RelocSymbol, value[0].Type)
	check(t, uint32(12), value[0].Location)
}

func TestSectionSizesMatchCode(t *testing.T) {
	src := `
.section text
	halt
	int
	iret
	ret
	call 0x100
	push %r1
	pop %r2
	xchg %r1, %r2
	sub %r3, %r4
	mul %r3, %r4
	div %r3, %r4
	not %r5
	and %r1, %r2
	or %r1, %r2
	xor %r1, %r2
	shl %r1, %r2
	shr %r1, %r2
	bne %r1, %r2, 8
	bgt %r1, %r2, $8
	st %r1, [%sp + 4]
	csrrd %status, %r1
	csrwr %r1, %handler
	.skip 5
	.word 1
`
	obj := mustAssemble(t, src)
	text := obj.Section("text")
	want := 4*1 + 8 + 4 + 4 + 3*9 + 2 + 8 + 8 + 8 + 2 + 2 + 5 + 4
	check(t, want, len(text.Code))
	check(t, want, obj.Symbols.Get("text").Size)
}

func TestEncodings(t *testing.T) {
	cases := []struct {
		src  string
		want []byte
	}{
		{"push %r3", []byte{0x81, 0xE0, 0x30, 0x01}},
		{"pop %r3", []byte{0x93, 0x3E, 0x0F, 0xFF}},
		{"xchg %r1, %r2", []byte{0x40, 0x01, 0x20}},
		{"not %r4", []byte{0x60, 0x44}},
		{"csrrd %cause, %r1", []byte{0x90, 0x12}},
		{"csrwr %r1, %handler", []byte{0x94, 0x11}},
		{"jmp $0x20", []byte{0x38, 0, 0, 0, 0, 0, 0, 0x20}},
		{"beq %r1, %r2, 0x20", []byte{0x31, 0x01, 0x20, 0, 0, 0, 0, 0x20}},
		{"ld [%r2 + 0x10], %r3", []byte{0x92, 0x32, 0, 0, 0, 0, 0, 0x10}},
		{"ld %sp, %r3", []byte{0x91, 0x3E, 0, 0, 0, 0, 0, 0}},
		{"st %r1, [%r2]", []byte{0x82, 0x20, 0x10, 0, 0, 0, 0, 0}},
		{"st %r1, $5", []byte{0x80, 0x00, 0x10, 0, 0, 0, 0, 5}},
	}
	for _, c := range cases {
		obj, err := assemble(t, ".section text\n"+c.src+"\n")
		if err != nil {
			t.Errorf("%s: %v", c.src, err)
			continue
		}
		if got := obj.Section("text").Code; !bytes.Equal(c.want, got) {
			t.Errorf("%s: got % x, want % x", c.src, got, c.want)
		}
	}
}

func TestOperandModeSelectsOpcode(t *testing.T) {
	cases := map[string]byte{
		"jmp x":       0x30,
		"jmp $x":      0x38,
		"call 5":      0x20,
		"call $5":     0x21,
		"ld $x, %r1":  0x91,
		"ld x, %r1":   0x92,
		"ld $5, %r1":  0x91,
		"ld 5, %r1":   0x92,
		"st %r1, x":   0x80,
		"st %r1, $x":  0x82,
		"st %r1, 5":   0x82,
		"st %r1, %r2": 0x80,
	}
	for src, want := range cases {
		obj, err := assemble(t, ".section text\nx: "+src+"\n")
		if err != nil {
			t.Errorf("%s: %v", src, err)
			continue
		}
		if got := obj.Section("text").Code[0]; got != want {
			t.Errorf("%s: opcode %#02x, want %#02x", src, got, want)
		}
	}
	check(t, true, directForm(dubcc.InstLd, ModeSymbolic))
	check(t, false, directForm(dubcc.InstSt, ModeSymbolic))
	check(t, false, directForm(dubcc.InstJmp, ModeRegisterIndirectSymbol))
}

func TestRegisterIndirectSymbol(t *testing.T) {
	obj := mustAssemble(t, ".section text\nld [%r1 + off], %r2\noff: halt\n")
	rels := obj.Relocations.Get("off")
	check(t, 1, len(rels))
	check(t, dulf.RelocSymbol, rels[0].Type)
	check(t, uint32(8), obj.Section("text").Word(4))
}

func TestLabelWithDirective(t *testing.T) {
	obj := mustAssemble(t, ".section data\nbuf: .skip 8\nend: .word buf\n")
	check(t, uint32(8), obj.Symbols.Get("end").Value)
	check(t, uint32(0), obj.Section("data").Word(8))
	check(t, 12, obj.Symbols.Get("data").Size)
}

func TestEndStopsAssembly(t *testing.T) {
	obj := mustAssemble(t, ".section text\nhalt\n.end\nthis is not assembled\n")
	check(t, 1, len(obj.Section("text").Code))
}

func TestLabelBeforeEnd(t *testing.T) {
	obj := mustAssemble(t, ".global done\n.section text\nhalt\ndone: .end\nnot assembled\n")
	done := obj.Symbols.Get("done")
	check(t, true, done.Defined)
	check(t, uint32(1), done.Value)
	check(t, 1, obj.Symbols.Get("text").Size)
	expectKind(t, ".section text\ndone: .end halt\n", dubcc.ErrSyntax, 2)
}

func TestUndefinedGlobalLeftToLinker(t *testing.T) {
	obj := mustAssemble(t, ".global later\n.section text\njmp later\nld later, %r1\n.word later\n")
	rels := obj.Relocations.Get("later")
	check(t, 3, len(rels))
	check(t, dulf.RelocSymbol, rels[0].Type)
	check(t, dulf.RelocSymbolIndirect, rels[1].Type)
	check(t, uint32(16), rels[2].Location)
	check(t, false, obj.Symbols.Get("later").Defined)
}

func TestErrors(t *testing.T) {
	expectKind(t, "halt\n", dubcc.ErrNoSection, 1)
	expectKind(t, "x: halt\n", dubcc.ErrNoSection, 1)
	expectKind(t, ".word 1\n", dubcc.ErrNoSection, 1)
	expectKind(t, ".section text\nld nothere, %r1\n", dubcc.ErrUndefinedSymbol, 2)
	expectKind(t, ".section text\n\njmp nothere\n", dubcc.ErrUndefinedSymbol, 3)
	expectKind(t, ".section text\n.word nothere\n", dubcc.ErrUndefinedSymbol, 2)
	expectKind(t, ".section text\na: halt\na: halt\n", dubcc.ErrSymbolRedefined, 3)
	expectKind(t, ".extern a\n.section text\na: halt\n", dubcc.ErrDefiningExtern, 3)
	expectKind(t, ".extern a\n.global a\n", dubcc.ErrGlobalExtern, 2)
	expectKind(t, ".global a\n.extern a\n", dubcc.ErrGlobalExtern, 2)
	expectKind(t, ".section text\na: halt\n.extern a\n", dubcc.ErrImportingDefined, 3)
	expectKind(t, ".section text\n.section text\n", dubcc.ErrSectionRedefined, 2)
	expectKind(t, ".section text\na: halt\n.section a\n", dubcc.ErrLabelSectionConflict, 3)
	expectKind(t, ".section text\njmp %r1\n", dubcc.ErrUnsupportedJumpOperand, 2)
	expectKind(t, ".section text\nadd %r1\n", dubcc.ErrSyntax, 2)
	expectKind(t, ".section text\n.global a,\n", dubcc.ErrSyntax, 2)
	expectKind(t, ".section text\n%r1\n", dubcc.ErrIllegalLineStart, 2)
	expectKind(t, ".section text\nadd %r16, %r1\n", dubcc.ErrOperandTooLarge, 2)
	expectKind(t, ".section text\n.word 0x100000000\n", dubcc.ErrOperandTooLarge, 2)
	expectKind(t, ".section text\naddeq %r1, %r2\n", dubcc.ErrInternal, 2)
	expectKind(t, ".section text\nhalt ?\n", dubcc.ErrUnknownToken, 2)
	expectKind(t, ".section d\n.skip 4096\nbig: .word 0\n.section t\nld [%r1 + big], %r2\n",
		dubcc.ErrOperandTooLarge, 5)
}

func TestErrorNamesFile(t *testing.T) {
	_, err := assemble(t, "halt\n")
	check(t, true, strings.HasPrefix(err.Error(), t.Name()+".s: line 1: "))
}

func TestObjectRoundTrip(t *testing.T) {
	obj := mustAssemble(t, ".global main\n.extern puts\n.section text\nmain: call puts\nld $msg, %r1\nhalt\n.section rodata\nmsg: .word 1, 2\n")
	var buf bytes.Buffer
	check(t, nil, obj.Write(&buf))
	back, err := dulf.Read("x.o", &buf)
	check(t, nil, err)
	check(t, obj.Symbols.Len(), back.Symbols.Len())
	check(t, obj.Relocations.Len(), back.Relocations.Len())
	check(t, true, bytes.Equal(obj.Section("text").Code, back.Section("text").Code))
}
