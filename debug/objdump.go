package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	dubcc "dubcc/shared"
	"dubcc/shared/cli"
	"dubcc/shared/dulf"
)

var raw bool

var rootCmd = &cobra.Command{
	Use:   "objdump [object]",
	Short: "Print and disassemble a text object file",
	Long: `objdump reads one object module, from the named file or stdin, and
prints its symbol table, its relocations and a disassembly of every
section. Literal words that a relocation will patch are annotated.`,
	Args: cli.Args(cobra.MaximumNArgs(1)),
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			obj *dulf.ObjectFile
			err error
		)
		if len(args) == 1 {
			obj, err = dulf.ReadFile(args[0])
		} else {
			obj, err = dulf.Read("<stdin>", os.Stdin)
		}
		if err != nil {
			return err
		}
		if raw {
			cli.Dumper().Println(obj)
			return nil
		}
		return dump(cmd.OutOrStdout(), obj)
	},
}

func init() {
	rootCmd.Flags().BoolVar(&raw, "raw", false, "pretty-print the parsed object instead")
}

func dump(w io.Writer, obj *dulf.ObjectFile) error {
	fmt.Fprintf(w, "%s:\n\nSYMBOLS\n", obj.Name)
	for _, sym := range obj.Symbols.All() {
		bind := "l"
		switch {
		case sym.Global:
			bind = "g"
		case sym.Extern:
			bind = "x"
		}
		kind := ""
		if sym.IsSection() {
			kind = fmt.Sprintf(" section, %d bytes", sym.Size)
		}
		fmt.Fprintf(w, "  %08x %s %-12s %s%s\n", sym.Value, bind, sym.Section, sym.Name, kind)
	}

	fmt.Fprintln(w, "\nRELOCATIONS")
	for _, r := range obj.Relocations.All() {
		fmt.Fprintf(w, "  %-12s %04x %-16s %s\n", r.Section, r.Location, r.Type, r.Symbol)
	}

	dec := dubcc.MakeDecoder()
	for _, sec := range obj.Sections {
		fmt.Fprintf(w, "\nSECTION %s (%d bytes)\n", sec.Name, sec.Len())
		relocs := make(map[uint32]dulf.Relocation)
		for _, r := range obj.Relocations.All() {
			if r.Section == sec.Name {
				relocs[r.Location] = r
			}
		}
		disassemble(w, dec, sec.Code, relocs)
	}
	return nil
}

// disassemble decodes code from the start. Bytes that decode to nothing
// are printed as .byte and skipped one at a time.
func disassemble(w io.Writer, dec dubcc.Decoder, code []byte, relocs map[uint32]dulf.Relocation) {
	for off := uint32(0); off < uint32(len(code)); {
		d, err := dec.Decode(code[off:])
		if err != nil {
			fmt.Fprintf(w, "  %04x: %02x%s.byte 0x%02x\n", off, code[off], pad(1), code[off])
			off++
			continue
		}
		text := format(d)
		if r, ok := relocs[off+dubcc.LiteralPoolOffset]; ok && d.Inst.HasLiteral() {
			text += fmt.Sprintf("\t# %s %s", r.Type, r.Symbol)
		} else if r, ok := relocs[off]; ok {
			text += fmt.Sprintf("\t# %s %s", r.Type, r.Symbol)
		}
		fmt.Fprintf(w, "  %04x: % x%s%s\n", off, code[off:off+d.Inst.Size], pad(int(d.Inst.Size)), text)
		off += d.Inst.Size
	}
}

func pad(n int) string {
	return strings.Repeat(" ", max(2, 3*(8-n)+2))
}

func gpr(n byte) string { return dubcc.RegisterName(dubcc.RegKindGeneral, n) }

func csr(n byte) string { return dubcc.RegisterName(dubcc.RegKindControl, n) }

// format renders a decoded instruction in assembler syntax where the
// encoding allows it.
func format(d dubcc.Decoded) string {
	lit := fmt.Sprintf("0x%x", d.Literal)
	switch d.Inst.Shape {
	case dubcc.ShapeNone:
		return d.Inst.Name
	case dubcc.ShapeJump:
		if d.IsIndirect() {
			return fmt.Sprintf("%s [%s]", d.Inst.Name, lit)
		}
		return fmt.Sprintf("%s %s", d.Inst.Name, lit)
	case dubcc.ShapeBranch:
		target := lit
		if d.IsIndirect() {
			target = "[" + lit + "]"
		}
		return fmt.Sprintf("%s %s, %s, %s", d.Inst.Name, gpr(d.B), gpr(d.C), target)
	case dubcc.ShapeStack:
		if d.Inst.Op == dubcc.InstPush {
			return fmt.Sprintf("push %s", gpr(d.C))
		}
		return fmt.Sprintf("pop %s", gpr(d.A))
	case dubcc.ShapeRegReg:
		if d.Inst.Op == dubcc.InstXchg {
			return fmt.Sprintf("xchg %s, %s", gpr(d.B), gpr(d.C))
		}
		return fmt.Sprintf("%s %s, %s", d.Inst.Name, gpr(d.C), gpr(d.A))
	case dubcc.ShapeReg:
		return fmt.Sprintf("%s %s", d.Inst.Name, gpr(d.A))
	case dubcc.ShapeLoad:
		if d.IsIndirect() {
			return fmt.Sprintf("ld [%s + %s], %s", gpr(d.B), lit, gpr(d.A))
		}
		return fmt.Sprintf("ld %s + %s, %s", gpr(d.B), lit, gpr(d.A))
	case dubcc.ShapeStore:
		if d.IsIndirect() {
			return fmt.Sprintf("st %s, [%s + %s]", gpr(d.C), gpr(d.A), lit)
		}
		return fmt.Sprintf("st %s, %s + %s", gpr(d.C), gpr(d.A), lit)
	case dubcc.ShapeCsrRead:
		return fmt.Sprintf("csrrd %s, %s", csr(d.B), gpr(d.A))
	case dubcc.ShapeCsrWrite:
		return fmt.Sprintf("csrwr %s, %s", gpr(d.B), csr(d.A))
	}
	return d.Inst.Name
}

func main() {
	cli.Execute(rootCmd, "raw")
}
