package assembler

import (
	"bufio"
	"io"
	"strings"

	"github.com/golang/glog"

	dubcc "dubcc/shared"
	"dubcc/shared/dulf"
)

// Info is the state of one assembly run. It is threaded through both
// passes and owns the object being built.
type Info struct {
	// Logf receives progress messages. It defaults to glog at V(2).
	Logf func(format string, args ...any)

	isa        dubcc.ISA
	directives map[string]DirectiveHandler

	obj             *dulf.ObjectFile
	source          []string
	section         string
	current         *dulf.Section
	locationCounter uint32
	line            int
}

func MakeAssembler() *Info {
	return &Info{
		Logf:       glog.V(2).Infof,
		isa:        dubcc.GetDefaultISA(),
		directives: Directives(),
	}
}

// Assemble runs both passes over the source read from r. name is used
// for the object's Name and for error messages.
func Assemble(name string, r io.Reader) (*dulf.ObjectFile, error) {
	return MakeAssembler().Assemble(name, r)
}

func (info *Info) Assemble(name string, r io.Reader) (*dulf.ObjectFile, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	info.obj = dulf.NewObjectFile(name)
	info.source = lines

	glog.V(1).Infof("assembling %s: %d lines", name, len(lines))
	if err := info.FirstPass(); err != nil {
		return nil, dubcc.InFile(err, name)
	}
	if err := info.SecondPass(); err != nil {
		return nil, dubcc.InFile(err, name)
	}
	glog.V(1).Infof("assembled %s: %d sections, %d symbols, %d relocations",
		name, len(info.obj.Sections), info.obj.Symbols.Len(), info.obj.Relocations.Len())
	return info.obj, nil
}

// FirstPass defines every symbol and sizes every section.
func (info *Info) FirstPass() error {
	info.enterPass()
	err := info.eachLine(info.firstPassLine)
	if err == nil {
		info.closeSection()
	}
	return err
}

// SecondPass emits the section bytes and relocations.
func (info *Info) SecondPass() error {
	info.enterPass()
	if err := info.eachLine(info.secondPassLine); err != nil {
		return err
	}
	for _, sec := range info.obj.Sections {
		sym := info.obj.Symbols.Get(sec.Name)
		if sym == nil || sym.Size != len(sec.Code) {
			return dubcc.NewError(dubcc.ErrInternal, sec.Name)
		}
	}
	return nil
}

func (info *Info) enterPass() {
	info.section = dulf.UndefinedSection
	info.current = nil
	info.locationCounter = 0
	info.line = 0
}

// eachLine feeds the tokens of every non-empty line to fn, stopping at
// ".end".
func (info *Info) eachLine(fn func(tokens []Token) error) error {
	for i, raw := range info.source {
		info.line = i + 1
		tokens, err := Tokenize(StripComment(raw), info.line)
		if err != nil {
			return err
		}
		if len(tokens) == 0 {
			continue
		}
		if at := endAt(tokens); at >= 0 {
			if len(tokens) > at+1 {
				return info.errorf(dubcc.ErrSyntax, tokens[at+1].Text)
			}
			// a label in front of .end still names the end of its section
			if at > 0 {
				if err := fn(tokens[:at]); err != nil {
					return err
				}
			}
			info.Logf("%s: end at line %d", info.obj.Name, info.line)
			return nil
		}
		if err := fn(tokens); err != nil {
			return err
		}
	}
	return nil
}

// endAt is the position of a ".end" that starts the line, alone or after
// a label, or -1.
func endAt(tokens []Token) int {
	switch {
	case tokens[0].Kind == TokEnd:
		return 0
	case tokens[0].Kind == TokLabel && len(tokens) > 1 && tokens[1].Kind == TokEnd:
		return 1
	}
	return -1
}

func (info *Info) firstPassLine(tokens []Token) error {
	head := tokens[0]
	switch head.Kind {
	case TokLabel:
		if err := info.defineLabel(head.Text); err != nil {
			return err
		}
		return info.afterLabel(tokens[1:], info.firstPassLine)
	case TokDirective:
		return info.directives[head.Text].first(info, tokens[1:])
	case TokInstruction:
		in, err := info.instruction(head.Text)
		if err != nil {
			return err
		}
		if info.section == dulf.UndefinedSection {
			return info.errorf(dubcc.ErrNoSection, head.Text)
		}
		info.locationCounter += in.Size
		return nil
	}
	return info.errorf(dubcc.ErrIllegalLineStart, head.Text)
}

func (info *Info) secondPassLine(tokens []Token) error {
	head := tokens[0]
	switch head.Kind {
	case TokLabel:
		return info.afterLabel(tokens[1:], info.secondPassLine)
	case TokDirective:
		return info.directives[head.Text].second(info, tokens[1:])
	case TokInstruction:
		return info.encodeInstruction(head, tokens[1:])
	}
	return info.errorf(dubcc.ErrIllegalLineStart, head.Text)
}

// afterLabel handles whatever follows a label on the same line.
func (info *Info) afterLabel(rest []Token, next func([]Token) error) error {
	if len(rest) == 0 {
		return nil
	}
	if rest[0].Kind != TokInstruction && rest[0].Kind != TokDirective {
		return info.errorf(dubcc.ErrIllegalLineStart, rest[0].Text)
	}
	return next(rest)
}

func (info *Info) defineLabel(name string) error {
	if info.section == dulf.UndefinedSection {
		return info.errorf(dubcc.ErrNoSection, name)
	}
	sym := info.obj.Symbols.Get(name)
	switch {
	case sym == nil:
		sym = info.obj.Symbols.New(name, info.section, info.locationCounter, dulf.NotASection)
	case sym.Defined:
		return info.errorf(dubcc.ErrSymbolRedefined, name)
	case sym.Extern:
		return info.errorf(dubcc.ErrDefiningExtern, name)
	}
	sym.Section = info.section
	sym.Value = info.locationCounter
	sym.Defined = true
	info.Logf("%s:%d: label %s = %s+%#x", info.obj.Name, info.line, name, info.section, info.locationCounter)
	return nil
}

// closeSection records the final size of the open section.
func (info *Info) closeSection() {
	if info.section == dulf.UndefinedSection {
		return
	}
	if sym := info.obj.Symbols.Get(info.section); sym != nil {
		sym.Size = int(info.locationCounter)
	}
}

func (info *Info) instruction(mnemonic string) (dubcc.Instruction, error) {
	in, found := info.isa.Instructions[mnemonic]
	if !found {
		// the lexer accepts suffixed mnemonics the instruction set lacks
		return in, info.errorf(dubcc.ErrInternal, mnemonic)
	}
	return in, nil
}

// lookup finds a symbol an operand or .word refers to. It must be
// defined in this file, imported or exported; an exported symbol nobody
// defines is left for the linker to report.
func (info *Info) lookup(name string) (*dulf.Symbol, error) {
	sym := info.obj.Symbols.Get(name)
	if sym == nil || (!sym.Defined && !sym.Extern && !sym.Global) {
		return nil, info.errorf(dubcc.ErrUndefinedSymbol, name)
	}
	return sym, nil
}

func (info *Info) addRelocation(symbol string, typ dulf.RelocationType, offset uint32) {
	info.obj.Relocations.Add(dulf.Relocation{
		Symbol:   symbol,
		Type:     typ,
		Location: offset,
		Section:  info.section,
	})
}

// writePos is the offset in the open section the next byte goes to.
func (info *Info) writePos() uint32 {
	return info.current.Len()
}

func (info *Info) errorf(kind dubcc.ErrorKind, name string) *dubcc.Error {
	return dubcc.LineError(kind, info.line, name)
}

func joinTokens(tokens []Token) string {
	parts := make([]string, len(tokens))
	for i, t := range tokens {
		parts[i] = t.Text
	}
	return strings.Join(parts, " ")
}
