package assembler

import (
	"strconv"
	"strings"

	dubcc "dubcc/shared"
	"dubcc/shared/dulf"
)

type DirectiveHandler struct {
	first  func(info *Info, args []Token) error
	second func(info *Info, args []Token) error
}

func noop(*Info, []Token) error { return nil }

func Directives() map[string]DirectiveHandler {
	return map[string]DirectiveHandler{
		".global": {first: (*Info).global, second: noop},
		".extern": {first: (*Info).extern, second: noop},
		".section": {
			first:  (*Info).openSection,
			second: (*Info).enterSection,
		},
		".word": {first: (*Info).sizeWords, second: (*Info).emitWords},
		".skip": {first: (*Info).sizeSkip, second: (*Info).emitSkip},
	}
}

func (info *Info) global(args []Token) error {
	names, err := info.list(".global", args, isSymbol)
	if err != nil {
		return err
	}
	for _, tok := range names {
		sym := info.obj.Symbols.Get(tok.Text)
		if sym == nil {
			sym = info.obj.Symbols.New(tok.Text, dulf.UndefinedSection, 0, dulf.NotASection)
		} else if sym.Extern {
			return info.errorf(dubcc.ErrGlobalExtern, tok.Text)
		}
		sym.Global = true
		info.Logf("%s:%d: global %s", info.obj.Name, info.line, tok.Text)
	}
	return nil
}

func (info *Info) extern(args []Token) error {
	names, err := info.list(".extern", args, isSymbol)
	if err != nil {
		return err
	}
	for _, tok := range names {
		sym := info.obj.Symbols.Get(tok.Text)
		switch {
		case sym == nil:
			sym = info.obj.Symbols.New(tok.Text, dulf.UndefinedSection, 0, dulf.NotASection)
		case sym.Global:
			return info.errorf(dubcc.ErrGlobalExtern, tok.Text)
		case sym.Defined:
			return info.errorf(dubcc.ErrImportingDefined, tok.Text)
		}
		sym.Extern = true
		info.Logf("%s:%d: extern %s", info.obj.Name, info.line, tok.Text)
	}
	return nil
}

func (info *Info) openSection(args []Token) error {
	if len(args) != 1 || args[0].Kind != TokSymbol {
		return info.errorf(dubcc.ErrSyntax, ".section "+joinTokens(args))
	}
	name := args[0].Text
	if sym := info.obj.Symbols.Get(name); sym != nil {
		if sym.IsSection() {
			return info.errorf(dubcc.ErrSectionRedefined, name)
		}
		return info.errorf(dubcc.ErrLabelSectionConflict, name)
	}
	info.closeSection()

	sym := info.obj.Symbols.New(name, name, 0, 0)
	sym.Defined = true
	if _, err := info.obj.AddSection(name); err != nil {
		return info.errorf(dubcc.ErrSectionRedefined, name)
	}
	info.section = name
	info.locationCounter = 0
	info.Logf("%s:%d: section %s", info.obj.Name, info.line, name)
	return nil
}

func (info *Info) enterSection(args []Token) error {
	name := args[0].Text
	info.section = name
	info.current = info.obj.Section(name)
	if info.current == nil {
		return info.errorf(dubcc.ErrInternal, name)
	}
	return nil
}

func isWordItem(k TokenKind) bool {
	return k == TokSymbol || k == TokDecimalIndirect || k == TokHexIndirect
}

func (info *Info) sizeWords(args []Token) error {
	if err := info.needSection(".word"); err != nil {
		return err
	}
	items, err := info.list(".word", args, isWordItem)
	if err != nil {
		return err
	}
	for _, tok := range items {
		if tok.Kind == TokSymbol {
			if info.obj.Symbols.Get(tok.Text) == nil {
				info.obj.Symbols.New(tok.Text, dulf.UndefinedSection, 0, dulf.NotASection)
			}
			continue
		}
		if _, err := info.number(tok); err != nil {
			return err
		}
	}
	info.locationCounter += dubcc.WordSize * uint32(len(items))
	return nil
}

func (info *Info) emitWords(args []Token) error {
	items, err := info.list(".word", args, isWordItem)
	if err != nil {
		return err
	}
	for _, tok := range items {
		if tok.Kind != TokSymbol {
			v, err := info.number(tok)
			if err != nil {
				return err
			}
			info.current.AppendWord(v)
			continue
		}
		sym, err := info.lookup(tok.Text)
		if err != nil {
			return err
		}
		var v uint32
		if sym.Defined {
			v = sym.Value
		}
		info.addRelocation(tok.Text, dulf.RelocSymbol, info.writePos())
		info.current.AppendWord(v)
	}
	return nil
}

func isSkipCount(k TokenKind) bool {
	return k == TokDecimal || k == TokHex || k == TokDecimalIndirect || k == TokHexIndirect
}

func (info *Info) skipCount(args []Token) (uint32, error) {
	if len(args) != 1 || !isSkipCount(args[0].Kind) {
		return 0, info.errorf(dubcc.ErrSyntax, ".skip "+joinTokens(args))
	}
	return info.number(args[0])
}

func (info *Info) sizeSkip(args []Token) error {
	if err := info.needSection(".skip"); err != nil {
		return err
	}
	n, err := info.skipCount(args)
	if err != nil {
		return err
	}
	info.locationCounter += n
	return nil
}

func (info *Info) emitSkip(args []Token) error {
	n, err := info.skipCount(args)
	if err != nil {
		return err
	}
	info.current.AppendZeros(n)
	return nil
}

func (info *Info) needSection(what string) error {
	if info.section == dulf.UndefinedSection {
		return info.errorf(dubcc.ErrNoSection, what)
	}
	return nil
}

// list checks that args alternate between items accepted by ok and
// commas, and returns the items.
func (info *Info) list(what string, args []Token, ok func(TokenKind) bool) ([]Token, error) {
	if len(args)%2 == 0 {
		return nil, info.errorf(dubcc.ErrSyntax, what+" "+joinTokens(args))
	}
	items := make([]Token, 0, len(args)/2+1)
	for i, tok := range args {
		if i%2 == 1 {
			if tok.Kind != TokComma {
				return nil, info.errorf(dubcc.ErrSyntax, tok.Text)
			}
			continue
		}
		if !ok(tok.Kind) {
			return nil, info.errorf(dubcc.ErrSyntax, tok.Text)
		}
		items = append(items, tok)
	}
	return items, nil
}

// number parses a numeric token: decimal, or hexadecimal with 0x.
func (info *Info) number(tok Token) (uint32, error) {
	text, base := tok.Text, 10
	if hex, ok := strings.CutPrefix(text, "0x"); ok {
		text, base = hex, 16
	}
	v, err := strconv.ParseUint(text, base, 32)
	if err != nil {
		return 0, info.errorf(dubcc.ErrOperandTooLarge, tok.Text)
	}
	return uint32(v), nil
}
