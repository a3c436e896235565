package linker

import (
	dubcc "dubcc/shared"
	"dubcc/shared/dulf"
)

// MergeSymbols builds the global symbol table from every object and
// indexes each file's sections.
func (l *Linker) MergeSymbols() error {
	for _, obj := range l.objects {
		for _, sym := range obj.Symbols.All() {
			if err := l.mergeSymbol(obj, sym); err != nil {
				return dubcc.InFile(err, obj.Name)
			}
		}
	}
	return nil
}

func (l *Linker) mergeSymbol(obj *dulf.ObjectFile, sym *dulf.Symbol) error {
	if sym.IsSection() {
		sec := obj.Section(sym.Name)
		if sec == nil {
			return &dubcc.Error{Kind: dubcc.ErrMalformedObject, Name: sym.Name}
		}
		if int(sec.Len()) != sym.Size {
			return &dubcc.Error{Kind: dubcc.ErrMalformedObject, Name: sym.Name}
		}
		sec.File = obj.Name
		l.sections[sectionKey{sym.Name, obj.Name}] = sec
	}

	existing := l.symbols.Get(sym.Name)
	if existing == nil {
		if sym.Global || sym.Extern {
			l.insert(obj, sym)
		}
		return nil
	}

	switch {
	case sym.Global && sym.Defined && (existing.Extern || !existing.Defined):
		l.insert(obj, sym)
	case existing.IsSection() != sym.IsSection():
		return &dubcc.Error{Kind: dubcc.ErrLabelSectionConflict, Name: sym.Name, Other: existing.File}
	case existing.Global && sym.Global && existing.Defined && sym.Defined:
		return &dubcc.Error{Kind: dubcc.ErrMultipleDefinition, Name: sym.Name, Other: existing.File}
	}
	return nil
}

func (l *Linker) insert(obj *dulf.ObjectFile, sym *dulf.Symbol) {
	cp := *sym
	cp.File = obj.Name
	l.symbols.Insert(&cp)
	l.Logf("symbol %s from %s (global=%v extern=%v)", sym.Name, obj.Name, sym.Global, sym.Extern)
}
