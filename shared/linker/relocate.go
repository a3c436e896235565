package linker

import (
	dubcc "dubcc/shared"
	"dubcc/shared/dulf"
)

// Relocate patches every relocation of every object with the final
// address of its symbol. Symbols defined in the same file take
// precedence over the merged global table.
func (l *Linker) Relocate() error {
	for _, obj := range l.objects {
		for _, rel := range obj.Relocations.All() {
			if err := l.relocate(obj, rel); err != nil {
				return dubcc.InFile(err, obj.Name)
			}
		}
	}
	return nil
}

func (l *Linker) relocate(obj *dulf.ObjectFile, rel dulf.Relocation) error {
	target := obj.Section(rel.Section)
	if target == nil {
		return &dubcc.Error{Kind: dubcc.ErrMalformedObject, Name: rel.Section}
	}

	addr, err := l.resolve(obj, rel.Symbol)
	if err != nil {
		return err
	}
	if err := target.PatchWord(rel.Location, addr); err != nil {
		return &dubcc.Error{Kind: dubcc.ErrMalformedObject, Name: rel.Symbol, Err: err}
	}
	l.Logf("%s: %s+%#x <- %s = %#x (%v)", obj.Name, rel.Section, rel.Location, rel.Symbol, addr, rel.Type)
	return nil
}

// resolve computes the final address of name as seen from obj.
func (l *Linker) resolve(obj *dulf.ObjectFile, name string) (uint32, error) {
	if sym := obj.Symbols.Get(name); sym != nil && sym.Defined {
		owner := obj.Section(sym.Section)
		if owner == nil {
			return 0, &dubcc.Error{Kind: dubcc.ErrMalformedObject, Name: name}
		}
		return sym.Value + owner.Location, nil
	}

	sym := l.symbols.Get(name)
	if sym == nil || !sym.Defined {
		return 0, dubcc.NewError(dubcc.ErrUnresolvedSymbol, name)
	}
	owner := l.sections[sectionKey{sym.Section, sym.File}]
	if owner == nil {
		return 0, &dubcc.Error{Kind: dubcc.ErrInternal, Name: name}
	}
	return sym.Value + owner.Location, nil
}
