// Package linker combines text object files into one executable image.
package linker

import (
	"github.com/golang/glog"

	dubcc "dubcc/shared"
	"dubcc/shared/dulf"
)

type sectionKey struct {
	section string
	file    string
}

type Linker struct {
	// Logf receives progress messages. It defaults to glog at V(2).
	Logf func(format string, args ...any)

	places   map[string]uint32
	objects  []*dulf.ObjectFile
	symbols  *dulf.SymbolTable
	sections map[sectionKey]*dulf.Section
}

// Executable is the linked program: every input section at its final
// address, in address order.
type Executable struct {
	Sections []*dulf.Section
	Symbols  *dulf.SymbolTable
}

// MakeLinker returns a linker that will put each section named in places
// at the given address. Unnamed sections follow the placed ones.
func MakeLinker(places map[string]uint32) *Linker {
	own := make(map[string]uint32, len(places))
	for name, addr := range places {
		own[name] = addr
	}
	return &Linker{
		Logf:     glog.V(2).Infof,
		places:   own,
		symbols:  dulf.NewSymbolTable(),
		sections: make(map[sectionKey]*dulf.Section),
	}
}

// GenerateExecutable runs every linking stage over objects, in the order
// they were given.
func (l *Linker) GenerateExecutable(objects []*dulf.ObjectFile) (*Executable, error) {
	l.objects = objects

	glog.V(1).Infof("linking %d objects", len(objects))
	if err := l.MergeSymbols(); err != nil {
		return nil, err
	}
	if err := l.CheckUnresolved(); err != nil {
		return nil, err
	}
	placed, err := l.FormSections()
	if err != nil {
		return nil, err
	}
	if err := CheckOverlap(placed); err != nil {
		return nil, err
	}
	if err := l.Relocate(); err != nil {
		return nil, err
	}
	glog.V(1).Infof("linked %d sections", len(placed))
	return &Executable{Sections: placed, Symbols: l.symbols}, nil
}

// CheckUnresolved fails on the first merged symbol, by name, that no file
// defines.
func (l *Linker) CheckUnresolved() error {
	for _, sym := range l.symbols.All() {
		if sym.Extern || sym.Section == dulf.UndefinedSection || !sym.Defined {
			return dubcc.NewError(dubcc.ErrUnresolvedSymbol, sym.Name)
		}
	}
	return nil
}
