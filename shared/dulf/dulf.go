// Package dulf holds the object file model shared by the assembler, the
// linker and objdump, plus its plain-text interchange format.
package dulf

import (
	"cmp"
	"encoding/binary"
	"fmt"
	"slices"

	dubcc "dubcc/shared"
)

// UndefinedSection is the pseudo-section of symbols that are referenced
// or imported but not defined in the file.
const UndefinedSection = "UND"

// NotASection is the Size of ordinary symbols. Section symbols carry the
// byte length of their section instead.
const NotASection = -1

type Symbol struct {
	Name    string
	Section string
	Value   uint32
	Global  bool
	Extern  bool
	Number  int
	Size    int
	Defined bool
	// File is the object the symbol came from. Only the linker sets it.
	File string
}

func (s *Symbol) IsSection() bool {
	return s.Size != NotASection
}

type SymbolTable struct {
	table map[string]*Symbol
	next  int
}

func NewSymbolTable() *SymbolTable {
	return &SymbolTable{table: make(map[string]*Symbol)}
}

// New creates a symbol with the next sequence number. The caller must
// have checked that name is free.
func (st *SymbolTable) New(name, section string, value uint32, size int) *Symbol {
	sym := &Symbol{
		Name:    name,
		Section: section,
		Value:   value,
		Number:  st.next,
		Size:    size,
	}
	st.next++
	st.table[name] = sym
	return sym
}

// Insert stores sym as is, replacing any symbol with the same name.
func (st *SymbolTable) Insert(sym *Symbol) {
	st.table[sym.Name] = sym
	st.next = max(st.next, sym.Number+1)
}

func (st *SymbolTable) Get(name string) *Symbol {
	return st.table[name]
}

func (st *SymbolTable) Len() int {
	return len(st.table)
}

// All returns the symbols ordered by name.
func (st *SymbolTable) All() []*Symbol {
	out := make([]*Symbol, 0, len(st.table))
	for _, sym := range st.table {
		out = append(out, sym)
	}
	slices.SortFunc(out, func(a, b *Symbol) int { return cmp.Compare(a.Name, b.Name) })
	return out
}

type RelocationType byte

const (
	RelocNone RelocationType = iota
	// RelocSymbol patches in the address of the symbol.
	RelocSymbol
	// RelocSymbolIndirect patches in the address of the memory word the
	// instruction reads through.
	RelocSymbolIndirect
)

func (t RelocationType) String() string {
	switch t {
	case RelocSymbol:
		return "SYMBOL"
	case RelocSymbolIndirect:
		return "SYMBOL_INDIRECT"
	}
	return "NONE"
}

func ParseRelocationType(s string) (RelocationType, bool) {
	switch s {
	case "SYMBOL":
		return RelocSymbol, true
	case "SYMBOL_INDIRECT":
		return RelocSymbolIndirect, true
	case "NONE":
		return RelocNone, true
	}
	return RelocNone, false
}

type Relocation struct {
	Symbol   string
	Type     RelocationType
	Location uint32
	Section  string
}

// RelocationTable keeps several relocations per symbol. Iteration is by
// symbol name, then insertion order.
type RelocationTable struct {
	table map[string][]Relocation
	count int
}

func NewRelocationTable() *RelocationTable {
	return &RelocationTable{table: make(map[string][]Relocation)}
}

func (rt *RelocationTable) Add(r Relocation) {
	rt.table[r.Symbol] = append(rt.table[r.Symbol], r)
	rt.count++
}

func (rt *RelocationTable) Get(symbol string) []Relocation {
	return rt.table[symbol]
}

func (rt *RelocationTable) Len() int {
	return rt.count
}

func (rt *RelocationTable) All() []Relocation {
	names := make([]string, 0, len(rt.table))
	for name := range rt.table {
		names = append(names, name)
	}
	slices.Sort(names)
	out := make([]Relocation, 0, rt.count)
	for _, name := range names {
		out = append(out, rt.table[name]...)
	}
	return out
}

type Section struct {
	Name string
	// File names the object the section was read from.
	File string
	Code []byte
	// Location is the load address, assigned by the linker.
	Location uint32
	Placed   bool
}

func NewSection(name string) *Section {
	return &Section{Name: name}
}

func (s *Section) Len() uint32 {
	return uint32(len(s.Code))
}

func (s *Section) End() uint32 {
	return s.Location + s.Len()
}

func (s *Section) AppendBytes(b ...byte) {
	s.Code = append(s.Code, b...)
}

func (s *Section) AppendWord(w uint32) {
	s.Code = binary.BigEndian.AppendUint32(s.Code, w)
}

func (s *Section) AppendZeros(n uint32) {
	s.Code = append(s.Code, make([]byte, n)...)
}

// PatchWord overwrites the big-endian word at offset.
func (s *Section) PatchWord(offset, w uint32) error {
	if uint64(offset)+dubcc.WordSize > uint64(len(s.Code)) {
		return fmt.Errorf("patch at %#x past end of section %s (%d bytes)", offset, s.Name, len(s.Code))
	}
	binary.BigEndian.PutUint32(s.Code[offset:], w)
	return nil
}

func (s *Section) Word(offset uint32) uint32 {
	return binary.BigEndian.Uint32(s.Code[offset:])
}

type ObjectFile struct {
	Name        string
	Symbols     *SymbolTable
	Relocations *RelocationTable
	Sections    []*Section
	index       map[string]*Section
}

func NewObjectFile(name string) *ObjectFile {
	return &ObjectFile{
		Name:        name,
		Symbols:     NewSymbolTable(),
		Relocations: NewRelocationTable(),
		index:       make(map[string]*Section),
	}
}

// AddSection appends an empty section. Section names are unique per file.
func (obj *ObjectFile) AddSection(name string) (*Section, error) {
	if _, dup := obj.index[name]; dup {
		return nil, dubcc.NewError(dubcc.ErrSectionRedefined, name)
	}
	sec := NewSection(name)
	sec.File = obj.Name
	obj.Sections = append(obj.Sections, sec)
	obj.index[name] = sec
	return sec, nil
}

func (obj *ObjectFile) Section(name string) *Section {
	return obj.index[name]
}
