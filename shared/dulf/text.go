package dulf

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	dubcc "dubcc/shared"
)

const (
	symbolsHeader     = "Symbols Table"
	sectionsHeader    = "Sections code"
	sectionPrefix     = "Section: "
	relocationsHeader = "Relocations Table"

	bytesPerRow = 8
)

var (
	symbolColumns = fmt.Sprintf("  %-24s %-24s %-14s %-9s %-9s %-7s %-7s %-8s %s",
		"SymbolName", "SectionName", "Value", "IsGlobal", "IsExtern", "Number", "Size", "Defined", "File")
	relocationColumns = fmt.Sprintf("  %-24s %-16s %-10s %s",
		"SymbolName", "RelocationType", "Location", "SectionName")
)

// Write serializes obj in the text object format. Output only depends on
// the contents of obj.
func (obj *ObjectFile) Write(w io.Writer) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintln(bw, symbolsHeader)
	fmt.Fprintln(bw, symbolColumns)
	for _, sym := range obj.Symbols.All() {
		line := fmt.Sprintf("  %-24s %-24s %-14d %-9d %-9d %-7d %-7d %-8d %s",
			sym.Name, sym.Section, sym.Value, b2i(sym.Global), b2i(sym.Extern),
			sym.Number, sym.Size, b2i(sym.Defined), sym.File)
		fmt.Fprintln(bw, strings.TrimRight(line, " "))
	}
	fmt.Fprintln(bw)

	fmt.Fprintln(bw, sectionsHeader)
	for _, sec := range obj.Sections {
		fmt.Fprintf(bw, "%s%s\n", sectionPrefix, sec.Name)
		for i := 0; i < len(sec.Code); i += bytesPerRow {
			row := sec.Code[i:min(i+bytesPerRow, len(sec.Code))]
			for j, b := range row {
				if j > 0 {
					bw.WriteByte(' ')
				}
				fmt.Fprintf(bw, "%02x", b)
			}
			bw.WriteByte('\n')
		}
		fmt.Fprintln(bw)
	}

	fmt.Fprintln(bw, relocationsHeader)
	fmt.Fprintln(bw, relocationColumns)
	for _, r := range obj.Relocations.All() {
		fmt.Fprintf(bw, "  %-24s %-16s %-10d %s\n", r.Symbol, r.Type, r.Location, r.Section)
	}
	return bw.Flush()
}

// WriteFile writes obj to path in one go.
func (obj *ObjectFile) WriteFile(path string) error {
	var sb strings.Builder
	if err := obj.Write(&sb); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(sb.String()), 0o644)
}

type readState byte

const (
	stateEnterFile readState = iota
	stateSymbols
	stateSections
	stateRelocations
)

// Read parses an object in the text format. name becomes the object's
// Name and is stamped on every error.
func Read(name string, r io.Reader) (*ObjectFile, error) {
	obj := NewObjectFile(name)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	state := stateEnterFile
	skipHeader := false
	var current *Section
	lineNo := 0

	malformed := func(format string, args ...any) error {
		return &dubcc.Error{
			Kind: dubcc.ErrMalformedObject,
			File: name,
			Line: lineNo,
			Err:  fmt.Errorf(format, args...),
		}
	}

	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "":
			continue
		case line == symbolsHeader:
			state, skipHeader = stateSymbols, true
			continue
		case line == sectionsHeader:
			state = stateSections
			continue
		case line == relocationsHeader:
			state, skipHeader = stateRelocations, true
			continue
		case strings.HasPrefix(line, sectionPrefix):
			if state != stateSections {
				return nil, malformed("section block outside of section code")
			}
			secName := strings.TrimSpace(strings.TrimPrefix(line, sectionPrefix))
			sec, err := obj.AddSection(secName)
			if err != nil {
				return nil, malformed("duplicate section %q", secName)
			}
			current = sec
			continue
		}
		if skipHeader {
			skipHeader = false
			continue
		}

		fields := strings.Fields(line)
		switch state {
		case stateSymbols:
			sym, err := parseSymbol(fields)
			if err != nil {
				return nil, malformed("%v", err)
			}
			if obj.Symbols.Get(sym.Name) != nil {
				return nil, malformed("duplicate symbol %q", sym.Name)
			}
			obj.Symbols.Insert(sym)
		case stateSections:
			if current == nil {
				return nil, malformed("section bytes before any section")
			}
			for _, f := range fields {
				b, err := strconv.ParseUint(f, 16, 8)
				if err != nil {
					return nil, malformed("bad byte %q", f)
				}
				current.AppendBytes(byte(b))
			}
		case stateRelocations:
			rel, err := parseRelocation(fields)
			if err != nil {
				return nil, malformed("%v", err)
			}
			obj.Relocations.Add(rel)
		default:
			return nil, malformed("unexpected %q", line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, &dubcc.Error{Kind: dubcc.ErrMalformedObject, File: name, Err: err}
	}
	return obj, nil
}

// ReadFile opens path and reads the object stored there.
func ReadFile(path string) (*ObjectFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(path, f)
}

func parseSymbol(fields []string) (*Symbol, error) {
	if len(fields) != 8 && len(fields) != 9 {
		return nil, fmt.Errorf("symbol row has %d fields", len(fields))
	}
	value, err := strconv.ParseUint(fields[2], 10, 32)
	if err != nil {
		return nil, fmt.Errorf("symbol value: %w", err)
	}
	global, err := parseFlag(fields[3])
	if err != nil {
		return nil, err
	}
	extern, err := parseFlag(fields[4])
	if err != nil {
		return nil, err
	}
	number, err := strconv.Atoi(fields[5])
	if err != nil {
		return nil, fmt.Errorf("symbol number: %w", err)
	}
	size, err := strconv.Atoi(fields[6])
	if err != nil {
		return nil, fmt.Errorf("symbol size: %w", err)
	}
	defined, err := parseFlag(fields[7])
	if err != nil {
		return nil, err
	}
	sym := &Symbol{
		Name:    fields[0],
		Section: fields[1],
		Value:   uint32(value),
		Global:  global,
		Extern:  extern,
		Number:  number,
		Size:    size,
		Defined: defined,
	}
	if len(fields) == 9 {
		sym.File = fields[8]
	}
	return sym, nil
}

func parseRelocation(fields []string) (Relocation, error) {
	if len(fields) != 4 {
		return Relocation{}, fmt.Errorf("relocation row has %d fields", len(fields))
	}
	typ, ok := ParseRelocationType(fields[1])
	if !ok {
		return Relocation{}, fmt.Errorf("unknown relocation type %q", fields[1])
	}
	loc, err := strconv.ParseUint(fields[2], 10, 32)
	if err != nil {
		return Relocation{}, fmt.Errorf("relocation location: %w", err)
	}
	return Relocation{
		Symbol:   fields[0],
		Type:     typ,
		Location: uint32(loc),
		Section:  fields[3],
	}, nil
}

func parseFlag(s string) (bool, error) {
	switch s {
	case "0":
		return false, nil
	case "1":
		return true, nil
	}
	return false, fmt.Errorf("bad flag %q", s)
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}
