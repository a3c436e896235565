package dubcc

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind doubles as the sentinel for its category, so callers can
// test with errors.Is(err, dubcc.ErrSyntax).
type ErrorKind byte

const (
	ErrInternal ErrorKind = iota
	ErrUnknownToken
	ErrSyntax
	ErrIllegalLineStart
	ErrNoSection
	ErrSymbolRedefined
	ErrDefiningExtern
	ErrGlobalExtern
	ErrImportingDefined
	ErrSectionRedefined
	ErrUndefinedSymbol
	ErrOperandTooLarge
	ErrUnsupportedJumpOperand
	ErrLabelSectionConflict
	ErrMultipleDefinition
	ErrUnresolvedSymbol
	ErrSectionsOverlap
	ErrAddressOverflow
	ErrMalformedObject
	ErrUsage
	ErrBadOpcode
	ErrTruncated
)

var kindNames = [...]string{
	ErrInternal:               "internal error",
	ErrUnknownToken:           "unknown token",
	ErrSyntax:                 "syntax error",
	ErrIllegalLineStart:       "illegal line start",
	ErrNoSection:              "no section",
	ErrSymbolRedefined:        "symbol redefined",
	ErrDefiningExtern:         "defining extern symbol",
	ErrGlobalExtern:           "symbol both global and extern",
	ErrImportingDefined:       "importing defined symbol",
	ErrSectionRedefined:       "section redefined",
	ErrUndefinedSymbol:        "undefined symbol",
	ErrOperandTooLarge:        "operand too large",
	ErrUnsupportedJumpOperand: "unsupported jump operand",
	ErrLabelSectionConflict:   "label/section conflict",
	ErrMultipleDefinition:     "multiple definition",
	ErrUnresolvedSymbol:       "unresolved symbol",
	ErrSectionsOverlap:        "sections overlap",
	ErrAddressOverflow:        "section runs past the end of memory",
	ErrMalformedObject:        "malformed object",
	ErrUsage:                  "usage",
	ErrBadOpcode:              "bad opcode",
	ErrTruncated:              "truncated instruction",
}

func (k ErrorKind) Error() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("error kind %d", byte(k))
}

// Error is the diagnostic returned by every stage. Line and File locate
// it in the input when known; Name and Other carry the offending
// identifiers.
type Error struct {
	Kind  ErrorKind
	Name  string
	Other string
	Line  int
	File  string
	Err   error
}

func NewError(kind ErrorKind, name string) *Error {
	return &Error{Kind: kind, Name: name}
}

func LineError(kind ErrorKind, line int, name string) *Error {
	return &Error{Kind: kind, Name: name, Line: line}
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.File != "" {
		b.WriteString(e.File)
		b.WriteString(": ")
	}
	if e.Line > 0 {
		fmt.Fprintf(&b, "line %d: ", e.Line)
	}
	b.WriteString(e.Kind.Error())
	switch {
	case e.Name != "" && e.Other != "":
		fmt.Fprintf(&b, ": %q and %q", e.Name, e.Other)
	case e.Name != "":
		fmt.Fprintf(&b, ": %q", e.Name)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

// InFile stamps err with the file it came from unless it already has one.
func InFile(err error, file string) error {
	var de *Error
	if errors.As(err, &de) && de.File == "" {
		de.File = file
	}
	return err
}

// KindOf extracts the category of err, ErrInternal when it carries none.
func KindOf(err error) ErrorKind {
	var k ErrorKind
	if errors.As(err, &k) {
		return k
	}
	return ErrInternal
}
