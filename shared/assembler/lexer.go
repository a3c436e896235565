package assembler

import (
	"regexp"
	"strings"

	dubcc "dubcc/shared"
)

type TokenKind byte

const (
	TokNone TokenKind = iota
	TokComma
	TokEnd
	TokDirective
	TokRegisterIndirect // [ ... ]
	TokRegister         // %rN
	TokRegisterSpecial  // %sp, %pc
	TokStatusRegister   // %status, %handler, %cause
	TokDecimalIndirect  // 12
	TokHexIndirect      // 0x1f
	TokDecimal          // $12
	TokHex              // $0x1f
	TokInstruction
	TokLabel
	TokSymbolIndirect // $sym
	TokSymbol
)

var tokenNames = [...]string{
	TokNone:             "none",
	TokComma:            "comma",
	TokEnd:              "end",
	TokDirective:        "directive",
	TokRegisterIndirect: "register indirect",
	TokRegister:         "register",
	TokRegisterSpecial:  "special register",
	TokStatusRegister:   "status register",
	TokDecimalIndirect:  "decimal",
	TokHexIndirect:      "hex",
	TokDecimal:          "decimal literal",
	TokHex:              "hex literal",
	TokInstruction:      "instruction",
	TokLabel:            "label",
	TokSymbolIndirect:   "symbol literal",
	TokSymbol:           "symbol",
}

func (k TokenKind) String() string {
	return tokenNames[k]
}

type Token struct {
	Kind TokenKind
	// Text is the lexeme with its decoration removed: labels lose the
	// trailing ':' and literals lose the leading '$'.
	Text string
}

type rule struct {
	kind TokenKind
	re   *regexp.Regexp
}

// Order matters: the first matching rule classifies the lexeme.
var rules = []rule{
	{TokComma, regexp.MustCompile(`^,$`)},
	{TokEnd, regexp.MustCompile(`^\.end$`)},
	{TokDirective, regexp.MustCompile(`^\.(global|extern|section|word|skip)$`)},
	{TokRegisterIndirect, regexp.MustCompile(`^\[.*\]$`)},
	{TokRegister, regexp.MustCompile(`^%r([0-9]{1,2})$`)},
	{TokRegisterSpecial, regexp.MustCompile(`^%(pc|sp)$`)},
	{TokStatusRegister, regexp.MustCompile(`^%(status|handler|cause)$`)},
	{TokDecimalIndirect, regexp.MustCompile(`^\d+$`)},
	{TokHexIndirect, regexp.MustCompile(`^0x[0-9a-fA-F]+$`)},
	{TokDecimal, regexp.MustCompile(`^\$\d+$`)},
	{TokHex, regexp.MustCompile(`^\$0x[0-9a-fA-F]+$`)},
	{TokInstruction, regexp.MustCompile(`^(halt|int|iret|call|ret|jmp|beq|bne|bgt|push|pop|xchg|add|sub|mul|div|not|and|or|xor|shl|shr|ld|st|csrrd|csrwr)(eq|ne|gt|ge|lt|le|al)?(s)?$`)},
	{TokLabel, regexp.MustCompile(`^[a-zA-Z_]\w*:$`)},
	{TokSymbolIndirect, regexp.MustCompile(`^\$[a-zA-Z_]\w*$`)},
	{TokSymbol, regexp.MustCompile(`^[a-zA-Z_]\w*$`)},
}

// Classify returns the kind of the first rule lexeme matches, TokNone if
// none does.
func Classify(lexeme string) TokenKind {
	for _, r := range rules {
		if r.re.MatchString(lexeme) {
			return r.kind
		}
	}
	return TokNone
}

func undecorate(kind TokenKind, lexeme string) string {
	switch kind {
	case TokLabel:
		return strings.TrimSuffix(lexeme, ":")
	case TokDecimal, TokHex, TokSymbolIndirect:
		return strings.TrimPrefix(lexeme, "$")
	}
	return lexeme
}

// StripComment drops everything from the first '#'.
func StripComment(line string) string {
	code, _, _ := strings.Cut(line, "#")
	return code
}

// Tokenize splits one comment-stripped source line. Whitespace and commas
// separate lexemes, commas are tokens of their own, a bracketed operand is
// kept whole and a lone ':' is glued to the lexeme before it.
func Tokenize(line string, lineNo int) ([]Token, error) {
	var lexemes []string
	i := 0
	for i < len(line) {
		c := line[i]
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\v' || c == '\f':
			i++
		case c == ',':
			lexemes = append(lexemes, ",")
			i++
		case c == '[':
			end := strings.IndexByte(line[i:], ']')
			if end < 0 {
				lexemes = append(lexemes, strings.TrimSpace(line[i:]))
				i = len(line)
				break
			}
			lexemes = append(lexemes, line[i:i+end+1])
			i += end + 1
		default:
			j := i
			for j < len(line) && !strings.ContainsRune(" \t\r\v\f,[", rune(line[j])) {
				j++
			}
			word := line[i:j]
			i = j
			if word == ":" && len(lexemes) > 0 && lexemes[len(lexemes)-1] != "," {
				lexemes[len(lexemes)-1] += ":"
				continue
			}
			lexemes = append(lexemes, word)
		}
	}

	tokens := make([]Token, 0, len(lexemes))
	for _, lx := range lexemes {
		kind := Classify(lx)
		if kind == TokNone {
			return nil, dubcc.LineError(dubcc.ErrUnknownToken, lineNo, lx)
		}
		tokens = append(tokens, Token{Kind: kind, Text: undecorate(kind, lx)})
	}
	return tokens, nil
}
