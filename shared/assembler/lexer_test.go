package assembler

import (
	"errors"
	"testing"

	dubcc "dubcc/shared"
)

func check(t *testing.T, a1 any, a2 any) {
	t.Helper()
	if a1 != a2 {
		t.Errorf("%[1]v (a %[1]T) != %[2]v (a %[2]T)", a1, a2)
	}
}

func TestClassify(t *testing.T) {
	cases := map[string]TokenKind{
		",":            TokComma,
		".end":         TokEnd,
		".word":        TokDirective,
		"[%r1 + 4]":    TokRegisterIndirect,
		"%r12":         TokRegister,
		"%sp":          TokRegisterSpecial,
		"%cause":       TokStatusRegister,
		"42":           TokDecimalIndirect,
		"0x2a":         TokHexIndirect,
		"$42":          TokDecimal,
		"$0x2A":        TokHex,
		"ld":           TokInstruction,
		"start:":       TokLabel,
		"$value":       TokSymbolIndirect,
		"value":        TokSymbol,
		"_under_score": TokSymbol,
		"%r123":        TokNone,
		"$":            TokNone,
		"1abc":         TokNone,
	}
	for lexeme, kind := range cases {
		if got := Classify(lexeme); got != kind {
			t.Errorf("Classify(%q) = %v, want %v", lexeme, got, kind)
		}
	}
}

func TestClassifyPrefersInstruction(t *testing.T) {
	// mnemonics are valid identifiers too
	check(t, TokInstruction, Classify("halt"))
	check(t, TokSymbol, Classify("halting"))
	check(t, TokDirective, Classify(".section"))
	check(t, TokNone, Classify(".text"))
}

func TestTokenizeInstruction(t *testing.T) {
	tokens, err := Tokenize("loop: beq %r1,%r2, $target", 1)
	check(t, nil, err)
	kinds := []TokenKind{TokLabel, TokInstruction, TokRegister, TokComma, TokRegister, TokComma, TokSymbolIndirect}
	texts := []string{"loop", "beq", "%r1", ",", "%r2", ",", "target"}
	check(t, len(kinds), len(tokens))
	for i := range tokens {
		check(t, kinds[i], tokens[i].Kind)
		check(t, texts[i], tokens[i].Text)
	}
}

func TestTokenizeBrackets(t *testing.T) {
	tokens, err := Tokenize("ld [%r1 + 0x10], %r2", 3)
	check(t, nil, err)
	check(t, 4, len(tokens))
	check(t, TokRegisterIndirect, tokens[1].Kind)
	check(t, "[%r1 + 0x10]", tokens[1].Text)
	check(t, TokRegister, tokens[3].Kind)
}

func TestTokenizeDetachedColon(t *testing.T) {
	tokens, err := Tokenize("main : halt", 1)
	check(t, nil, err)
	check(t, 2, len(tokens))
	check(t, TokLabel, tokens[0].Kind)
	check(t, "main", tokens[0].Text)
}

func TestTokenizeUnknown(t *testing.T) {
	_, err := Tokenize("add %r1, @r2", 9)
	check(t, true, errors.Is(err, dubcc.ErrUnknownToken))
	var de *dubcc.Error
	check(t, true, errors.As(err, &de))
	check(t, 9, de.Line)
	check(t, "@r2", de.Name)
}

func TestStripComment(t *testing.T) {
	check(t, "halt ", StripComment("halt # stop here"))
	check(t, "", StripComment("# only a comment"))
	tokens, err := Tokenize(StripComment("   # indented"), 1)
	check(t, nil, err)
	check(t, 0, len(tokens))
}
