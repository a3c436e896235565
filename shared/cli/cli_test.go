package cli

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func check(t *testing.T, a1 any, a2 any) {
	t.Helper()
	if a1 != a2 {
		t.Errorf("%[1]v (a %[1]T) != %[2]v (a %[2]T)", a1, a2)
	}
}

func TestNormalizeArgs(t *testing.T) {
	in := []string{"-hex", "-place=text@0x40", "-o", "out.hex", "--debug", "-place", "data@16", "a.o", "-v=2"}
	got := NormalizeArgs(in, "hex", "place", "debug")
	want := []string{"--hex", "--place=text@0x40", "-o", "out.hex", "--debug", "--place", "data@16", "a.o", "-v=2"}
	check(t, strings.Join(want, " "), strings.Join(got, " "))
}

func TestNormalizeArgsStopsAtDoubleDash(t *testing.T) {
	got := NormalizeArgs([]string{"-debug", "--", "-debug"}, "debug")
	check(t, "--debug -- -debug", strings.Join(got, " "))
}

func TestWriteOutputLeavesNoPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out")
	err := WriteOutput(path, func(w io.Writer) error {
		io.WriteString(w, "half")
		return errors.New("boom")
	})
	check(t, "boom", err.Error())
	_, statErr := os.Stat(path)
	check(t, true, os.IsNotExist(statErr))

	check(t, nil, WriteOutput(path, func(w io.Writer) error {
		_, err := io.WriteString(w, "whole")
		return err
	}))
	data, err := os.ReadFile(path)
	check(t, nil, err)
	check(t, true, bytes.Equal([]byte("whole"), data))
}
