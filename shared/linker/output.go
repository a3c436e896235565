package linker

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

const hexRowBytes = 8

// WriteHex prints the image as rows of up to eight bytes, each row led
// by the address of its first byte.
func (exe *Executable) WriteHex(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, sec := range exe.Sections {
		for i := 0; i < len(sec.Code); i += hexRowBytes {
			fmt.Fprintf(bw, "%04X:", sec.Location+uint32(i))
			for _, b := range sec.Code[i:min(i+hexRowBytes, len(sec.Code))] {
				fmt.Fprintf(bw, " %02X", b)
			}
			bw.WriteByte('\n')
		}
	}
	return bw.Flush()
}

// Block is a run of memory with no gap in it.
type Block struct {
	Address uint32
	Code    []byte
}

// Blocks joins the non-empty sections, already in address order, into
// runs. A section that starts where the previous one ends extends its run.
func (exe *Executable) Blocks() []Block {
	var blocks []Block
	for _, sec := range exe.Sections {
		if sec.Len() == 0 {
			continue
		}
		if n := len(blocks); n > 0 {
			last := &blocks[n-1]
			if uint64(last.Address)+uint64(len(last.Code)) == uint64(sec.Location) {
				last.Code = append(last.Code, sec.Code...)
				continue
			}
		}
		code := make([]byte, 0, sec.Len())
		blocks = append(blocks, Block{Address: sec.Location, Code: append(code, sec.Code...)})
	}
	return blocks
}

// WriteImage writes the addressed memory image: for every block a
// big-endian load address and byte count, then the bytes. Gaps between
// blocks take no space.
func (exe *Executable) WriteImage(w io.Writer) error {
	bw := bufio.NewWriter(w)
	var header [8]byte
	for _, b := range exe.Blocks() {
		binary.BigEndian.PutUint32(header[:4], b.Address)
		binary.BigEndian.PutUint32(header[4:], uint32(len(b.Code)))
		bw.Write(header[:])
		bw.Write(b.Code)
	}
	return bw.Flush()
}
