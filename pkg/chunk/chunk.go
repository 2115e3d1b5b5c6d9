// Package chunk defines the instruction stream executed by the virtual
// machine. A Chunk is flat: jumps address instructions of the same chunk,
// while function, type, block, loop and try bodies are nested chunks.
package chunk

import (
	"fmt"
	"io"
	"strings"
)

// Chunk is an ordered, address-tagged instruction sequence.
type Chunk struct {
	Name string        `cbor:"name,omitempty"`
	File string        `cbor:"file,omitempty"`
	Code []Instruction `cbor:"code"`
}

// Len returns the number of instructions in the chunk
func (c *Chunk) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Code)
}

// Line is one row of a chunk listing.
type Line struct {
	Depth int         // nesting depth (0 = top level)
	Label string      // section the row belongs to ("", "cond", "body", "catch", method name)
	Index int         // index inside its own chunk
	Instr Instruction // the instruction itself
}

// Listing flattens the chunk and every nested body into rows, depth first
func (c *Chunk) Listing() []Line {
	var out []Line
	c.walk(0, "", &out)
	return out
}

func (c *Chunk) walk(depth int, label string, out *[]Line) {
	if c == nil {
		return
	}

	for idx, in := range c.Code {
		*out = append(*out, Line{Depth: depth, Label: label, Index: idx, Instr: in})

		switch in.Op {
		case OpFunc:
			if in.Func != nil {
				in.Func.Body.walk(depth+1, "", out)
			}
		case OpType:
			if in.Type != nil {
				for _, m := range in.Type.Methods {
					m.Body.walk(depth+1, m.Name, out)
				}
			}
		case OpLoop:
			in.Cond.walk(depth+1, "cond", out)
			in.Body.walk(depth+1, "body", out)
		case OpBlock:
			in.Body.walk(depth+1, "", out)
		case OpTry:
			in.Body.walk(depth+1, "body", out)
			in.Handler.walk(depth+1, "catch", out)
		}
	}
}

// Disassemble writes a plain-text listing of the chunk to w
func (c *Chunk) Disassemble(w io.Writer) error {
	for _, l := range c.Listing() {
		prefix := strings.Repeat("  ", l.Depth)
		if l.Label != "" && l.Index == 0 {
			if _, err := fmt.Fprintf(w, "%s[%s]\n", prefix, l.Label); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "%s%04d %-5s %s\n", prefix, l.Index, l.Instr.Op, l.Instr.Operands()); err != nil {
			return err
		}
	}
	return nil
}
