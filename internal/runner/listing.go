package runner

import (
	"fmt"
	"io"
	"strings"

	"gecko/pkg/chunk"
	"gecko/pkg/color"
)

// printListing writes a colored disassembly of c and its nested bodies
func (opts *Runner) printListing(c *chunk.Chunk) {
	WriteListing(opts.Stdout, c)
}

// WriteListing renders a chunk listing, one instruction per row with its
// stack effect, nested bodies indented under the instruction that owns them
func WriteListing(w io.Writer, c *chunk.Chunk) {
	fmt.Fprintln(w, color.Header("Disassembly of "+c.Name))

	var sb strings.Builder
	for _, l := range c.Listing() {
		if l.Label != "" && l.Index == 0 {
			sb.WriteString(color.Indent(color.MagentaText("["+l.Label+"]"), 2*l.Depth))
			sb.WriteString("\n")
		}

		pops, pushes := l.Instr.StackEffect()
		row := fmt.Sprintf("%s %s %s",
			color.GrayText(fmt.Sprintf("%04d", l.Index)),
			color.YellowText(fmt.Sprintf("%-5s", l.Instr.Op)),
			color.BlueText(l.Instr.Operands()))
		sb.WriteString(color.Indent(strings.TrimRight(row, " "), 2*l.Depth))
		sb.WriteString(color.GrayText(fmt.Sprintf("  ; -%d+%d %s", pops, pushes, l.Instr.Addr)))
		sb.WriteString("\n")
	}

	fmt.Fprint(w, sb.String())
}
