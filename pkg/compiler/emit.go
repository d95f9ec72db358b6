package compiler

import (
	"fmt"
	"strings"
)

// LineKind discriminates the shapes of text the generator emits.
type LineKind int

const (
	LineInstruction LineKind = iota
	LineLabel
	LineDirective
	LineComment
	LineBlank
)

// Line is one line of generated assembly. Instructions carry a mnemonic, up
// to three operand strings and an optional trailing comment. Directives carry
// a name/value pair, labels and standalone comments carry their text, blanks
// carry nothing.
type Line struct {
	Kind     LineKind
	Mnemonic string
	Operands []string
	Comment  string
	Label    string
	Name     string
	Value    int
}

// Render formats the line the way pkg/asm expects it: labels in the first
// column followed by a colon, instructions indented with the mnemonic padded,
// trailing comments behind "; " at a fixed column.
func (l Line) Render() string {
	switch l.Kind {
	case LineLabel:
		return l.Label + ":"
	case LineDirective:
		return fmt.Sprintf("DEF %s, %d", l.Name, l.Value)
	case LineComment:
		return "; " + l.Comment
	case LineBlank:
		return ""
	default:
		text := "    " + l.Mnemonic
		if len(l.Operands) > 0 {
			text = fmt.Sprintf("    %-4s %s", l.Mnemonic, strings.Join(l.Operands, ", "))
		}
		if l.Comment != "" {
			if pad := 32 - len(text); pad > 0 {
				text += strings.Repeat(" ", pad)
			} else {
				text += " "
			}
			text += "; " + l.Comment
		}
		return text
	}
}

// Buffer accumulates generated lines and renders them into the text pkg/asm
// assembles. The generator only ever appends; nothing is patched after the
// fact, which is what keeps the whole pipeline single-pass.
type Buffer struct {
	lines []Line
}

// Instr appends an instruction line.
func (b *Buffer) Instr(mnemonic string, operands ...string) {
	b.lines = append(b.lines, Line{Kind: LineInstruction, Mnemonic: mnemonic, Operands: operands})
}

// Annotate attaches a trailing comment to the line emitted last. It is a
// no-op unless that line is an instruction.
func (b *Buffer) Annotate(text string) {
	if n := len(b.lines); n > 0 && b.lines[n-1].Kind == LineInstruction {
		b.lines[n-1].Comment = text
	}
}

// Label appends a label declaration.
func (b *Buffer) Label(name string) {
	b.lines = append(b.lines, Line{Kind: LineLabel, Label: name})
}

// Define appends a DEF directive binding name to a compile-time value.
func (b *Buffer) Define(name string, value int) {
	b.lines = append(b.lines, Line{Kind: LineDirective, Name: name, Value: value})
}

// Comment appends a standalone comment line.
func (b *Buffer) Comment(text string) {
	b.lines = append(b.lines, Line{Kind: LineComment, Comment: text})
}

// Blank appends an empty separator line.
func (b *Buffer) Blank() {
	b.lines = append(b.lines, Line{Kind: LineBlank})
}

// Len is the number of buffered lines.
func (b *Buffer) Len() int { return len(b.lines) }

// String renders the buffer into assembler input.
func (b *Buffer) String() string {
	var sb strings.Builder
	for _, l := range b.lines {
		sb.WriteString(l.Render())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// memOperand renders a bracketed base-plus-offset memory operand. A zero
// offset collapses to the bare base form.
func memOperand(base Reg, off int) string {
	if off == 0 {
		return fmt.Sprintf("[%s]", base)
	}
	return fmt.Sprintf("[%s, %d]", base, off)
}
