package irtext

import (
	"fmt"
	"strconv"
	"strings"

	"chakravyuha/internal/ir"
)

// Print renders m in the same textual notation Lower parses, reusing
// ir/stringer.go's per-instruction and per-terminator String() methods
// directly rather than re-implementing their formatting here.
func Print(m *ir.Module) string {
	var b strings.Builder
	fmt.Fprintf(&b, "module %q {\n", m.Name)
	for _, g := range m.Globals {
		b.WriteString(indent(1) + globalString(m, g) + "\n")
	}
	for _, fn := range m.Functions {
		b.WriteString(functionString(fn))
	}
	b.WriteString("}\n")
	return b.String()
}

func indent(level int) string {
	return strings.Repeat("  ", level)
}

func globalString(m *ir.Module, g *ir.GlobalVariable) string {
	var s strings.Builder
	fmt.Fprintf(&s, "global @%s = ", g.Name)
	if g.Constant {
		s.WriteString("constant ")
	}
	fmt.Fprintf(&s, "i8* %s", strconv.Quote(string(g.Initializer.Data)))
	if m.IsCompilerUsed(g) {
		s.WriteString(" used")
	}
	return s.String()
}

func functionString(fn *ir.Function) string {
	var b strings.Builder
	switch {
	case fn.Declaration:
		fmt.Fprintf(&b, "%sdeclare func @%s()\n", indent(1), fn.Name)
		return b.String()
	case fn.Intrinsic:
		fmt.Fprintf(&b, "%sintrinsic func @%s()\n", indent(1), fn.Name)
		return b.String()
	}
	fmt.Fprintf(&b, "%sfunc @%s() {\n", indent(1), fn.Name)
	for _, block := range fn.Blocks {
		fmt.Fprintf(&b, "%s%s:\n", indent(2), block.Label)
		for _, inst := range block.Instructions {
			fmt.Fprintf(&b, "%s%s\n", indent(3), inst.String())
		}
		if block.Terminator != nil {
			fmt.Fprintf(&b, "%s%s\n", indent(3), block.Terminator.String())
		}
	}
	b.WriteString(indent(1) + "}\n")
	return b.String()
}
