/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: dump.go
Description: Human-readable tree dumps for the engine's verbose output. Exception paths
are coloured yellow when colourization is on.
*/

package exectree

import (
	"fmt"
	"strings"

	"github.com/kleascm/akaylee-pathfinder/pkg/trace"
)

// DumpOptions controls the tree dump contents.
type DumpOptions struct {
	PrintPrefix bool
	PrintDepth  bool
	PrintInputs bool
	Colorize    bool
}

const maxDumpedInputs = 5

func indent(depth int) string { return strings.Repeat("    ", depth) }

func epathString(p trace.ExecPath) string {
	parts := make([]string, len(p))
	for i, pcid := range p {
		parts[i] = fmt.Sprintf("0x%X", uint32(pcid))
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func (n *Node) dump(sb *strings.Builder, opts DumpOptions) {
	var body strings.Builder
	if opts.PrintPrefix {
		body.WriteString(indent(n.depth) + "prefix: " + epathString(n.prefix) + "\n")
	}
	if opts.PrintDepth {
		body.WriteString(fmt.Sprintf("%sdepth: %d\n", indent(n.depth), n.depth))
	}
	if n.cond != nil {
		body.WriteString(indent(n.depth) + "cond: " + n.cond.String() + "\n")
	}

	if n.leaf && opts.PrintInputs && len(n.inputset) > 0 {
		i := 0
		for _, in := range n.inputset {
			prefix := indent(n.depth) + "        "
			if i == 0 {
				prefix = indent(n.depth) + "input: {"
			}
			if i >= maxDumpedInputs {
				body.WriteString(fmt.Sprintf("%s... +%d inputs", prefix, len(n.inputset)-maxDumpedInputs))
				break
			}
			body.WriteString(prefix + n.tree.sig.InputString(in))
			if i != len(n.inputset)-1 {
				body.WriteString(",\n")
			}
			i++
		}
		body.WriteString("}\n")
	}

	text := body.String()
	if opts.Colorize && n.exceptionPath && text != "" {
		text = "\033[33m" + text + "\033[m"
	}
	sb.WriteString(text)

	for _, child := range n.children {
		child.dump(sb, opts)
	}
}

// Dump renders the tree.
func (t *Tree) Dump(opts DumpOptions) string {
	if t.IsEmpty() {
		return ""
	}
	var sb strings.Builder
	t.root.dump(&sb, opts)
	return sb.String()
}

// String renders the tree with prefixes and conditions, uncoloured.
func (t *Tree) String() string {
	return t.Dump(DumpOptions{PrintPrefix: true, PrintInputs: true})
}
