// Copyright 2026 The JazzPetri Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package flow

import (
	"fmt"
	"strings"
)

func dotShape(k Kind) string {
	switch {
	case k == KindTask:
		return "box"
	case k.IsSplit() || k == KindThreadSplit:
		return "triangle"
	case k.IsJoin() || k == KindSimpleMerge:
		return "invtriangle"
	case k.IsLoop():
		return "doubleoctagon"
	default:
		return "box3d"
	}
}

func label(n *Node) string {
	name := n.Name
	if name == "" {
		name = fmt.Sprintf("f%d", n.ID)
	}
	switch {
	case n.Kind == KindTask:
		return fmt.Sprintf("%s\n(activity %d)", name, n.Activity)
	case n.Kind == KindPartialJoin || n.Kind.IsThreadJoin():
		return fmt.Sprintf("%s\n%s %d/%d", name, n.Kind, n.AcceptValue(), n.Incoming())
	case n.Kind == KindThreadSplit:
		return fmt.Sprintf("%s\n%s x%d", name, n.Kind, n.Instances)
	default:
		return fmt.Sprintf("%s\n%s", name, n.Kind)
	}
}

// ToDOT generates a Graphviz DOT representation of the graph. Structured
// bodies are drawn as clusters; dashed edges lead into and out of a body.
func (g *Graph) ToDOT() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("digraph \"%s\" {\n", escapeLabel(g.Name)))
	sb.WriteString("  rankdir=LR;\n")
	sb.WriteString("  node [fontname=\"Helvetica\"];\n")
	sb.WriteString("  edge [fontname=\"Helvetica\"];\n\n")

	var write func(parent ID, indent string)
	write = func(parent ID, indent string) {
		for _, n := range g.nodes {
			if n.Parent != parent {
				continue
			}
			sb.WriteString(fmt.Sprintf("%sf%d [label=\"%s\" shape=%s];\n",
				indent, n.ID, escapeLabel(label(n)), dotShape(n.Kind)))
			if n.Kind.IsStructured() {
				sb.WriteString(fmt.Sprintf("%ssubgraph cluster_%d {\n", indent, n.ID))
				sb.WriteString(fmt.Sprintf("%s  label=\"%s\";\n", indent, escapeLabel(n.Name)))
				write(n.ID, indent+"  ")
				sb.WriteString(indent + "}\n")
			}
		}
	}
	write(NoFlow, "  ")
	sb.WriteString("\n")

	for _, n := range g.nodes {
		for i, s := range n.Successors {
			attr := ""
			if n.Conditions[i] != nil {
				attr = " [label=\"cond\"]"
			}
			sb.WriteString(fmt.Sprintf("  f%d -> f%d%s;\n", n.ID, s, attr))
		}
		if n.Kind.IsStructured() {
			sb.WriteString(fmt.Sprintf("  f%d -> f%d [style=dashed];\n", n.ID, n.Initial))
			sb.WriteString(fmt.Sprintf("  f%d -> f%d [style=dashed];\n", n.Final, n.ID))
		}
	}

	sb.WriteString("}\n")
	return sb.String()
}

// ToMermaid generates a Mermaid flowchart of the graph.
func (g *Graph) ToMermaid() string {
	var sb strings.Builder
	sb.WriteString("graph LR\n")

	for _, n := range g.nodes {
		text := escapeMermaidLabel(strings.ReplaceAll(label(n), "\n", "<br/>"))
		switch {
		case n.Kind == KindTask:
			sb.WriteString(fmt.Sprintf("  f%d[%s]\n", n.ID, text))
		case n.Kind.IsSplit() || n.Kind == KindThreadSplit || n.Kind.IsJoin() || n.Kind == KindSimpleMerge:
			sb.WriteString(fmt.Sprintf("  f%d{%s}\n", n.ID, text))
		default:
			sb.WriteString(fmt.Sprintf("  f%d[[%s]]\n", n.ID, text))
		}
	}

	for _, n := range g.nodes {
		for i, s := range n.Successors {
			if n.Conditions[i] != nil {
				sb.WriteString(fmt.Sprintf("  f%d -->|cond| f%d\n", n.ID, s))
			} else {
				sb.WriteString(fmt.Sprintf("  f%d --> f%d\n", n.ID, s))
			}
		}
		if n.Kind.IsStructured() {
			sb.WriteString(fmt.Sprintf("  f%d -.-> f%d\n", n.ID, n.Initial))
			sb.WriteString(fmt.Sprintf("  f%d -.-> f%d\n", n.Final, n.ID))
		}
	}

	return sb.String()
}

// escapeLabel escapes special characters for DOT format.
func escapeLabel(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}

// escapeMermaidLabel escapes special characters for Mermaid format.
func escapeMermaidLabel(s string) string {
	s = strings.ReplaceAll(s, "\"", "&quot;")
	s = strings.ReplaceAll(s, "<br/>", "\x00")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return strings.ReplaceAll(s, "\x00", "<br/>")
}
