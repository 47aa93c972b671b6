// Package visualization emits diagram artifacts from machine definitions.
package visualization

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/exp/slices"

	"github.com/orthofsm/ortho"
)

// DOTGenerator generates Graphviz DOT format representations of machine
// definitions. Regions render as clusters; error, submachine and
// interrupt states carry their own styling.
type DOTGenerator struct {
	def     *ortho.Definition
	options DOTOptions
}

// DOTOptions configures the DOT generation
type DOTOptions struct {
	ShowGuards          bool
	ShowSynthesized     bool
	RankDirection       string // "TB", "LR", "BT", "RL"
	NodeShape           string
	SubmachineShape     string
	InternalEdgeStyle   string
	SynthesizedEdgeTint string
}

// DefaultDOTOptions returns sensible default options for DOT generation
func DefaultDOTOptions() DOTOptions {
	return DOTOptions{
		ShowGuards:          true,
		ShowSynthesized:     false,
		RankDirection:       "TB",
		NodeShape:           "box",
		SubmachineShape:     "box3d",
		InternalEdgeStyle:   "dashed",
		SynthesizedEdgeTint: "gray60",
	}
}

// NewDOTGenerator creates a new DOT generator for the given definition
func NewDOTGenerator(def *ortho.Definition, options ...DOTOptions) *DOTGenerator {
	opts := DefaultDOTOptions()
	if len(options) > 0 {
		opts = options[0]
	}
	return &DOTGenerator{def: def, options: opts}
}

// Generate creates a DOT representation of the machine definition
func (g *DOTGenerator) Generate() (string, error) {
	if g.def == nil {
		return "", fmt.Errorf("no definition")
	}

	var dot strings.Builder
	dot.WriteString(fmt.Sprintf("digraph %q {\n", g.def.Name()))
	dot.WriteString(fmt.Sprintf("  rankdir=%s;\n", g.options.RankDirection))
	dot.WriteString(fmt.Sprintf("  node [shape=%s];\n", g.options.NodeShape))
	dot.WriteString("  edge [fontsize=10];\n\n")

	for _, region := range g.def.Regions() {
		g.generateRegion(&dot, region)
	}

	dot.WriteString("}\n")
	return dot.String(), nil
}

func (g *DOTGenerator) generateRegion(dot *strings.Builder, region *ortho.Region) {
	multi := len(g.def.Regions()) > 1
	indent := "  "
	if multi {
		dot.WriteString(fmt.Sprintf("  subgraph cluster_region_%d {\n", region.ID))
		dot.WriteString(fmt.Sprintf("    label=\"region %d\";\n", region.ID))
		indent = "    "
	}

	states := append([]string(nil), region.States...)
	slices.Sort(states)
	for _, name := range states {
		dot.WriteString(indent)
		g.generateStateNode(dot, region, name)
	}

	for _, t := range region.Transitions {
		if t.Synthesized() && !g.options.ShowSynthesized {
			continue
		}
		dot.WriteString(indent)
		g.generateEdge(dot, t)
	}

	if multi {
		dot.WriteString("  }\n")
	}
	dot.WriteString("\n")
}

func (g *DOTGenerator) generateStateNode(dot *strings.Builder, region *ortho.Region, name string) {
	shape := g.options.NodeShape
	fillColor := "lightblue"
	label := name

	switch {
	case name == region.Initial:
		fillColor = "lightgreen"
		label += "\\n(initial)"
	case name == g.def.ErrorState():
		fillColor = "lightcoral"
		label += "\\n(error)"
	}
	if g.def.IsSubmachine(name) {
		shape = g.options.SubmachineShape
		label += "\\n(submachine)"
	}
	for _, ie := range region.Interrupts {
		if ie.State == name {
			label += "\\n(interrupt)"
		}
	}

	dot.WriteString(fmt.Sprintf("\"%s\" [shape=%s style=\"filled\" fillcolor=%s label=\"%s\"];\n",
		name, shape, fillColor, label))
}

func (g *DOTGenerator) generateEdge(dot *strings.Builder, t ortho.TransitionDef) {
	label := t.Event
	if t.Guard != nil && g.options.ShowGuards {
		label += " [guarded]"
	}

	attrs := []string{fmt.Sprintf("label=\"%s\"", label)}
	if t.Kind == ortho.TransitionKindInternal {
		attrs = append(attrs, fmt.Sprintf("style=%s", g.options.InternalEdgeStyle))
	}
	if t.Synthesized() {
		attrs = append(attrs, fmt.Sprintf("color=%s fontcolor=%s",
			g.options.SynthesizedEdgeTint, g.options.SynthesizedEdgeTint))
	}

	dot.WriteString(fmt.Sprintf("\"%s\" -> \"%s\" [%s];\n", t.Source, t.Target, strings.Join(attrs, " ")))
}

// GenerateToFile writes the DOT representation to a file
func (g *DOTGenerator) GenerateToFile(filename string) error {
	content, err := g.Generate()
	if err != nil {
		return err
	}
	return os.WriteFile(filename, []byte(content), 0644)
}

// GenerateSVG creates an SVG representation by calling Graphviz
func (g *DOTGenerator) GenerateSVG() (string, error) {
	dotContent, err := g.Generate()
	if err != nil {
		return "", err
	}

	cmd := exec.Command("dot", "-Tsvg")
	cmd.Stdin = strings.NewReader(dotContent)

	var out bytes.Buffer
	cmd.Stdout = &out

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("failed to execute dot command: %w (make sure Graphviz is installed)", err)
	}

	return out.String(), nil
}
