// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package nfa

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/exp/slices"
)

// Graphviz accumulates a dot rendering of an automaton.
type Graphviz struct {
	nodes []string
	edges []string
}

func (dot *Graphviz) addNode(id QID, start, accept bool) {
	shape := "circle"
	switch {
	case start && accept:
		shape = "doubleoctagon"
	case accept:
		shape = "doublecircle"
	case start:
		shape = "octagon"
	}
	dot.nodes = append(dot.nodes, fmt.Sprintf("\ts%d [shape=%s];\n", id, shape))
}

func (dot *Graphviz) addEdge(from, to QID, label string) {
	dot.edges = append(dot.edges, fmt.Sprintf("\ts%d -> s%d [label=\"%s\"];\n", from, to, label))
}

// Dot returns the Graphviz rendering of a.
// Left branches are labelled with their marker
// position so that the ordering is visible.
func (a *Automaton) Dot() *Graphviz {
	dot := new(Graphviz)
	a.Each(func(id QID, s State) {
		dot.addNode(id, id == a.q0, id == a.f)
		switch s.Fanout() {
		case 1:
			dot.addEdge(id, s.Left, s.Label.String())
		case 2:
			dot.addEdge(id, s.Left, s.Label.String()+" [L]")
			dot.addEdge(id, s.Right, s.Label.String()+" [R]")
		}
	})
	return dot
}

// DotContent writes the graph to dst.
func (dot *Graphviz) DotContent(dst io.Writer, graphName, graphTitle string) error {
	_, err := fmt.Fprintf(dst, "digraph %v {\n\trankdir=LR;\n", graphName)
	if err != nil {
		return err
	}
	slices.Sort(dot.nodes)
	for _, s := range dot.nodes {
		if _, err := io.WriteString(dst, s); err != nil {
			return err
		}
	}
	slices.Sort(dot.edges)
	for _, s := range dot.edges {
		if _, err := io.WriteString(dst, s); err != nil {
			return err
		}
	}
	graphTitle = strings.ReplaceAll(graphTitle, `\`, `\\`)
	graphTitle = strings.ReplaceAll(graphTitle, `"`, `\"`)
	_, err = fmt.Fprintf(dst, "\tlabelloc=\"t\";\n\tlabel=\"%v: %v\";\n}\n", graphName, graphTitle)
	return err
}
