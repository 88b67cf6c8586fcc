// seqgraph_nodes inspects a saved seqgraph model file: node topology, sample
// shapes and the memory one minibatch column takes.
package main

import (
	"flag"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/gomlx/seqgraph/backends"
	_ "github.com/gomlx/seqgraph/backends/simplego"
	"github.com/gomlx/seqgraph/graph"
	"github.com/janpfeifer/must"
	"k8s.io/klog/v2"
)

var (
	flagSummary = flag.Bool("summary", true, "Display a summary of the model: dtype, node counts and "+
		"the memory one sample of every node takes.")
	flagNodes = flag.Bool("nodes", false, "Lists every node with its inputs and its validated sample shape.")
)

func main() {
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		klog.Errorf("Missing model file to read from. See 'seqgraph_nodes -help'.")
		os.Exit(1)
	}
	if len(args) > 1 {
		klog.Errorf("Too many arguments. See 'seqgraph_nodes -help'.")
		os.Exit(1)
	}
	report(args[0])
}

var (
	headerRowStyle = lipgloss.NewStyle().Reverse(true).
			Padding(0, 2, 0, 2).Align(lipgloss.Center)

	oddRowStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFF")).
			PaddingLeft(1).PaddingRight(1)
	evenRowStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#999")).
			PaddingLeft(1).PaddingRight(1)

	titleStyle = lipgloss.NewStyle().Bold(true).Padding(1, 4, 1, 4)
)

func newPlainTable(withHeader bool) *lgtable.Table {
	return lgtable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("99"))).
		StyleFunc(func(row, col int) (s lipgloss.Style) {
			if withHeader && row == 1 {
				s = headerRowStyle
				return
			}
			switch {
			case row%2 == 0:
				// Even row style.
				s = oddRowStyle
			default:
				// Odd row style
				s = evenRowStyle
			}
			if col == 0 {
				s = s.Align(lipgloss.Right)
			} else {
				s = s.Align(lipgloss.Left)
			}
			return
		})
}

func report(modelPath string) {
	g := must.M1(graph.Load(modelPath, backends.New()))
	// Shapes are not stored in the model, validation re-derives them.
	must.M(g.ValidateAll())

	if *flagSummary {
		fmt.Println(titleStyle.Render("Summary"))
		table := newPlainTable(false)
		table.Row("model", modelPath)
		table.Row("backend", g.Backend().Name())
		table.Row("dtype", g.DType().String())
		table.Row("# nodes", humanize.Comma(int64(g.NumNodes())))

		kindCounts := make(map[graph.NodeKind]int)
		var totalElements int
		var totalMemory uintptr
		for _, n := range g.Nodes() {
			kindCounts[n.Kind()]++
			totalElements += n.SampleShape().Size()
			totalMemory += n.SampleShape().Memory(g.DType())
		}
		table.Row("# sample elements", humanize.Comma(int64(totalElements)))
		table.Row("sample bytes", humanize.Bytes(uint64(totalMemory)))

		kinds := make([]graph.NodeKind, 0, len(kindCounts))
		for kind := range kindCounts {
			kinds = append(kinds, kind)
		}
		slices.Sort(kinds)
		for _, kind := range kinds {
			table.Row("# "+kind.String(), humanize.Comma(int64(kindCounts[kind])))
		}
		fmt.Println(table.Render())
	}

	if *flagNodes {
		fmt.Println(titleStyle.Render("Nodes"))
		table := newPlainTable(true)
		table.Row("Name", "Kind", "Inputs", "Sample", "Elements", "Bytes", "Minibatch")
		for _, n := range g.Nodes() {
			inputs := make([]string, len(n.Inputs()))
			for i, in := range n.Inputs() {
				inputs[i] = in.Name()
			}
			minibatch := "no"
			if n.Layout() != nil {
				minibatch = "yes"
			}
			shape := n.SampleShape()
			table.Row(n.Name(), n.Kind().String(), strings.Join(inputs, ", "), shape.String(),
				humanize.Comma(int64(shape.Size())),
				humanize.Bytes(uint64(shape.Memory(g.DType()))),
				minibatch)
		}
		fmt.Println(table.Render())
	}
}
