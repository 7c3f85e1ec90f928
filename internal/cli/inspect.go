package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/FezVrasta/hassflow/pkg/graph"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// newInspectCmd creates the inspect command, an interactive browser for
// the nodes and edges of a graph.
func newInspectCmd(root *rootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <graph.json>",
		Short: "Browse a graph's nodes interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := loadGraph(args[0])
			if err != nil {
				return err
			}
			if len(g.Nodes) == 0 {
				printInfo("Graph has no nodes")
				return nil
			}

			model := newInspectModel(g)
			_, err = tea.NewProgram(model, tea.WithContext(cmd.Context())).Run()
			return err
		},
	}
}

// =============================================================================
// inspectModel - Interactive node browser
// =============================================================================

// inspectModel is the bubbletea model for graph inspection.
type inspectModel struct {
	g      *graph.Graph
	ix     *graph.Index
	cursor int
	offset int
	height int
}

func newInspectModel(g *graph.Graph) inspectModel {
	return inspectModel{
		g:      g,
		ix:     g.Index(),
		height: 12,
	}
}

func (m inspectModel) Init() tea.Cmd {
	return nil
}

func (m inspectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
				if m.cursor < m.offset {
					m.offset = m.cursor
				}
			}
		case "down", "j":
			if m.cursor < len(m.g.Nodes)-1 {
				m.cursor++
				if m.cursor >= m.offset+m.height {
					m.offset = m.cursor - m.height + 1
				}
			}
		}
	case tea.WindowSizeMsg:
		m.height = msg.Height - 14
		if m.height < 5 {
			m.height = 5
		}
	}
	return m, nil
}

func (m inspectModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Graph Inspector"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  q quit"))
	b.WriteString("\n\n")

	end := m.offset + m.height
	if end > len(m.g.Nodes) {
		end = len(m.g.Nodes)
	}

	for i := m.offset; i < end; i++ {
		n := m.g.Nodes[i]
		line := fmt.Sprintf("%-20s %s", n.ID, n.Type)
		if n.Data.Label != "" {
			line += listDimStyle.Render("  " + n.Data.Label)
		}
		if i == m.cursor {
			b.WriteString(listSelectedStyle.Render("▸ " + line))
		} else {
			b.WriteString(listNormalStyle.Render("  " + line))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.detailView(m.g.Nodes[m.cursor]))
	return b.String()
}

// detailView renders the payload and connections of the selected node.
func (m inspectModel) detailView(n graph.Node) string {
	var b strings.Builder

	b.WriteString(StyleHighlight.Render(fmt.Sprintf("%s (%s)", n.ID, n.Type)))
	b.WriteString("\n")

	if n.Data.Enabled != nil && !*n.Data.Enabled {
		b.WriteString(StyleWarning.Render("disabled"))
		b.WriteString("\n")
	}

	if payload := nodePayload(n); payload != "" {
		b.WriteString(listDimStyle.Render(payload))
		b.WriteString("\n")
	}

	for _, e := range m.ix.Outgoing(n.ID) {
		arrow := iconArrow
		if e.SourceHandle != "" {
			arrow = fmt.Sprintf("%s[%s]", iconArrow, e.SourceHandle)
		}
		b.WriteString(listDimStyle.Render(fmt.Sprintf("  %s %s", arrow, e.Target)))
		b.WriteString("\n")
	}
	return b.String()
}

// nodePayload serializes the node's variant payload as indented YAML.
func nodePayload(n graph.Node) string {
	var payload any
	switch n.Type {
	case graph.NodeTrigger:
		payload = n.Data.Trigger
	case graph.NodeCondition:
		payload = n.Data.Condition
	case graph.NodeAction:
		payload = n.Data.Service
	case graph.NodeDelay:
		payload = n.Data.Delay
	case graph.NodeWait:
		payload = n.Data.Wait
	case graph.NodeSetVariables:
		payload = n.Data.Variables
	}
	if payload == nil {
		return ""
	}
	out, err := yaml.Marshal(payload)
	if err != nil {
		return ""
	}
	return strings.TrimRight(string(out), "\n")
}
