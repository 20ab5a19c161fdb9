package main

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/davecgh/go-spew/spew"

	"goacpi/ns"
)

var (
	pathStyle     = lipgloss.NewStyle().Bold(true).Underline(true)
	cursorStyle   = lipgloss.NewStyle().Reverse(true)
	listStyle     = lipgloss.NewStyle().MarginRight(4)
	helpStyle     = lipgloss.NewStyle().Faint(true)
	detailCaption = lipgloss.NewStyle().Bold(true)
)

// nodeDetail is the exported summary of a node rendered in the detail pane.
type nodeDetail struct {
	Name     string
	Kind     string
	Path     string
	Children int

	MethodArgCount uint8
	Serialized     bool
	RegionSpace    ns.RegionSpace
	RegionBase     uint64
	RegionLen      uint64
	BitOffset      uint64
	BitSize        uint64
	AliasTarget    string
	Value          interface{}
}

type model struct {
	nsp *ns.Namespace

	cur      *ns.Node
	children []*ns.Node
	sel      int
}

// childrenOf collects the children of node in child-index order.
func childrenOf(node *ns.Node) []*ns.Node {
	var out []*ns.Node
	it := ns.NewChildIterator(node)
	for child := it.Next(); child != nil; child = it.Next() {
		out = append(out, child)
	}
	return out
}

func newModel(nsp *ns.Namespace) model {
	root := nsp.Root()
	return model{
		nsp:      nsp,
		cur:      root,
		children: childrenOf(root),
	}
}

// Init is the first function that will be called. It returns an optional
// initial command. To not perform an initial command return nil.
func (m model) Init() tea.Cmd {
	return nil
}

// Update is called when a message is received. Use it to inspect messages
// and, in response, update the model and/or send a command.
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit

		case "j", "down":
			if m.sel < len(m.children)-1 {
				m.sel++
			}

		case "k", "up":
			if m.sel > 0 {
				m.sel--
			}

		case "enter", "l":
			if m.sel < len(m.children) {
				next := m.children[m.sel]
				if target := next.Target; next.Kind() == ns.KindAlias && target != nil {
					next = target
				}
				if next.ChildCount() > 0 {
					m.cur = next
					m.children = childrenOf(next)
					m.sel = 0
				}
			}

		case "h", "backspace":
			if parent := m.cur.Parent(); parent != nil {
				m.cur = parent
				m.children = childrenOf(parent)
				m.sel = 0
			}
		}
	}
	return m, nil
}

func (m model) detail() string {
	if m.sel >= len(m.children) {
		return "(no children)"
	}

	node := m.children[m.sel]
	d := nodeDetail{
		Name:     node.Name(),
		Kind:     node.Kind().String(),
		Path:     node.Path(),
		Children: node.ChildCount(),
	}

	switch node.Kind() {
	case ns.KindMethod:
		d.MethodArgCount = node.MethodArgCount()
		d.Serialized = node.MethodSerialized()
	case ns.KindOpRegion:
		d.RegionSpace = node.RegionSpace
		d.RegionBase = node.RegionBase
		d.RegionLen = node.RegionLen
	case ns.KindField, ns.KindIndexField, ns.KindBufferField:
		d.BitOffset = node.BitOffset
		d.BitSize = node.BitSize
	case ns.KindAlias:
		if node.Target != nil {
			d.AliasTarget = node.Target.Path()
		}
	case ns.KindName:
		d.Value = node.Value
	}

	return detailCaption.Render("Selected node") + "\n" + spew.Sdump(d)
}

func (m model) list() string {
	if len(m.children) == 0 {
		return "(no children)"
	}

	lines := make([]string, len(m.children))
	for i, child := range m.children {
		line := fmt.Sprintf("%s  %-15s", child.Name(), child.Kind())
		if i == m.sel {
			line = cursorStyle.Render(line)
		}
		lines[i] = line
	}
	return strings.Join(lines, "\n")
}

// View renders the program's UI, which is just a string. The view is
// rendered after every Update.
func (m model) View() string {
	return lipgloss.JoinVertical(
		lipgloss.Left,
		pathStyle.Render(m.cur.Path()),
		"",
		lipgloss.JoinHorizontal(
			lipgloss.Top,
			listStyle.Render(m.list()),
			m.detail(),
		),
		"",
		helpStyle.Render("j/k: move  enter: descend  backspace: up  q: quit"),
	)
}

// browse starts the interactive namespace browser for nsp.
func browse(nsp *ns.Namespace) error {
	_, err := tea.NewProgram(newModel(nsp)).Run()
	return err
}
