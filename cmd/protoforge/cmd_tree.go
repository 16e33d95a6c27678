package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"protoforge/internal/proto"
	"protoforge/internal/tree"
)

var (
	treeNodeStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	treeMetaStyle = lipgloss.NewStyle().Faint(true)
)

var treeCmd = &cobra.Command{
	Use:   "tree [id]",
	Short: "Print the resolved tree of one prototype",
	Args:  cobra.ExactArgs(1),
	RunE:  runTree,
}

func runTree(cmd *cobra.Command, args []string) error {
	_, reg, loader, err := newSession()
	if err != nil {
		return err
	}
	if err := loader.LoadAll(cmd.Context()); err != nil {
		return err
	}

	id := proto.ID(args[0])
	t, ok := reg.TreeByID(id)
	if !ok {
		return fmt.Errorf("no registered prototype with id %q", args[0])
	}

	var b strings.Builder
	renderTree(&b, t, 0)
	fmt.Print(b.String())
	return nil
}

func renderTree(b *strings.Builder, t *tree.ProtoTree, depth int) {
	meta := fmt.Sprintf("prototypes=%d", len(t.Prototypes()))
	if key, ok := t.MergeKey(); ok {
		meta += " key=" + key
	}
	if !t.RequiresEntity() {
		meta += " no-entity"
	}

	fmt.Fprintf(b, "%s%s %s\n",
		strings.Repeat("  ", depth),
		treeNodeStyle.Render(string(t.ID())),
		treeMetaStyle.Render("("+meta+")"))

	for _, child := range t.Children() {
		renderTree(b, child, depth+1)
	}
}
