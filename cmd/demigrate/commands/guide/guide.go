// Package guide implements the guide command: the embedded migration
// walkthrough rendered as markdown.
package guide

import (
	_ "embed"
	"fmt"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/demigrate/demigrate/pkg/style"
)

//go:embed guide.md
var guideMarkdown string

// NewCommand creates the guide command
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "guide",
		Short: MsgShort,
		Long:  MsgLong,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Print(render(guideMarkdown))
			return nil
		},
	}

	return cmd
}

// render converts the embedded markdown for the terminal, falling back to
// the raw text when rendering fails or output is piped.
func render(content string) string {
	if !style.IsTerminal() {
		return content
	}

	renderer, err := glamour.NewTermRenderer(glamour.WithAutoStyle())
	if err != nil {
		return content
	}

	rendered, err := renderer.Render(content)
	if err != nil {
		return content
	}
	return rendered
}
