package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/aretw0/exhibit/internal/presentation/tui"
	"github.com/aretw0/exhibit/pkg/domain"
	"github.com/aretw0/exhibit/pkg/loader"
)

var describeCmd = &cobra.Command{
	Use:   "describe [scene]",
	Short: "Render the scene as a readable guide",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		region, _ := cmd.Flags().GetString("region")
		raw, _ := cmd.Flags().GetBool("raw")

		s, err := loader.Load(scenePath(cmd, args))
		if err != nil {
			return err
		}
		md, err := sceneMarkdown(s, region)
		if err != nil {
			return err
		}
		if raw {
			fmt.Fprint(cmd.OutOrStdout(), md)
			return nil
		}

		render := tui.NewRenderer(term.IsTerminal(int(os.Stdout.Fd())))
		out, err := render(md)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(describeCmd)
	describeCmd.Flags().String("region", "", "Describe only this region")
	describeCmd.Flags().Bool("raw", false, "Print markdown instead of rendering it")
}

// sceneMarkdown lists the usable regions and their nodes as markdown.
func sceneMarkdown(s *loader.Scene, only string) (string, error) {
	var b strings.Builder
	if only == "" {
		fmt.Fprintf(&b, "# %s\n\n", s.Name)
		if s.Description != "" {
			fmt.Fprintf(&b, "%s\n\n", strings.TrimSpace(s.Description))
		}
	}

	found := false
	for _, r := range s.Usable() {
		if only != "" && r.Name != only {
			continue
		}
		found = true
		fmt.Fprintf(&b, "## %s\n\n", r.Name)
		if r.Description != "" {
			fmt.Fprintf(&b, "%s\n\n", strings.TrimSpace(r.Description))
		}
		if r.AmbientAudio != "" {
			fmt.Fprintf(&b, "*Ambient:* `%s`\n\n", r.AmbientAudio)
		}
		for _, n := range r.Nodes {
			line := fmt.Sprintf("- **%s** (%s)", n.Name, n.Kind)
			if n.Description != "" {
				line += ": " + strings.TrimSpace(n.Description)
			}
			b.WriteString(line + "\n")
		}
		b.WriteString("\n")
	}
	if only != "" && !found {
		return "", fmt.Errorf("%w: %s", domain.ErrRegionNotFound, only)
	}
	return b.String(), nil
}
