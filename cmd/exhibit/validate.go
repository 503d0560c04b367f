package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/exhibit/pkg/loader"
)

var errInvalidScene = errors.New("scene has configuration problems")

var validateCmd = &cobra.Command{
	Use:   "validate [scene]",
	Short: "Check the scene for configuration problems",
	Long: `Loads the scene and reports every configuration problem: a missing player,
unnamed or duplicate regions and nodes without or with duplicate ids.
Regions with problems are skipped at runtime; a missing player stops the engine.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		strict, _ := cmd.Flags().GetBool("strict")
		return runValidate(cmd, scenePath(cmd, args), strict)
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().Bool("strict", false, "Fail on any problem, not only on fatal ones")
}

func runValidate(cmd *cobra.Command, path string, strict bool) error {
	s, err := loader.Load(path)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	problems := s.Check()
	for _, p := range problems {
		fmt.Fprintf(out, "- %v\n", p)
	}
	if err := loader.Fatal(problems); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if strict && len(problems) > 0 {
		return fmt.Errorf("validation failed: %w (%d)", errInvalidScene, len(problems))
	}

	fmt.Fprintf(out, "Scene %q: %d of %d regions usable ✅\n", s.Name, len(s.Usable()), len(s.Regions))
	return nil
}
