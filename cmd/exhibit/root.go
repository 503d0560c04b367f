package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/exhibit"
	"github.com/aretw0/exhibit/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "exhibit",
	Short: "Exhibit is a trigger driven navigation engine for guided tours",
	Long: `Exhibit turns a scene file of regions and nodes into a navigable tour.
Visitors move through trigger volumes; the engine tracks the current node,
the history of visited nodes and the audio, visuals and NPC guide that
follow them.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringP("scene", "s", "scene.yaml", "Scene file describing regions and nodes")
	rootCmd.PersistentFlags().String("log-level", "warn", "Log level: debug, info, warn or error")
}

// newLogger builds the stderr logger from --log-level.
func newLogger(cmd *cobra.Command) (*slog.Logger, error) {
	raw, _ := cmd.Flags().GetString("log-level")
	level, err := logging.ParseLevel(raw)
	if err != nil {
		return nil, err
	}
	return logging.New(level), nil
}

// openExhibit loads the scene named by --scene, or by the first argument when the flag was not
// set, and builds the engine.
func openExhibit(cmd *cobra.Command, args []string, opts ...exhibit.Option) (*exhibit.Exhibit, *slog.Logger, error) {
	logger, err := newLogger(cmd)
	if err != nil {
		return nil, nil, err
	}
	ex, err := exhibit.New(scenePath(cmd, args), append([]exhibit.Option{exhibit.WithLogger(logger)}, opts...)...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load scene: %w", err)
	}
	return ex, logger, nil
}

func scenePath(cmd *cobra.Command, args []string) string {
	path, _ := cmd.Flags().GetString("scene")
	if !cmd.Flags().Changed("scene") && len(args) > 0 {
		path = args[0]
	}
	return path
}
