package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/exhibit/internal/config"
	"github.com/aretw0/exhibit/pkg/session"
)

var errNoPersistence = errors.New("tours are only persisted when EXHIBIT_REDIS_ADDR is set")

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage persisted tours",
	Long:  `List, inspect, and remove the navigation checkpoints that "exhibit serve" keeps in Redis.`,
}

var sessionLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List all persisted tours",
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, closeStore, err := openSessions(cmd)
		if err != nil {
			return err
		}
		defer closeStore()

		tours, err := mgr.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("error listing tours: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(tours) == 0 {
			fmt.Fprintln(out, "No persisted tours found.")
			return nil
		}
		fmt.Fprintln(out, "Persisted Tours:")
		for _, t := range tours {
			fmt.Fprintln(out, "- "+t)
		}
		return nil
	},
}

var sessionInspectCmd = &cobra.Command{
	Use:   "inspect <tour-id>",
	Short: "Print the checkpoint of a tour",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, closeStore, err := openSessions(cmd)
		if err != nil {
			return err
		}
		defer closeStore()

		snap, err := mgr.Load(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("error loading tour '%s': %w", args[0], err)
		}
		data, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

var sessionRmCmd = &cobra.Command{
	Use:   "rm <tour-id>...",
	Short: "Remove one or more tours",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, closeStore, err := openSessions(cmd)
		if err != nil {
			return err
		}
		defer closeStore()

		var errs []error
		for _, id := range args {
			if err := mgr.Delete(cmd.Context(), id); err != nil {
				errs = append(errs, fmt.Errorf("error removing '%s': %w", id, err))
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed tour '%s'\n", id)
		}
		return errors.Join(errs...)
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionLsCmd)
	sessionCmd.AddCommand(sessionInspectCmd)
	sessionCmd.AddCommand(sessionRmCmd)
}

func openSessions(cmd *cobra.Command) (*session.Manager, func(), error) {
	cfg, err := config.LoadServer()
	if err != nil {
		return nil, nil, err
	}
	if !cfg.UseRedis() {
		return nil, nil, errNoPersistence
	}
	logger, err := newLogger(cmd)
	if err != nil {
		return nil, nil, err
	}
	return newSessions(cfg, logger)
}
