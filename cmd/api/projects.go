package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bluecarbon/registry/internal/services"
	"github.com/bluecarbon/registry/internal/storage"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func (c *cli) projectsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "Inspect submitted projects",
	}

	var limit int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the most recent submissions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := c.setup()
			if err != nil {
				return err
			}
			defer logger.Sync()

			repo, err := openRepository(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer repo.Close()

			if limit <= 0 || limit > services.MaxListLimit {
				limit = services.MaxListLimit
			}
			projects, err := repo.ListRecentProjects(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("failed to list projects: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(projects) == 0 {
				fmt.Fprintln(out, "No projects submitted yet.")
				return nil
			}

			fmt.Fprintf(out, "%-36s %-5s %-10s %-12s %10s  %s\n", "ID", "TYPE", "STATUS", "ECOSYSTEM", "AREA (HA)", "TITLE")
			for _, p := range projects {
				fmt.Fprintf(out, "%-36s %-5s %-10s %-12s %10.2f  %s\n", p.ID, p.Type, p.Status, p.Ecosystem, p.AreaHa, p.Title)
			}
			return nil
		},
	}
	listCmd.Flags().IntVar(&limit, "limit", 50, "maximum number of projects to show")

	showCmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Print one submission with its files as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid project id %q: %w", args[0], err)
			}

			cfg, logger, err := c.setup()
			if err != nil {
				return err
			}
			defer logger.Sync()

			repo, err := openRepository(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer repo.Close()

			detail, err := repo.GetProject(cmd.Context(), id)
			if err != nil {
				if errors.Is(err, storage.ErrNotFound) {
					return fmt.Errorf("project %s not found", id)
				}
				return fmt.Errorf("failed to get project: %w", err)
			}

			data, err := json.MarshalIndent(map[string]any{
				"type":    detail.Type,
				"project": detail.Project(),
				"files":   detail.Files,
			}, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode project: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}

	cmd.AddCommand(listCmd)
	cmd.AddCommand(showCmd)
	return cmd
}
