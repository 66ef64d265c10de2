package main

import (
	"errors"
	"fmt"
	"manifestscan/internal/db"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/spf13/cobra"
)

var askOne = survey.AskOne

func init() {
	historyCmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show saved scan runs",
		Long: `Displays the results of a saved scan run. Without a run id the most
recent runs are listed and one can be selected interactively.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistory,
	}
	historyCmd.Flags().Int("limit", 20, "Number of runs to list")
	historyCmd.Flags().Bool("list", false, "List runs without prompting")
	historyCmd.Flags().Bool("json", false, "Print the selected run as JSON")

	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	settings, err := currentSettings(cmd)
	if err != nil {
		return err
	}
	store, err := storeFactory(settings)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()

	if len(args) > 0 {
		return showRun(cmd, store, args[0])
	}

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := store.ListRuns(limit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	if len(runs) == 0 {
		cmd.Println("No scans recorded.")
		return nil
	}

	if list, _ := cmd.Flags().GetBool("list"); list {
		for _, r := range runs {
			fmt.Fprintln(cmd.OutOrStdout(), runLine(r))
		}
		return nil
	}

	options := make([]string, 0, len(runs))
	byLine := make(map[string]string, len(runs))
	for _, r := range runs {
		line := runLine(r)
		options = append(options, line)
		byLine[line] = r.ID
	}

	var selected string
	prompt := &survey.Select{
		Message:  "Select a run to view:",
		Options:  options,
		PageSize: 15,
	}
	if err := askOne(prompt, &selected); err != nil {
		if errors.Is(err, terminal.InterruptErr) {
			return nil
		}
		return fmt.Errorf("failed to select run: %w", err)
	}
	return showRun(cmd, store, byLine[selected])
}

func showRun(cmd *cobra.Command, store db.Store, id string) error {
	run, err := store.GetRun(id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return fmt.Errorf("run %q not found", id)
		}
		return fmt.Errorf("failed to load run %q: %w", id, err)
	}
	results, err := store.ListResults(id)
	if err != nil {
		return fmt.Errorf("failed to load results for run %q: %w", id, err)
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return writeJSON(cmd.OutOrStdout(), report{Run: run, Results: results})
	}
	printRunDetail(cmd.OutOrStdout(), run, results)
	return nil
}
