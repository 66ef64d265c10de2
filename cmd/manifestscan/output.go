package main

import (
	"encoding/json"
	"fmt"
	"io"
	"manifestscan/internal/db"
	"manifestscan/internal/scan"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	failedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
)

func statusText(failed bool) string {
	if failed {
		return failedStyle.Render("failed")
	}
	return okStyle.Render("ok")
}

// report is the --json shape of one run.
type report struct {
	Run     db.Run      `json:"run"`
	Results []db.Result `json:"results"`
}

func newReport(run *scan.Run) report {
	r := report{Run: run.Record(), Results: make([]db.Result, 0, len(run.Results))}
	for _, res := range run.Results {
		r.Results = append(r.Results, db.NewResult(run.ID, res.Analyzer, res.Ecosystem, res.Artifact, res.Err))
	}
	return r
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func relPath(root, path string) string {
	if rel, err := filepath.Rel(root, path); err == nil && !filepath.IsAbs(rel) && rel != "." {
		return rel
	}
	return path
}

// printResults renders one row per artifact. Status is the last column so
// styling escapes do not disturb alignment.
func printResults(out io.Writer, root string, results []db.Result) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PATH\tANALYZER\tIDENTITY\tLICENSE\tSTATUS")
	for _, r := range results {
		label := r.DisplayLabel
		if label == "" {
			label = "-"
		}
		license := r.License
		if license == "" {
			license = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", relPath(root, r.Path), r.Analyzer, label, license, statusText(r.Failed()))
	}
	w.Flush()

	for _, r := range results {
		if r.Failed() {
			fmt.Fprintf(out, "%s %s\n", failedStyle.Render("error:"), r.Error)
		}
	}
}

func printRun(out io.Writer, run *scan.Run) {
	rep := newReport(run)
	printResults(out, run.Root, rep.Results)
	fmt.Fprintf(out, "\n%d artifacts, %d failed %s\n",
		rep.Run.Total, rep.Run.Failed,
		dimStyle.Render(fmt.Sprintf("(run %s, %s)", run.ID, run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond))))
}

func printRunDetail(out io.Writer, run db.Run, results []db.Result) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Run:\t%s\n", run.ID)
	fmt.Fprintf(w, "Root:\t%s\n", run.Root)
	fmt.Fprintf(w, "Started:\t%s\n", run.StartedAt.Format(time.RFC1123))
	if !run.FinishedAt.IsZero() {
		fmt.Fprintf(w, "Duration:\t%s\n", run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond))
	}
	fmt.Fprintf(w, "Artifacts:\t%d (%d failed)\n", run.Total, run.Failed)
	w.Flush()
	fmt.Fprintln(out)
	printResults(out, run.Root, results)
}

func runLine(r db.Run) string {
	return fmt.Sprintf("%s  %s  %-40s  %d artifacts, %d failed",
		r.ID, r.StartedAt.Local().Format("2006-01-02 15:04"), r.Root, r.Total, r.Failed)
}
