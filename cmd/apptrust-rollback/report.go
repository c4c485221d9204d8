package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/bookverse/apptrust-rollback/internal/rollback"
)

// buildReport renders the run summary as markdown.
func buildReport(r *rollback.Result) string {
	var b strings.Builder
	b.WriteString("# Rollback Summary\n\n")
	if r.DryRun {
		b.WriteString("**DRY RUN** — no mutations were issued.\n\n")
	}
	fmt.Fprintf(&b, "- Application: `%s`\n", r.AppKey)
	fmt.Fprintf(&b, "- Target version: `%s` (prior tag: %q)\n", r.TargetVersion, r.PriorTag)
	fmt.Fprintf(&b, "- Stage: %s -> %s\n", r.StageBefore, r.StageAfter)
	switch r.Outcome {
	case rollback.OutcomeLatestReassigned:
		fmt.Fprintf(&b, "- Latest: reassigned to `%s`\n", r.SuccessorVersion)
	case rollback.OutcomeNoSuccessor:
		b.WriteString("- Latest: no successor; unassigned until the next promotion\n")
	case rollback.OutcomeLatestUnchanged:
		b.WriteString("- Latest: unchanged\n")
	}
	fmt.Fprintf(&b, "- Run ID: `%s`\n", r.RunID)
	return b.String()
}

// renderReport renders the summary for the terminal, falling back to
// raw markdown when the renderer cannot be built.
func renderReport(r *rollback.Result) string {
	md := buildReport(r)
	renderer, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		return md
	}
	out, err := renderer.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n")
}
