package report

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
)

const (
	kindColumnHeaderConstant       = "Kind"
	totalColumnHeaderConstant      = "Total"
	completedColumnHeaderConstant  = "Completed"
	skippedColumnHeaderConstant    = "Skipped"
	failedColumnHeaderConstant     = "Failed"
	overallRowLabelConstant        = "overall"
	durationLineTemplateConstant   = "Run duration: %s\n"
	warningLineTemplateConstant    = "warning: %s\n"
	errorLineTemplateConstant      = "error: %s\n"
	truncationLineTemplateConstant = "... and %d more\n"
	maxRenderedIssuesConstant      = 5

	instanceColumnHeaderConstant = "Instance"
	reachableColumnHeaderConst   = "Reachable"
	usersColumnHeaderConstant    = "Users"
	groupsColumnHeaderConstant   = "Groups"
	projectsColumnHeaderConstant = "Projects"
	detailColumnHeaderConstant   = "Detail"
	reachableYesValueConstant    = "yes"
	reachableNoValueConstant     = "no"
)

// CountsRow aggregates result totals for one entity kind.
type CountsRow struct {
	Label     string
	Total     int
	Completed int
	Skipped   int
	Failed    int
}

// RunView is the renderable form of one migration run.
type RunView struct {
	Rows     []CountsRow
	Overall  CountsRow
	Duration time.Duration
	Warnings []string
	Errors   []string
}

// InstanceRow reports reachability and entity counts for one instance.
type InstanceRow struct {
	Label     string
	Reachable bool
	Users     int
	Groups    int
	Projects  int
	Detail    string
}

// WriteRun renders the per kind counts, duration, and collected issues.
func WriteRun(outputWriter io.Writer, runView RunView) {
	summaryTable := table.NewWriter()
	summaryTable.SetOutputMirror(outputWriter)
	summaryTable.AppendHeader(table.Row{kindColumnHeaderConstant, totalColumnHeaderConstant, completedColumnHeaderConstant, skippedColumnHeaderConstant, failedColumnHeaderConstant})

	for _, countsRow := range runView.Rows {
		summaryTable.AppendRow(table.Row{countsRow.Label, countsRow.Total, countsRow.Completed, countsRow.Skipped, countsRow.Failed})
	}
	summaryTable.AppendFooter(table.Row{overallRowLabelConstant, runView.Overall.Total, runView.Overall.Completed, runView.Overall.Skipped, runView.Overall.Failed})
	summaryTable.Render()

	fmt.Fprintf(outputWriter, durationLineTemplateConstant, runView.Duration.Round(time.Millisecond))

	writeIssueLines(outputWriter, warningLineTemplateConstant, runView.Warnings)
	writeIssueLines(outputWriter, errorLineTemplateConstant, runView.Errors)
}

// WriteInstances renders connectivity and entity counts per instance.
func WriteInstances(outputWriter io.Writer, instanceRows []InstanceRow) {
	statusTable := table.NewWriter()
	statusTable.SetOutputMirror(outputWriter)
	statusTable.AppendHeader(table.Row{instanceColumnHeaderConstant, reachableColumnHeaderConst, usersColumnHeaderConstant, groupsColumnHeaderConstant, projectsColumnHeaderConstant, detailColumnHeaderConstant})

	for _, instanceRow := range instanceRows {
		reachableValue := reachableNoValueConstant
		if instanceRow.Reachable {
			reachableValue = reachableYesValueConstant
		}
		statusTable.AppendRow(table.Row{instanceRow.Label, reachableValue, instanceRow.Users, instanceRow.Groups, instanceRow.Projects, instanceRow.Detail})
	}
	statusTable.Render()
}

func writeIssueLines(outputWriter io.Writer, lineTemplate string, issueMessages []string) {
	renderedIssueCount := len(issueMessages)
	if renderedIssueCount > maxRenderedIssuesConstant {
		renderedIssueCount = maxRenderedIssuesConstant
	}
	for _, issueMessage := range issueMessages[:renderedIssueCount] {
		fmt.Fprintf(outputWriter, lineTemplate, issueMessage)
	}
	if len(issueMessages) > maxRenderedIssuesConstant {
		fmt.Fprintf(outputWriter, truncationLineTemplateConstant, len(issueMessages)-maxRenderedIssuesConstant)
	}
}
