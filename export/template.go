// Package export renders trip reports into printable documents and
// publishes them.
package export

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"

	"github.com/dukerupert/railinspect"
)

// NotAvailable is rendered in place of missing optional values.
const NotAvailable = "N/A"

//go:embed templates/*.html
var templateFS embed.FS

var reportTemplate = template.Must(template.New("report.html").Funcs(template.FuncMap{
	"orNA": orNA,
	"statusClass": func(s railinspect.CheckStatus) string {
		switch s {
		case railinspect.CheckStatusOK:
			return "ok"
		case railinspect.CheckStatusNotOK:
			return "not-ok"
		default:
			return "pending"
		}
	},
}).ParseFS(templateFS, "templates/report.html"))

// RenderOptions carries values that are not part of the report itself.
type RenderOptions struct {
	InspectorName string
	ReviewerName  string

	// Location formats timestamps. Defaults to UTC.
	Location *time.Location

	// GeneratedAt is printed in the footer. Zero omits it.
	GeneratedAt time.Time
}

type reportView struct {
	Report      *railinspect.TripReport
	Inspector   string
	Reviewer    string
	RedOnTime   string
	RedOffTime  string
	SubmittedAt string
	Counts      railinspect.StatusCounts
	Percent     int
	Sections    []*railinspect.Section
	GeneratedAt string
}

// RenderHTML renders a report and its checklist into a self-contained HTML
// document. Sections, categories and activities are ordered by their
// checklist numbers regardless of input order, and the input is not
// modified. Activities without a result render as pending.
func RenderHTML(report *railinspect.TripReport, sections []*railinspect.Section, opts RenderOptions) (string, error) {
	if report == nil {
		return "", railinspect.Invalid("Report is required")
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}

	tree := (&railinspect.Checklist{Sections: sections}).Clone()
	railinspect.SortByNumber(tree.Sections)
	counts := tree.Counts()

	view := reportView{
		Report:      report,
		Inspector:   opts.InspectorName,
		Reviewer:    opts.ReviewerName,
		RedOnTime:   formatTime(report.RedOnTime, loc),
		RedOffTime:  formatTime(report.RedOffTime, loc),
		SubmittedAt: formatTime(report.SubmittedAt, loc),
		Counts:      counts,
		Percent:     counts.Percent(),
		Sections:    tree.Sections,
	}
	if !opts.GeneratedAt.IsZero() {
		view.GeneratedAt = opts.GeneratedAt.In(loc).Format("02 Jan 2006 15:04 MST")
	}

	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}
	return buf.String(), nil
}

func formatTime(t *time.Time, loc *time.Location) string {
	if t == nil || t.IsZero() {
		return NotAvailable
	}
	return t.In(loc).Format("02 Jan 2006 15:04")
}

func orNA(s string) string {
	if s == "" {
		return NotAvailable
	}
	return s
}
