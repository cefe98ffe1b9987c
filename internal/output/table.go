package output

import (
	"bytes"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/jbweber/hyperkit/api/v1alpha1"
	"github.com/jbweber/hyperkit/internal/restapi"
)

// TableFormatter formats resources as human-readable tables.
type TableFormatter struct {
	// NoHeaders omits the header row.
	NoHeaders bool
}

// FormatContainer formats a single Container as a table row.
func (f *TableFormatter) FormatContainer(c *v1alpha1.Container) (string, error) {
	return f.FormatContainerList([]*v1alpha1.Container{c})
}

// FormatContainerList formats a list of Containers as a table.
func (f *TableFormatter) FormatContainerList(cs []*v1alpha1.Container) (string, error) {
	if len(cs) == 0 {
		return "No containers found\n", nil
	}

	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	if !f.NoHeaders {
		_, _ = fmt.Fprintln(w, "NAME\tSTATUS\tARCH\tPROFILES\tEPHEMERAL\tAGE")
	}

	for _, c := range cs {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			c.Name,
			orDash(string(c.Status.Phase)),
			orDash(c.Spec.Architecture),
			orDash(strings.Join(c.Spec.Profiles, ",")),
			yesNo(c.Spec.Ephemeral),
			age(c.CreationTimestamp))
	}

	_ = w.Flush()
	return buf.String(), nil
}

// FormatOperation formats an operation as a single-row table.
func (f *TableFormatter) FormatOperation(op *restapi.Operation) (string, error) {
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	if !f.NoHeaders {
		_, _ = fmt.Fprintln(w, "ID\tCLASS\tSTATUS\tDESCRIPTION\tERROR")
	}
	_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
		op.ID, orDash(op.Class), op.Status, orDash(op.Description), orDash(op.Err))

	_ = w.Flush()
	return buf.String(), nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func age(t v1alpha1.Time) string {
	if t.IsZero() {
		return "-"
	}
	return formatAge(time.Since(t.Time))
}

// formatAge formats a duration as a human-readable age string.
// Examples: "5s", "2m", "3h", "4d", "2w", "1y"
func formatAge(d time.Duration) string {
	if d < 0 {
		return "unknown"
	}

	seconds := int(d.Seconds())
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}

	minutes := seconds / 60
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}

	hours := minutes / 60
	if hours < 24 {
		return fmt.Sprintf("%dh", hours)
	}

	days := hours / 24
	if days < 7 {
		return fmt.Sprintf("%dd", days)
	}

	weeks := days / 7
	if weeks < 8 {
		return fmt.Sprintf("%dw", weeks)
	}

	if years := days / 365; years > 0 {
		return fmt.Sprintf("%dy", years)
	}
	return fmt.Sprintf("%dd", days)
}
