// Package console renders tables and status lines for the CLI.
package console

import (
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/pterm/pterm"

	"github.com/jgoulah/gridhours/internal/table"
	"github.com/jgoulah/gridhours/pkg/models"
)

var (
	green  = color.New(color.FgGreen, color.Bold).SprintFunc()
	yellow = color.New(color.FgYellow, color.Bold).SprintFunc()
	cyan   = color.New(color.FgCyan, color.Bold).SprintFunc()
)

// Console writes human-facing output.
type Console struct {
	out io.Writer
}

// New returns a Console writing to out, or stdout when out is nil.
func New(out io.Writer) *Console {
	if out == nil {
		out = os.Stdout
	}
	return &Console{out: out}
}

// Success prints a line prefixed with a check mark.
func (c *Console) Success(format string, a ...any) {
	fmt.Fprintf(c.out, "%s %s\n", green("✓"), fmt.Sprintf(format, a...))
}

// Warning prints a line prefixed with a warning sign.
func (c *Console) Warning(format string, a ...any) {
	fmt.Fprintf(c.out, "%s %s\n", yellow("⚠"), fmt.Sprintf(format, a...))
}

// Heading prints a section title.
func (c *Console) Heading(title string) {
	fmt.Fprintf(c.out, "\n%s\n", cyan(title))
}

func (c *Console) render(data pterm.TableData) error {
	rendered, err := pterm.DefaultTable.
		WithHasHeader().
		WithBoxed().
		WithHeaderStyle(pterm.NewStyle(pterm.FgLightCyan)).
		WithData(data).
		Srender()
	if err != nil {
		return fmt.Errorf("rendering table: %w", err)
	}
	fmt.Fprintln(c.out, rendered)
	return nil
}

// Preview prints the first n rows of t.
func (c *Console) Preview(t *table.Table, n int) error {
	data := pterm.TableData{t.Columns()}
	data = append(data, t.Head(n).Records()...)
	return c.render(data)
}

// Info prints one line per column with its non-null count and value kinds.
func (c *Console) Info(t *table.Table) error {
	fmt.Fprintf(c.out, "%s rows, %d columns\n", humanize.Comma(int64(t.Len())), len(t.Columns()))
	data := pterm.TableData{{"#", "Column", "Non-null", "Kinds"}}
	for i, ci := range t.Info() {
		data = append(data, []string{
			fmt.Sprint(i),
			ci.Name,
			humanize.Comma(int64(ci.NonNull)),
			ci.KindsString(),
		})
	}
	return c.render(data)
}

// Hours prints an hourly summary, highlighting the peak feed-in hour.
func (c *Console) Hours(hours []models.HourlyAggregate) error {
	data := pterm.TableData{{"Hour", "Grid purchase", "Grid feed-in", "Peak"}}
	for _, h := range hours {
		peak := ""
		if h.IsMaxFeedinHour {
			peak = green("★")
		}
		data = append(data, []string{
			fmt.Sprintf("%02d:00", h.Hour),
			fmt.Sprintf("%.3f", h.GridPurchase),
			fmt.Sprintf("%.3f", h.GridFeedin),
			peak,
		})
	}
	return c.render(data)
}

// Runs prints stored runs, newest first.
func (c *Console) Runs(runs []models.Run) error {
	data := pterm.TableData{{"Run", "Started", "Data file", "Rows", "Peak hour", "Published"}}
	for _, r := range runs {
		published := "no"
		if r.Published {
			published = "yes"
		}
		peak := "-"
		if r.HasPeak() {
			peak = fmt.Sprintf("%02d:00", r.MaxFeedinHour)
		}
		data = append(data, []string{
			r.ID,
			humanize.Time(r.StartedAt),
			r.DataFile,
			humanize.Comma(int64(r.RowsLoaded)),
			peak,
			published,
		})
	}
	return c.render(data)
}
