package main

import (
	"fmt"
	"io"
	"sync"
	"time"

	"pathing/internal/entity"
	"pathing/internal/packstate"
	"pathing/internal/store"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#8BC34A"))
	headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	cellStyle   = lipgloss.NewStyle().PaddingRight(2)
	hiddenStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#e06c75"))
	shownStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#98c379"))
	boxStyle    = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#dce0e5")).
			Padding(0, 1)
)

// logRenderer stands in for the draw layer: it counts what it holds and
// logs batches as they arrive.
type logRenderer struct {
	mu    sync.Mutex
	count int
}

func (r *logRenderer) AddEntities(batch []entity.Entity) {
	r.mu.Lock()
	r.count += len(batch)
	n := r.count
	r.mu.Unlock()
	logger.Debug("renderer received batch", zap.Int("added", len(batch)), zap.Int("total", n))
}

func (r *logRenderer) RemoveEntities(removed []entity.Entity) {
	r.mu.Lock()
	r.count -= len(removed)
	n := r.count
	r.mu.Unlock()
	logger.Debug("renderer dropped entities", zap.Int("removed", len(removed)), zap.Int("total", n))
}

// table renders rows as padded columns.
func table(header []string, rows [][]string) string {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if w := lipgloss.Width(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	line := func(cells []string, style lipgloss.Style) string {
		parts := make([]string, len(cells))
		for i, c := range cells {
			parts[i] = cellStyle.Render(style.Width(widths[i]).Render(c))
		}
		return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
	}

	lines := []string{line(header, headerStyle)}
	for _, row := range rows {
		lines = append(lines, line(row, lipgloss.NewStyle()))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func printLoadResult(w io.Writer, path string, res *packstate.LoadResult) {
	summary := fmt.Sprintf("%s\npublished %d  failed %d  missing resources %d  (%s)",
		titleStyle.Render(path), res.Published, len(res.Failures), res.PreloadFailures,
		res.Duration.Round(time.Millisecond))
	fmt.Fprintln(w, boxStyle.Render(summary))

	if len(res.Failures) == 0 {
		return
	}
	rows := make([][]string, 0, len(res.Failures))
	for _, f := range res.Failures {
		rows = append(rows, []string{f.GUID.String(), f.Type.String(), f.Err.Error()})
	}
	fmt.Fprintln(w, table([]string{"GUID", "TYPE", "ERROR"}, rows))
}

func printEntities(w io.Writer, o *overlay) {
	es := o.shared.Entities()
	rows := make([][]string, 0, len(es))
	for _, e := range es {
		st := e.Render(o.svc, entity.TargetWorld)
		vis := shownStyle.Render("visible")
		if !st.Visible {
			vis = hiddenStyle.Render("hidden")
		}
		ns := ""
		if c := e.Category(); c != nil {
			ns = c.Namespace()
		}
		rows = append(rows, []string{
			e.GUID().String(),
			e.Kind().String(),
			fmt.Sprintf("%d", e.MapID()),
			ns,
			vis,
			fmt.Sprintf("%.2f", st.Opacity),
		})
	}
	fmt.Fprintln(w, table([]string{"GUID", "KIND", "MAP", "CATEGORY", "STATE", "OPACITY"}, rows))
}

func printRecords(w io.Writer, recs []store.Record, now time.Time) {
	if len(recs) == 0 {
		fmt.Fprintln(w, "no hidden markers")
		return
	}
	rows := make([][]string, 0, len(recs))
	for _, r := range recs {
		until := "unload"
		if !r.Permanent {
			until = r.Expiry.Format(time.RFC3339) + " (" + r.Expiry.Sub(now).Round(time.Second).String() + ")"
		}
		rows = append(rows, []string{r.Key.String(), r.Mode.String(), until})
	}
	fmt.Fprintln(w, table([]string{"KEY", "MODE", "HIDDEN UNTIL"}, rows))
}
