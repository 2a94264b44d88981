// Package output renders command results as tables, JSON or YAML.
package output

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
	"gopkg.in/yaml.v3"
)

// Mode selects how results are written.
type Mode string

// Output modes.
const (
	ModeAuto  Mode = "auto"
	ModeTable Mode = "table"
	ModeJSON  Mode = "json"
	ModeYAML  Mode = "yaml"
)

// Styles holds the lipgloss styles of table cells and messages.
type Styles struct {
	Header  lipgloss.Style
	Bold    lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Info    lipgloss.Style
}

// NewStyles builds styles bound to lr. The color profile of lr decides
// whether escape sequences are written.
func NewStyles(lr *lipgloss.Renderer) *Styles {
	return &Styles{
		Header:  lr.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		Bold:    lr.NewStyle().Bold(true),
		Muted:   lr.NewStyle().Foreground(lipgloss.Color("8")),
		Success: lr.NewStyle().Foreground(lipgloss.Color("10")),
		Warning: lr.NewStyle().Foreground(lipgloss.Color("11")),
		Error:   lr.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		Info:    lr.NewStyle().Foreground(lipgloss.Color("14")),
	}
}

// Renderer writes command results to stdout and messages to stderr.
type Renderer struct {
	out  io.Writer
	err  io.Writer
	mode Mode

	styles    *Styles // result cells, bound to out
	msgStyles *Styles // messages, bound to err
}

// RendererOption configures a Renderer.
type RendererOption func(*rendererOptions)

type rendererOptions struct {
	profile *termenv.Profile
}

// WithColorProfile forces the color profile of both writers instead of
// detecting it.
func WithColorProfile(p termenv.Profile) RendererOption {
	return func(o *rendererOptions) { o.profile = &p }
}

// NewRenderer creates a renderer. ModeAuto resolves to tables on a terminal
// and JSON otherwise. Colors are used on terminals only, and never in cells
// of JSON or YAML output; NO_COLOR and CLICOLOR_FORCE are honored.
func NewRenderer(out, errOut io.Writer, mode Mode, opts ...RendererOption) *Renderer {
	var o rendererOptions
	for _, opt := range opts {
		opt(&o)
	}
	if mode == "" || mode == ModeAuto {
		mode = ModeJSON
		if isTerminal(out) {
			mode = ModeTable
		}
	}
	return &Renderer{
		out:       out,
		err:       errOut,
		mode:      mode,
		styles:    NewStyles(newLipglossRenderer(out, mode == ModeTable, o.profile)),
		msgStyles: NewStyles(newLipglossRenderer(errOut, true, o.profile)),
	}
}

func newLipglossRenderer(w io.Writer, colored bool, forced *termenv.Profile) *lipgloss.Renderer {
	lr := lipgloss.NewRenderer(w)
	switch {
	case !colored:
		lr.SetColorProfile(termenv.Ascii)
	case forced != nil:
		lr.SetColorProfile(*forced)
	case !isTerminal(w):
		lr.SetColorProfile(termenv.Ascii)
	default:
		lr.SetColorProfile(termenv.NewOutput(w).EnvColorProfile())
	}
	return lr
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Mode returns the resolved output mode.
func (r *Renderer) Mode() Mode {
	return r.mode
}

// Out returns the result writer.
func (r *Renderer) Out() io.Writer {
	return r.out
}

// Styles returns the styles of result cells.
func (r *Renderer) Styles() *Styles {
	return r.styles
}

// Infof writes a human-oriented message. Messages go to stderr so that
// structured output stays parseable.
func (r *Renderer) Infof(format string, args ...any) {
	_, _ = fmt.Fprintf(r.err, format+"\n", args...)
}

// Headingf writes a section title.
func (r *Renderer) Headingf(format string, args ...any) {
	r.styledf(r.msgStyles.Header, format, args...)
}

// Successf writes a message reporting a completed action.
func (r *Renderer) Successf(format string, args ...any) {
	r.styledf(r.msgStyles.Success, format, args...)
}

// Warnf writes a warning message.
func (r *Renderer) Warnf(format string, args ...any) {
	r.styledf(r.msgStyles.Warning, format, args...)
}

// Errorf writes an error message.
func (r *Renderer) Errorf(format string, args ...any) {
	r.styledf(r.msgStyles.Error, format, args...)
}

func (r *Renderer) styledf(style lipgloss.Style, format string, args ...any) {
	_, _ = fmt.Fprintln(r.err, style.Render(fmt.Sprintf(format, args...)))
}

// Status renders a job status cell: success in green, error in red,
// running highlighted and anything else muted.
func (r *Renderer) Status(status string) string {
	switch status {
	case "success":
		return r.styles.Success.Render(status)
	case "error":
		return r.styles.Error.Render(status)
	case "running":
		return r.styles.Info.Render(status)
	default:
		return r.styles.Muted.Render(status)
	}
}

// Table describes tabular data. Value is written as is in JSON and YAML
// modes; Header and Rows are used in table mode.
type Table struct {
	Header []string
	Rows   [][]any
	Value  any
	// Footer is printed under the table in table mode.
	Footer string
}

// Render writes t in the renderer mode.
func (r *Renderer) Render(t Table) error {
	switch r.mode {
	case ModeJSON:
		return r.JSON(t.Value)
	case ModeYAML:
		return r.YAML(t.Value)
	default:
		r.table(t)
		return nil
	}
}

// JSON writes v as indented JSON.
func (r *Renderer) JSON(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// YAML writes v as YAML.
func (r *Renderer) YAML(v any) error {
	enc := yaml.NewEncoder(r.out)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func (r *Renderer) table(t Table) {
	tw := table.NewWriter()
	tw.SetOutputMirror(r.out)
	tw.SetStyle(table.StyleLight)

	header := make(table.Row, len(t.Header))
	for i, h := range t.Header {
		header[i] = h
	}
	tw.AppendHeader(header)
	for _, row := range t.Rows {
		cells := make(table.Row, len(row))
		for i, v := range row {
			cells[i] = FormatValue(v)
		}
		tw.AppendRow(cells)
	}
	tw.Render()
	if t.Footer != "" {
		_, _ = fmt.Fprintln(r.out, r.styles.Muted.Render(t.Footer))
	}
}

// Rows renders query results. Rows are fully consumed but not closed.
func (r *Renderer) Rows(rows *sql.Rows) error {
	cols, err := rows.Columns()
	if err != nil {
		return err
	}

	var (
		records []map[string]any
		matrix  [][]any
	)
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return err
		}

		record := make(map[string]any, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				values[i] = string(b)
			}
			record[col] = values[i]
		}
		records = append(records, record)
		matrix = append(matrix, values)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	return r.Render(Table{
		Header: cols,
		Rows:   matrix,
		Value:  records,
		Footer: fmt.Sprintf("(%d rows)", len(records)),
	})
}

// FormatValue formats a cell for table output.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case string:
		return val
	case []byte:
		return string(val)
	case time.Time:
		if val.IsZero() {
			return ""
		}
		return val.Format("2006-01-02 15:04:05")
	case *time.Time:
		if val == nil {
			return ""
		}
		return FormatValue(*val)
	case float64:
		return fmt.Sprintf("%g", val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
