// Package render provides centralized output rendering for the k2-creek CLI.
//
// Format selection rules:
//   - If output is a TTY, default to table
//   - If output is not a TTY, default to json
//   - --format flag always overrides defaults
//   - Invalid formats are errors
//
// --no-color affects table output only.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

// Format represents an output format.
type Format string

// Supported formats.
const (
	FormatJSON  Format = "json"
	FormatTable Format = "table"
	FormatYAML  Format = "yaml"
)

// ParseFormat parses a format string, returning an error for invalid formats.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON, nil
	case "table":
		return FormatTable, nil
	case "yaml":
		return FormatYAML, nil
	case "":
		return "", nil // Let caller decide default
	default:
		return "", fmt.Errorf("invalid format: %q (must be json, table, or yaml)", s)
	}
}

// Status tints a table value.
type Status int

const (
	StatusNone Status = iota
	StatusOK
	StatusWarn
	StatusFail
)

// Row is one label/value line of a table view.
// A row with an empty Label starts a new section titled Value.
type Row struct {
	Label  string
	Value  string
	Status Status
}

// Section returns a section header row.
func Section(title string) Row {
	return Row{Value: title}
}

// Renderer handles output formatting.
type Renderer struct {
	format  Format
	noColor bool
	out     io.Writer
	styles  *lipgloss.Renderer
}

// NewRenderer creates a renderer from CLI context.
func NewRenderer(c *cli.Context) (*Renderer, error) {
	formatStr := c.String("format")
	format, err := ParseFormat(formatStr)
	if err != nil {
		return nil, err
	}

	// Apply default format based on TTY detection
	if format == "" {
		if isTTY(os.Stdout) {
			format = FormatTable
		} else {
			format = FormatJSON
		}
	}

	return NewRendererWithWriter(format, c.Bool("no-color"), os.Stdout), nil
}

// NewRendererWithWriter creates a renderer with a custom writer (for testing).
// Colors are only emitted when out is a terminal that supports them.
func NewRendererWithWriter(format Format, noColor bool, out io.Writer) *Renderer {
	return &Renderer{
		format:  format,
		noColor: noColor,
		out:     out,
		styles:  lipgloss.NewRenderer(out),
	}
}

// Format returns the selected output format.
func (r *Renderer) Format() Format {
	return r.format
}

// Render outputs the data in the configured format.
func (r *Renderer) Render(data any) error {
	switch r.format {
	case FormatJSON:
		return r.renderJSON(data)
	case FormatTable:
		return r.renderTable(data)
	case FormatYAML:
		return r.renderYAML(data)
	default:
		return fmt.Errorf("unknown format: %s", r.format)
	}
}

// RenderRows outputs data as json or yaml, or rows when the format is table.
func (r *Renderer) RenderRows(data any, rows []Row) error {
	if r.format != FormatTable {
		return r.Render(data)
	}

	w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	for i, row := range rows {
		if row.Label == "" {
			if i > 0 {
				fmt.Fprintln(w)
			}
			fmt.Fprintln(w, r.style(r.styles.NewStyle().Bold(true), "== "+row.Value+" =="))
			continue
		}
		fmt.Fprintf(w, "%s:\t%s\n", row.Label, r.tint(row.Status, row.Value))
	}
	return w.Flush()
}

// Status colors.
var (
	okColor   = lipgloss.Color("#10B981") // Green
	warnColor = lipgloss.Color("#F59E0B") // Amber
	failColor = lipgloss.Color("#EF4444") // Red
)

func (r *Renderer) tint(status Status, value string) string {
	switch status {
	case StatusOK:
		return r.style(r.styles.NewStyle().Foreground(okColor), value)
	case StatusWarn:
		return r.style(r.styles.NewStyle().Foreground(warnColor), value)
	case StatusFail:
		return r.style(r.styles.NewStyle().Foreground(failColor).Bold(true), value)
	default:
		return value
	}
}

func (r *Renderer) style(st lipgloss.Style, value string) string {
	if r.noColor {
		return value
	}
	return st.Render(value)
}

func (r *Renderer) renderJSON(data any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func (r *Renderer) renderYAML(data any) error {
	enc := yaml.NewEncoder(r.out)
	enc.SetIndent(2)
	return enc.Encode(data)
}

func (r *Renderer) renderTable(data any) error {
	rows := Rows(data)
	if len(rows) == 0 {
		fmt.Fprintln(r.out, "(no results)")
		return nil
	}
	return r.RenderRows(data, rows)
}

// Rows flattens a struct or map into label/value rows. Nested structs
// become sections; slices of scalars are comma-joined. Labels use the
// json tag name.
func Rows(data any) []Row {
	v := reflect.ValueOf(data)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}

	var rows []Row
	switch v.Kind() {
	case reflect.Struct:
		t := v.Type()
		var nested []Row
		for i := range t.NumField() {
			field := t.Field(i)
			name, ok := fieldName(field)
			if !ok {
				continue
			}
			fv := indirect(v.Field(i))
			if fv.Kind() == reflect.Struct && !isStringer(fv) {
				if sub := Rows(fv.Interface()); len(sub) > 0 {
					nested = append(nested, Section(name))
					nested = append(nested, sub...)
				}
				continue
			}
			rows = append(rows, Row{Label: name, Value: formatValue(fv)})
		}
		rows = append(rows, nested...)
	case reflect.Map:
		keys := make([]string, 0, v.Len())
		values := make(map[string]reflect.Value, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			k := fmt.Sprint(iter.Key().Interface())
			keys = append(keys, k)
			values[k] = iter.Value()
		}
		sort.Strings(keys)
		for _, k := range keys {
			rows = append(rows, Row{Label: k, Value: formatValue(values[k])})
		}
	case reflect.Slice, reflect.Array:
		for i := range v.Len() {
			item := indirect(v.Index(i))
			if item.Kind() == reflect.Struct || item.Kind() == reflect.Map {
				rows = append(rows, Section("#"+strconv.Itoa(i+1)))
				rows = append(rows, Rows(item.Interface())...)
				continue
			}
			rows = append(rows, Row{Label: strconv.Itoa(i + 1), Value: formatValue(item)})
		}
	default:
		rows = append(rows, Row{Label: "value", Value: formatValue(v)})
	}
	return rows
}

func fieldName(f reflect.StructField) (string, bool) {
	if !f.IsExported() {
		return "", false
	}
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	switch name {
	case "-":
		return "", false
	case "":
		return strings.ToLower(f.Name), true
	default:
		return name, true
	}
}

func indirect(v reflect.Value) reflect.Value {
	for v.IsValid() && (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

func isStringer(v reflect.Value) bool {
	if !v.CanInterface() {
		return false
	}
	_, ok := v.Interface().(fmt.Stringer)
	return ok
}

func formatValue(v reflect.Value) string {
	v = indirect(v)
	if !v.IsValid() {
		return ""
	}

	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		parts := make([]string, 0, v.Len())
		for i := range v.Len() {
			item := indirect(v.Index(i))
			if item.Kind() == reflect.Struct || item.Kind() == reflect.Map {
				return fmt.Sprintf("[%d items]", v.Len())
			}
			parts = append(parts, formatValue(item))
		}
		if len(parts) == 0 {
			return "[]"
		}
		return strings.Join(parts, ", ")
	case reflect.Map:
		if v.Len() == 0 {
			return "{}"
		}
		return fmt.Sprintf("{%d keys}", v.Len())
	case reflect.Struct:
		if isStringer(v) {
			return fmt.Sprint(v.Interface())
		}
		return "{...}"
	default:
		if !v.CanInterface() {
			return ""
		}
		return fmt.Sprint(v.Interface())
	}
}

// isTTY returns true if the writer is a TTY.
func isTTY(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
