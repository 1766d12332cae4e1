package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"golang.org/x/term"
)

const (
	formatTable = "table"
	formatJSON  = "json"
)

// isTerminal is a test seam for term.IsTerminal.
var isTerminal = term.IsTerminal

// outputFormat extracts -o/--output from args. Without it the format is a
// table when stdout is a terminal and JSON otherwise.
func outputFormat(args []string) (format string, rest []string, err error) {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		name, value, hasValue := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		if !strings.HasPrefix(arg, "-") || (name != "o" && name != "output") {
			rest = append(rest, arg)
			continue
		}
		if !hasValue {
			if i+1 >= len(args) {
				return "", nil, fmt.Errorf("flag %s needs a value", arg)
			}
			i++
			value = args[i]
		}
		switch value {
		case formatTable, formatJSON:
			format = value
		default:
			return "", nil, fmt.Errorf("unknown output format %q (table|json)", value)
		}
	}
	return format, rest, nil
}

type printer struct {
	w      io.Writer
	format string
}

func newPrinter(w io.Writer, format string) *printer {
	if format == "" {
		format = formatJSON
		if f, ok := w.(*os.File); ok && isTerminal(int(f.Fd())) {
			format = formatTable
		}
	}
	return &printer{w: w, format: format}
}

// print writes v as indented JSON, or as the table produced by rows.
func (p *printer) print(v any, header []string, rows func() [][]string) error {
	if p.format == formatJSON {
		enc := json.NewEncoder(p.w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}

	tw := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
	if len(header) > 0 {
		fmt.Fprintln(tw, strings.Join(header, "\t"))
	}
	for _, row := range rows() {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

// message prints a one-line result, as {"message": ...} in JSON mode.
func (p *printer) message(format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if p.format == formatJSON {
		return p.print(map[string]string{"message": msg}, nil, nil)
	}
	_, err := fmt.Fprintln(p.w, msg)
	return err
}
