package report

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// WriteTable prints every section as a rounded box table.
func WriteTable(w io.Writer, sections []Section) error {
	for i, sec := range sections {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}

		t := table.NewWriter()
		t.SetOutputMirror(w)
		t.SetTitle(sec.Title)

		header := make(table.Row, len(sec.Header))
		for j, h := range sec.Header {
			header[j] = h
		}
		t.AppendHeader(header)

		if len(sec.Rows) == 0 {
			empty := make(table.Row, len(sec.Header))
			empty[0] = text.FgHiBlack.Sprint("none")
			t.AppendRow(empty)
		}
		for _, row := range sec.Rows {
			t.AppendRow(formatRow(row))
		}

		if len(sec.Footer) > 0 {
			t.AppendSeparator()
			footer := formatRow(sec.Footer)
			for j := range footer {
				footer[j] = text.Bold.Sprint(footer[j])
			}
			t.AppendFooter(footer)
		}

		t.SetStyle(table.StyleRounded)
		t.Style().Format.Header = text.FormatDefault
		t.Style().Format.Footer = text.FormatDefault
		t.SetColumnConfigs(columnConfigs(sec))

		t.Render()

		if sec.Note != "" {
			if _, err := fmt.Fprintln(w, text.FgYellow.Sprint("Warning: "+sec.Note)); err != nil {
				return err
			}
		}
	}
	return nil
}

func formatRow(cells []any) table.Row {
	row := make(table.Row, len(cells))
	for i, c := range cells {
		row[i] = FormatCell(c)
	}
	return row
}

// columnConfigs right-aligns the columns whose first row holds numbers.
func columnConfigs(sec Section) []table.ColumnConfig {
	if len(sec.Rows) == 0 {
		return nil
	}
	var configs []table.ColumnConfig
	for i, c := range sec.Rows[0] {
		if isNumeric(c) {
			configs = append(configs, table.ColumnConfig{Number: i + 1, Align: text.AlignRight})
		}
	}
	return configs
}
