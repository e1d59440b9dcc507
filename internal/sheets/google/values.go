package google

import "subtrack/internal/report"

// buildValues flattens report sections into a value matrix: a title row,
// the header, the data rows, an optional footer and a blank spacer row.
// Money is written as fixed two decimal text so USER_ENTERED parses it as
// a number without float noise.
func buildValues(sections []report.Section) [][]any {
	var values [][]any
	for i, sec := range sections {
		if i > 0 {
			values = append(values, []any{})
		}
		values = append(values, []any{sec.Title})
		if sec.Note != "" {
			values = append(values, []any{sec.Note})
		}

		header := make([]any, len(sec.Header))
		for j, h := range sec.Header {
			header[j] = h
		}
		values = append(values, header)

		for _, row := range sec.Rows {
			values = append(values, formatRow(row))
		}
		if len(sec.Footer) > 0 {
			values = append(values, formatRow(sec.Footer))
		}
	}
	return values
}

func formatRow(cells []any) []any {
	out := make([]any, len(cells))
	for i, c := range cells {
		out[i] = report.FormatCell(c)
	}
	return out
}
