package report

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// WriteXLSX writes one worksheet per section. Money cells are stored as
// numbers with a two decimal format so the workbook can be summed.
func WriteXLSX(w io.Writer, sections []Section) error {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	moneyFormat := "0.00"
	moneyStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &moneyFormat})
	if err != nil {
		return fmt.Errorf("create money style: %w", err)
	}

	for i, sec := range sections {
		name := sec.Title
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return fmt.Errorf("rename first sheet: %w", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}

		header := make([]any, len(sec.Header))
		for j, h := range sec.Header {
			header[j] = h
		}
		if err := f.SetSheetRow(name, "A1", &header); err != nil {
			return fmt.Errorf("write header of %s: %w", name, err)
		}
		if err := f.SetRowStyle(name, 1, 1, headerStyle); err != nil {
			return fmt.Errorf("style header of %s: %w", name, err)
		}

		rowNum := 2
		rows := sec.Rows
		if len(sec.Footer) > 0 {
			rows = append(rows[:len(rows):len(rows)], sec.Footer)
		}
		for _, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, rowNum)
			if err != nil {
				return err
			}
			values := xlsxRow(row)
			if err := f.SetSheetRow(name, cell, &values); err != nil {
				return fmt.Errorf("write row %d of %s: %w", rowNum, name, err)
			}
			for col, c := range row {
				if _, ok := c.(decimal.Decimal); !ok {
					continue
				}
				ref, err := excelize.CoordinatesToCellName(col+1, rowNum)
				if err != nil {
					return err
				}
				if err := f.SetCellStyle(name, ref, ref, moneyStyle); err != nil {
					return fmt.Errorf("style %s of %s: %w", ref, name, err)
				}
			}
			rowNum++
		}

		if len(sec.Header) > 0 {
			last, err := excelize.ColumnNumberToName(len(sec.Header))
			if err != nil {
				return err
			}
			if err := f.SetColWidth(name, "A", last, 24); err != nil {
				return fmt.Errorf("size columns of %s: %w", name, err)
			}
		}
	}

	f.SetActiveSheet(0)
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func xlsxRow(cells []any) []any {
	out := make([]any, len(cells))
	for i, c := range cells {
		switch v := c.(type) {
		case decimal.Decimal:
			out[i] = v.InexactFloat64()
		default:
			out[i] = v
		}
	}
	return out
}
