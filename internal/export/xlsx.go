package export

import (
	"fmt"
	"io"
	"sort"

	"github.com/frahmantamala/approval-portal/internal/leave"
	"github.com/xuri/excelize/v2"
)

var leaveHeaders = []string{"Employee ID", "Name", "Year", "Total Days", "Used Days", "Remaining Days", "Reward Used"}

// LeaveSheetName is the worksheet the leave usage report is written to.
func LeaveSheetName(year int) string {
	return fmt.Sprintf("Leave %d", year)
}

// WriteLeaveUsage writes one row per balance, ordered by employee id.
func WriteLeaveUsage(w io.Writer, year int, balances []*leave.Balance, names map[int64]string) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := LeaveSheetName(year)
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}

	row, err := writeHeader(f, sheet, 0, leaveHeaders)
	if err != nil {
		return err
	}

	sorted := make([]*leave.Balance, len(balances))
	copy(sorted, balances)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].EmployeeID < sorted[j].EmployeeID })

	first := row + 1
	for _, b := range sorted {
		row++
		values := []interface{}{
			b.EmployeeID,
			names[b.EmployeeID],
			b.Year,
			b.TotalDays.InexactFloat64(),
			b.UsedDays.InexactFloat64(),
			b.RemainingDays.InexactFloat64(),
			b.RewardUsed.InexactFloat64(),
		}
		for col, v := range values {
			if err := writeColumn(f, sheet, col+1, row, v); err != nil {
				return err
			}
		}
	}

	if row >= first {
		if err := applyDataCellStyle(f, sheet, 1, first, len(leaveHeaders), row); err != nil {
			return err
		}
	}
	return f.Write(w)
}

func writeColumn(f *excelize.File, sheet string, col, row int, value interface{}) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return f.SetCellValue(sheet, cell, value)
}

func writeHeader(f *excelize.File, sheet string, row int, headers []string) (int, error) {
	row++
	style, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "center"},
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"E6E6E6"}},
	})
	if err != nil {
		return row, err
	}
	cellFirst, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return row, err
	}
	cellLast, err := excelize.CoordinatesToCellName(len(headers), row)
	if err != nil {
		return row, err
	}
	if err = f.SetCellStyle(sheet, cellFirst, cellLast, style); err != nil {
		return row, err
	}
	lastCol, err := excelize.ColumnNumberToName(len(headers))
	if err != nil {
		return row, err
	}
	if err = f.SetColWidth(sheet, "A", lastCol, 18); err != nil {
		return row, err
	}
	for idx, value := range headers {
		if err = writeColumn(f, sheet, idx+1, row, value); err != nil {
			return row, err
		}
	}
	return row, nil
}

func applyDataCellStyle(f *excelize.File, sheet string, colFrom, rowFrom, colTo, rowTo int) error {
	style, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "center"},
		Font:      &excelize.Font{Size: 11},
	})
	if err != nil {
		return err
	}
	cellFirst, err := excelize.CoordinatesToCellName(colFrom, rowFrom)
	if err != nil {
		return err
	}
	cellLast, err := excelize.CoordinatesToCellName(colTo, rowTo)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, cellFirst, cellLast, style)
}
