package journal

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// VisitSheet 导出工作表名
const VisitSheet = "Visits"

// visitHeader 导出表头
var visitHeader = []string{
	"Visit ID",
	"User ID",
	"Location ID",
	"Description",
	"Location Type",
	"Parent ID",
	"Visited At",
}

// VisitLister 按访客读取参观记录（*Repository 实现）
type VisitLister interface {
	ListByUser(ctx context.Context, userID int, limit int) ([]Visit, error)
}

// ExportUser 导出某访客的参观记录，返回写出的行数
func ExportUser(ctx context.Context, lister VisitLister, userID, limit int, w io.Writer) (int, error) {
	visits, err := lister.ListByUser(ctx, userID, limit)
	if err != nil {
		return 0, err
	}
	if err := WriteWorkbook(w, visits); err != nil {
		return 0, err
	}
	return len(visits), nil
}

// WriteWorkbook 把参观记录写成 xlsx
func WriteWorkbook(w io.Writer, visits []Visit) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(VisitSheet)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range visitHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(VisitSheet, cell, header); err != nil {
			return fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(VisitSheet, cell, cell, headerStyle); err != nil {
			return fmt.Errorf("failed to set header style: %w", err)
		}
	}
	if err := f.SetColWidth(VisitSheet, "A", "A", 38); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}

	for i, v := range visits {
		row := []interface{}{
			v.VisitID,
			v.UserID,
			v.LocationID,
			v.Description,
			v.LocationTypeID,
			v.ParentID,
			v.VisitedAt.UTC().Format("2006-01-02 15:04:05"),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetSheetRow(VisitSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
