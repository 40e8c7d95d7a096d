// Package export renders ranking pages into downloadable spreadsheets.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/cohort-hub/admissions/internal/domain/ranking"
)

// SheetTopRated is the sheet name of the top-rated workbook.
const SheetTopRated = "Top Rated"

// ContentTypeXLSX is the MIME type of the produced workbooks.
const ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// TopRatedHeader lists the workbook columns in order.
var TopRatedHeader = []interface{}{"Rank", "Student ID", "Username", "Track", "Status", "Average Rating"}

// TopRatedWorkbook builds a workbook with one row per ranking entry.
// The caller owns the returned file and must Close it.
func TopRatedWorkbook(entries []*ranking.Entry) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName(f.GetSheetName(0), SheetTopRated); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	if err := f.SetSheetRow(SheetTopRated, "A1", &TopRatedHeader); err != nil {
		f.Close()
		return nil, fmt.Errorf("write header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("header style: %w", err)
	}
	if err := f.SetRowStyle(SheetTopRated, 1, 1, bold); err != nil {
		f.Close()
		return nil, fmt.Errorf("apply header style: %w", err)
	}

	for i, e := range entries {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			f.Close()
			return nil, err
		}
		row := []interface{}{
			int(e.Rank),
			e.Student.ID,
			e.Student.Username,
			string(e.Student.Track),
			string(e.Student.Status),
			e.AverageAdmissionRating,
		}
		if err := f.SetSheetRow(SheetTopRated, cell, &row); err != nil {
			f.Close()
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.SetColWidth(SheetTopRated, "B", "B", 38); err != nil {
		f.Close()
		return nil, err
	}

	return f, nil
}

// WriteTopRated renders entries as an xlsx workbook into w.
func WriteTopRated(w io.Writer, entries []*ranking.Entry) error {
	f, err := TopRatedWorkbook(entries)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
