package application

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/sngm3741/haraj-kiosk/api/internal/kiosk/domain"
)

// ExportLimit bounds the rows written to a single workbook.
const ExportLimit = 10000

const exportSheet = "Reviews"

// Export writes every review as an xlsx workbook, one column per rating category.
func (s *reviewService) Export(ctx context.Context, categories []domain.RatingCategory, w io.Writer) error {
	reviews, err := s.repo.ListReviews(ctx, ExportLimit)
	if err != nil {
		return err
	}
	if len(categories) == 0 {
		categories = domain.DefaultCategories
	}
	return WriteReviewWorkbook(reviews, categories, w)
}

// WriteReviewWorkbook renders reviews into w.
func WriteReviewWorkbook(reviews []domain.Review, categories []domain.RatingCategory, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(exportSheet)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("delete default sheet: %w", err)
	}

	headers := []any{"Serial", "ID", "Name"}
	for _, category := range categories {
		headers = append(headers, category.Label)
	}
	headers = append(headers, "Comment", "Face ID", "Photo", "Submitted At")

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	if err := f.SetSheetRow(exportSheet, "A1", &headers); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(exportSheet, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for i, review := range reviews {
		row := []any{serialValue(review.SerialNumber), review.ID, review.Name}
		for _, category := range categories {
			if value, ok := review.Ratings[category.ID]; ok {
				row = append(row, value)
			} else {
				row = append(row, "")
			}
		}
		submitted := ""
		if review.Timestamp > 0 {
			submitted = time.UnixMilli(review.Timestamp).UTC().Format("2006-01-02 15:04:05")
		}
		row = append(row, review.Comment, review.FaceID, review.Photo, submitted)

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.SetPanes(exportSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freeze header: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func serialValue(serial *int64) any {
	if serial == nil {
		return ""
	}
	return *serial
}
