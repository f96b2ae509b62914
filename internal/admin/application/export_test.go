package application

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/sngm3741/haraj-kiosk/api/internal/kiosk/domain"
)

func TestExportWritesOneRowPerReview(t *testing.T) {
	repo := &MockReviewGateway{}
	second := storedReview()
	second.ID = "rev-13"
	second.SerialNumber = nil
	second.Ratings = domain.Ratings{domain.OverallCategoryID: 5}
	repo.On("ListReviews", mock.Anything, ExportLimit).Return([]domain.Review{storedReview(), second}, nil).Once()

	categories := []domain.RatingCategory{
		{ID: "food", Label: "Food Stalls"},
		{ID: domain.OverallCategoryID, Label: "Overall Experience"},
	}
	var buf bytes.Buffer
	require.NoError(t, NewReviewService(repo, nil).Export(context.Background(), categories, &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(exportSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Serial", "ID", "Name", "Food Stalls", "Overall Experience", "Comment", "Face ID", "Photo", "Submitted At"}, rows[0])
	assert.Equal(t, "12", rows[1][0])
	assert.Equal(t, "3", rows[1][3])
	assert.Equal(t, "4", rows[1][4])
	assert.Equal(t, "2023-11-14 22:13:20", rows[1][8])
	assert.Equal(t, "", rows[2][0])
	assert.Equal(t, "5", rows[2][4])
}
