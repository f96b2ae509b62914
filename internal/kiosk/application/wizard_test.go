package application

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sngm3741/haraj-kiosk/api/internal/kiosk/domain"
)

func TestWizardStepCountMatchesCategories(t *testing.T) {
	for n := 0; n <= len(domain.DefaultCategories); n++ {
		w := NewWizard(domain.DefaultCategories[:n])
		assert.Equal(t, n+2, w.StepCount())
		assert.Len(t, w.Progress(), n+2)
		assert.Equal(t, StepName, w.Kind(0))
		assert.Equal(t, StepComment, w.Kind(n+1))
	}
}

func TestWizardNameGatesProgression(t *testing.T) {
	w := NewWizard(domain.DefaultCategories)

	assert.False(t, w.CanAdvance())
	assert.ErrorIs(t, w.Next(), ErrNameRequired)

	w.SetName("   ")
	assert.False(t, w.CanAdvance())
	assert.ErrorIs(t, w.Next(), ErrNameRequired)

	w.SetName("Alex")
	require.NoError(t, w.Next())
	assert.Equal(t, 1, w.Step())
	assert.Equal(t, StepRating, w.CurrentKind())
}

func TestWizardRatingGatesProgression(t *testing.T) {
	w := NewWizard(domain.DefaultCategories)
	w.SetName("Alex")
	require.NoError(t, w.Next())

	assert.False(t, w.CanAdvance())
	assert.ErrorIs(t, w.Next(), ErrStepBlocked)

	assert.ErrorIs(t, w.SetRating(0), ErrInvalidRating)
	assert.ErrorIs(t, w.SetRating(6), ErrInvalidRating)

	require.NoError(t, w.SetRating(4))
	assert.True(t, w.CanAdvance())
	require.NoError(t, w.Next())

	category, ok := w.CurrentCategory()
	require.True(t, ok)
	assert.Equal(t, domain.DefaultCategories[1].ID, category.ID)
}

func TestWizardRatingOnlyOnRatingSteps(t *testing.T) {
	w := NewWizard(domain.DefaultCategories)
	assert.ErrorIs(t, w.SetRating(3), ErrWrongStep)
}

func TestWizardBackKeepsValues(t *testing.T) {
	w := NewWizard(domain.DefaultCategories)
	w.SetName("Alex")
	require.NoError(t, w.Next())
	require.NoError(t, w.SetRating(2))
	require.NoError(t, w.Next())

	assert.True(t, w.Back())
	assert.Equal(t, 1, w.Step())
	assert.Equal(t, 2, w.Ratings()[domain.DefaultCategories[0].ID])

	assert.True(t, w.Back())
	assert.Equal(t, "Alex", w.Name())
	assert.False(t, w.Back(), "back from the name step exits the wizard")
}

func TestWizardProgressMarksCurrentAndPrevious(t *testing.T) {
	w := NewWizard(domain.DefaultCategories[:2])
	w.SetName("Alex")
	require.NoError(t, w.Next())

	assert.Equal(t, []bool{true, true, false, false}, w.Progress())
}

func TestWizardDraftRecheckSendsBackToName(t *testing.T) {
	w := NewWizard(domain.DefaultCategories[:1])
	w.SetName("Alex")
	require.NoError(t, w.Next())
	require.NoError(t, w.SetRating(5))
	require.NoError(t, w.Next())
	require.True(t, w.IsFinalStep())

	w.SetName(" ")
	_, err := w.Draft()
	assert.ErrorIs(t, err, ErrNameRequired)
	assert.Equal(t, 0, w.Step())
}

func TestWizardDraftCarriesEveryCategory(t *testing.T) {
	w := NewWizard(domain.DefaultCategories)
	w.SetName("  Alex ")
	require.NoError(t, w.Next())
	for range domain.DefaultCategories {
		require.NoError(t, w.SetRating(5))
		require.NoError(t, w.Next())
	}
	w.AppendSuggestion("Great book selection.")
	w.AppendSuggestion("Will come back next year.")

	draft, err := w.Draft()
	require.NoError(t, err)
	assert.Equal(t, "Alex", draft.Name)
	assert.Equal(t, "Great book selection. Will come back next year.", draft.Comment)
	require.Len(t, draft.Ratings, len(domain.DefaultCategories))
	for _, category := range domain.DefaultCategories {
		assert.Equal(t, 5, draft.Ratings[category.ID], category.ID)
	}
	assert.NoError(t, draft.Ratings.Validate(domain.DefaultCategories))
}

func TestWizardCommentStepNeverBlocksSubmit(t *testing.T) {
	w := NewWizard(nil)
	w.SetName("Sam")
	require.NoError(t, w.Next())
	require.True(t, w.IsFinalStep())

	draft, err := w.Draft()
	require.NoError(t, err)
	assert.Empty(t, draft.Comment)
	assert.Contains(t, draft.Ratings, domain.OverallCategoryID)
}
