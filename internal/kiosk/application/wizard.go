package application

import (
	"errors"
	"strings"

	"github.com/sngm3741/haraj-kiosk/api/internal/kiosk/domain"
)

var (
	// ErrNameRequired is returned when the wizard is asked to advance or submit without a name.
	ErrNameRequired = errors.New("name is required")
	// ErrInvalidRating is returned for star values outside [1,5].
	ErrInvalidRating = errors.New("rating must be between 1 and 5")
	// ErrStepBlocked is returned when Next is requested on a step whose input is incomplete.
	ErrStepBlocked = errors.New("current step is incomplete")
	// ErrWrongStep is returned when an input does not belong to the current step.
	ErrWrongStep = errors.New("input does not match the current step")
)

// StepKind identifies what a wizard step collects.
type StepKind string

const (
	StepName    StepKind = "name"
	StepRating  StepKind = "rating"
	StepComment StepKind = "comment"
)

// Wizard is the linear name -> ratings -> comment form.
// Ratings start unset and progression on a rating step is gated on a selection.
type Wizard struct {
	categories []domain.RatingCategory
	step       int
	name       string
	ratings    domain.Ratings
	comment    string
}

// NewWizard builds a wizard for the ordered categories. The slice is copied.
func NewWizard(categories []domain.RatingCategory) *Wizard {
	cats := append([]domain.RatingCategory(nil), categories...)
	return &Wizard{
		categories: cats,
		ratings:    domain.NewRatings(cats),
	}
}

// StepCount is the number of rating categories plus the name and comment steps.
func (w *Wizard) StepCount() int {
	return len(w.categories) + 2
}

// Step returns the zero-based current step.
func (w *Wizard) Step() int {
	return w.step
}

// Kind returns the kind of step i.
func (w *Wizard) Kind(i int) StepKind {
	switch {
	case i <= 0:
		return StepName
	case i >= w.StepCount()-1:
		return StepComment
	default:
		return StepRating
	}
}

// CurrentKind returns the kind of the current step.
func (w *Wizard) CurrentKind() StepKind {
	return w.Kind(w.step)
}

// CurrentCategory returns the category rated on the current step.
func (w *Wizard) CurrentCategory() (domain.RatingCategory, bool) {
	if w.CurrentKind() != StepRating {
		return domain.RatingCategory{}, false
	}
	return w.categories[w.step-1], true
}

// Categories returns a copy of the ordered categories.
func (w *Wizard) Categories() []domain.RatingCategory {
	return append([]domain.RatingCategory(nil), w.categories...)
}

// Name returns the raw name input.
func (w *Wizard) Name() string { return w.name }

// Comment returns the raw comment input.
func (w *Wizard) Comment() string { return w.comment }

// Ratings returns a copy of the recorded ratings.
func (w *Wizard) Ratings() domain.Ratings { return w.ratings.Clone() }

// IsFinalStep reports whether the comment step is showing.
func (w *Wizard) IsFinalStep() bool { return w.step == w.StepCount()-1 }

func (w *Wizard) SetName(name string) { w.name = name }

func (w *Wizard) SetComment(text string) { w.comment = text }

func (w *Wizard) nameValid() bool {
	return strings.TrimSpace(w.name) != ""
}

func (w *Wizard) rated(step int) bool {
	return domain.ValidRating(w.ratings[w.categories[step-1].ID])
}

// SetRating records v for the current rating step.
func (w *Wizard) SetRating(v int) error {
	category, ok := w.CurrentCategory()
	if !ok {
		return ErrWrongStep
	}
	if !domain.ValidRating(v) {
		return ErrInvalidRating
	}
	w.ratings[category.ID] = v
	return nil
}

// AppendSuggestion adds a quick-suggestion phrase to the comment.
func (w *Wizard) AppendSuggestion(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	current := strings.TrimSpace(w.comment)
	if current == "" {
		w.comment = text
		return
	}
	w.comment = current + " " + text
}

// CanAdvance reports whether Next is enabled on the current step.
func (w *Wizard) CanAdvance() bool {
	switch w.CurrentKind() {
	case StepName:
		return w.nameValid()
	case StepRating:
		return w.rated(w.step)
	default:
		return false
	}
}

// Next moves to the following step when the current one is complete.
func (w *Wizard) Next() error {
	if w.IsFinalStep() {
		return ErrWrongStep
	}
	if !w.CanAdvance() {
		if w.CurrentKind() == StepName {
			return ErrNameRequired
		}
		return ErrStepBlocked
	}
	w.step++
	return nil
}

// Back returns to the previous step keeping its value. It reports false at step 0, meaning the wizard is exited.
func (w *Wizard) Back() bool {
	if w.step == 0 {
		return false
	}
	w.step--
	return true
}

// Progress returns one segment per step, true up to and including the current step.
func (w *Wizard) Progress() []bool {
	segments := make([]bool, w.StepCount())
	for i := range segments {
		segments[i] = i <= w.step
	}
	return segments
}

// Draft re-checks the gates and returns the completed draft.
// An empty name forces the wizard back to the name step.
func (w *Wizard) Draft() (domain.Draft, error) {
	if !w.nameValid() {
		w.step = 0
		return domain.Draft{}, ErrNameRequired
	}
	for i := 1; i <= len(w.categories); i++ {
		if !w.rated(i) {
			w.step = i
			return domain.Draft{}, ErrStepBlocked
		}
	}
	ratings := w.ratings.Clone()
	if _, ok := ratings[domain.OverallCategoryID]; !ok {
		ratings[domain.OverallCategoryID] = meanRating(ratings)
	}
	return domain.Draft{
		Name:    strings.TrimSpace(w.name),
		Ratings: ratings,
		Comment: strings.TrimSpace(w.comment),
	}, nil
}

func meanRating(r domain.Ratings) int {
	if len(r) == 0 {
		return domain.RatingMax
	}
	sum := 0
	for _, v := range r {
		sum += v
	}
	return (sum + len(r)/2) / len(r)
}
