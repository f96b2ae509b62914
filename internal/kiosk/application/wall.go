package application

import (
	"fmt"
	"unicode/utf8"

	"github.com/sngm3741/haraj-kiosk/api/internal/kiosk/domain"
)

const (
	// WallLoopThreshold is the minimum review count for the auto-scroll loop.
	WallLoopThreshold = 3
	// WallDefaultColumns is the masonry column count for fullscreen walls.
	WallDefaultColumns = 4

	wallTailMinimum = 5
	wallTailLength  = 4
)

// WallState is the rendered state of the wall.
type WallState string

const (
	WallEmpty    WallState = "empty"
	WallReady    WallState = "ready"
	WallNotFound WallState = "not_found"
)

// WallOptions selects how the wall renders.
type WallOptions struct {
	FullScreen     bool
	SingleReviewID string
	Columns        int
}

// WallCard is one rendered review.
type WallCard struct {
	Review    domain.Review
	Overall   int
	Duplicate bool
}

// WallView is the renderer output consumed by the display clients.
type WallView struct {
	State          WallState
	Cards          []WallCard
	Columns        [][]WallCard
	AutoScroll     bool
	Centered       bool
	AverageOverall string
	Count          int
}

// BuildWall lays reviews out newest first as supplied.
// A single-review filter shows exactly the matching review or the not-found state, never scrolling.
func BuildWall(reviews []domain.Review, opts WallOptions) WallView {
	columns := opts.Columns
	if columns <= 0 {
		columns = WallDefaultColumns
	}

	if opts.SingleReviewID != "" {
		for _, r := range reviews {
			if r.ID == opts.SingleReviewID {
				card := WallCard{Review: r, Overall: r.OverallRating()}
				return WallView{
					State:          WallReady,
					Cards:          []WallCard{card},
					Columns:        [][]WallCard{{card}},
					Centered:       true,
					AverageOverall: AverageOverall([]domain.Review{r}),
					Count:          1,
				}
			}
		}
		return WallView{State: WallNotFound, Centered: true, AverageOverall: AverageOverall(nil)}
	}

	if len(reviews) == 0 {
		return WallView{State: WallEmpty, AverageOverall: AverageOverall(nil)}
	}

	cards := make([]WallCard, 0, len(reviews)+wallTailLength)
	for _, r := range reviews {
		cards = append(cards, WallCard{Review: r, Overall: r.OverallRating()})
	}

	autoScroll := opts.FullScreen && len(reviews) >= WallLoopThreshold
	if autoScroll && len(reviews) > wallTailMinimum {
		// the repeated head hides the jump back to offset 0
		for i := 0; i < wallTailLength; i++ {
			dup := cards[i]
			dup.Duplicate = true
			cards = append(cards, dup)
		}
	}

	return WallView{
		State:          WallReady,
		Cards:          cards,
		Columns:        masonry(cards, columns),
		AutoScroll:     autoScroll,
		AverageOverall: AverageOverall(reviews),
		Count:          len(reviews),
	}
}

// AverageOverall is the mean overall rating formatted to one decimal place.
func AverageOverall(reviews []domain.Review) string {
	sum, count := 0, 0
	for _, r := range reviews {
		if v := r.OverallRating(); v > 0 {
			sum += v
			count++
		}
	}
	if count == 0 {
		return "0.0"
	}
	return fmt.Sprintf("%.1f", float64(sum)/float64(count))
}

// masonry places each card in the currently shortest column.
func masonry(cards []WallCard, columns int) [][]WallCard {
	if columns > len(cards) {
		columns = len(cards)
	}
	if columns <= 0 {
		return nil
	}
	out := make([][]WallCard, columns)
	heights := make([]int, columns)
	for _, card := range cards {
		shortest := 0
		for i := 1; i < columns; i++ {
			if heights[i] < heights[shortest] {
				shortest = i
			}
		}
		out[shortest] = append(out[shortest], card)
		heights[shortest] += estimateCardHeight(card.Review)
	}
	return out
}

// estimateCardHeight approximates rendered pixels: photo, header and wrapped comment lines.
func estimateCardHeight(r domain.Review) int {
	height := 120
	if r.Photo != "" {
		height += 240
	}
	if n := utf8.RuneCountInString(r.Comment); n > 0 {
		height += ((n + 39) / 40) * 22
	}
	return height
}
