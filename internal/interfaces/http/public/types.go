package public

import (
	"time"

	"github.com/sngm3741/haraj-kiosk/api/internal/interfaces/http/common"
	kioskapp "github.com/sngm3741/haraj-kiosk/api/internal/kiosk/application"
	"github.com/sngm3741/haraj-kiosk/api/internal/kiosk/domain"
	"github.com/sngm3741/haraj-kiosk/api/internal/locales"
)

type wizardResponse struct {
	Step       int                     `json:"step"`
	StepCount  int                     `json:"stepCount"`
	StepKind   string                  `json:"stepKind"`
	Category   *common.CategoryPayload `json:"category,omitempty"`
	Progress   []bool                  `json:"progress"`
	CanAdvance bool                    `json:"canAdvance"`
	Name       string                  `json:"name"`
	Comment    string                  `json:"comment"`
	Ratings    map[string]int          `json:"ratings"`
	AckStar    int                     `json:"ackStar,omitempty"`
}

type sessionResponse struct {
	ID             string                 `json:"id"`
	Lang           string                 `json:"lang,omitempty"`
	Mode           string                 `json:"mode"`
	ReviewID       string                 `json:"reviewId,omitempty"`
	Screen         string                 `json:"screen"`
	ScreenMessage  string                 `json:"screenMessage,omitempty"`
	Overlay        string                 `json:"overlay,omitempty"`
	GalleryFaceID  string                 `json:"galleryFaceId,omitempty"`
	Wizard         *wizardResponse        `json:"wizard,omitempty"`
	Suggestions    []string               `json:"suggestions"`
	HasPhoto       bool                   `json:"hasPhoto"`
	CameraActive   bool                   `json:"cameraActive"`
	Submitting     bool                   `json:"submitting"`
	Phase          string                 `json:"phase,omitempty"`
	PhaseLabel     string                 `json:"phaseLabel,omitempty"`
	Error          *common.ErrorResponse  `json:"error,omitempty"`
	Committed      *common.ReviewPayload  `json:"committed,omitempty"`
	ThanksDeadline *time.Time             `json:"thanksDeadline,omitempty"`
	Station        *common.StationPayload `json:"station,omitempty"`
	Version        uint64                 `json:"version"`
}

type loginResponse struct {
	Token   string           `json:"token"`
	Session *sessionResponse `json:"session,omitempty"`
}

type reviewListResponse struct {
	Items  []common.ReviewPayload `json:"items"`
	Status string                 `json:"status"`
	Total  int                    `json:"total"`
}

type wallCardResponse struct {
	Review    common.ReviewPayload `json:"review"`
	Overall   int                  `json:"overall"`
	Duplicate bool                 `json:"duplicate,omitempty"`
}

type wallResponse struct {
	State          string               `json:"state"`
	FeedStatus     string               `json:"feedStatus"`
	Message        string               `json:"message,omitempty"`
	Cards          []wallCardResponse   `json:"cards"`
	Columns        [][]wallCardResponse `json:"columns"`
	AutoScroll     bool                 `json:"autoScroll"`
	Centered       bool                 `json:"centered,omitempty"`
	AverageOverall string               `json:"averageOverall"`
	Count          int                  `json:"count"`
}

type galleryItemResponse struct {
	ID           string     `json:"id"`
	Hash         string     `json:"hash"`
	Title        string     `json:"title,omitempty"`
	OriginalName string     `json:"originalName,omitempty"`
	TakenAt      *time.Time `json:"takenAt,omitempty"`
	ThumbnailURL string     `json:"thumbnailUrl"`
}

type galleryResponse struct {
	FaceID     string                `json:"faceId"`
	State      string                `json:"state"`
	Message    string                `json:"message,omitempty"`
	PersonName string                `json:"personName"`
	Items      []galleryItemResponse `json:"items"`
	Count      int                   `json:"count"`
}

var phaseMessages = map[kioskapp.Phase]string{
	kioskapp.PhaseAuthenticating: locales.PhaseAuthenticating,
	kioskapp.PhasePublishing:     locales.PhasePublishing,
}

func (h *Handler) buildSessionResponse(snap kioskapp.Snapshot, lang string) sessionResponse {
	resp := sessionResponse{
		ID:            snap.ID,
		Lang:          lang,
		Mode:          string(snap.Mode),
		ReviewID:      snap.ReviewID,
		Screen:        string(snap.Screen),
		Overlay:       string(snap.Overlay),
		GalleryFaceID: snap.GalleryFaceID,
		Suggestions:   snap.Suggestions,
		HasPhoto:      snap.HasPhoto,
		CameraActive:  snap.CameraActive,
		Submitting:    snap.Submitting,
		Phase:         string(snap.Phase),
		Version:       snap.Version,
	}
	if resp.Suggestions == nil {
		resp.Suggestions = []string{}
	}
	if snap.Screen == kioskapp.ScreenConfigRequired {
		resp.ScreenMessage = h.respond.Message(lang, locales.ScreenConfigRequired)
	} else {
		station := common.NewStationPayload(snap.Station)
		resp.Station = &station
	}
	if id, ok := phaseMessages[snap.Phase]; ok {
		resp.PhaseLabel = h.respond.Message(lang, id)
	}
	if snap.Err != nil {
		_, code := common.ErrorStatus(snap.Err)
		if code == locales.ErrorInternal {
			code = locales.ErrorSubmissionFailed
		}
		resp.Error = &common.ErrorResponse{Error: h.respond.Message(lang, code), Code: code}
	}
	if snap.StepCount > 0 {
		wizard := &wizardResponse{
			Step:       snap.Step,
			StepCount:  snap.StepCount,
			StepKind:   string(snap.StepKind),
			Progress:   snap.Progress,
			CanAdvance: snap.CanAdvance,
			Name:       snap.Name,
			Comment:    snap.Comment,
			Ratings:    snap.Ratings,
			AckStar:    snap.AckStar,
		}
		if snap.Category != nil {
			category := common.NewCategoryPayload(*snap.Category)
			wizard.Category = &category
		}
		resp.Wizard = wizard
	}
	if snap.Committed != nil {
		committed := common.NewReviewPayload(*snap.Committed)
		resp.Committed = &committed
	}
	if !snap.ThanksDeadline.IsZero() {
		deadline := snap.ThanksDeadline
		resp.ThanksDeadline = &deadline
	}
	return resp
}

var wallMessages = map[kioskapp.WallState]string{
	kioskapp.WallEmpty:    locales.WallEmpty,
	kioskapp.WallNotFound: locales.WallNotFound,
}

func (h *Handler) buildWallResponse(view kioskapp.WallView, status kioskapp.FeedStatus, lang string) wallResponse {
	resp := wallResponse{
		State:          string(view.State),
		FeedStatus:     string(status),
		Cards:          wallCards(view.Cards),
		Columns:        make([][]wallCardResponse, 0, len(view.Columns)),
		AutoScroll:     view.AutoScroll,
		Centered:       view.Centered,
		AverageOverall: view.AverageOverall,
		Count:          view.Count,
	}
	for _, column := range view.Columns {
		resp.Columns = append(resp.Columns, wallCards(column))
	}
	switch {
	case status == kioskapp.FeedLoading:
		resp.Message = h.respond.Message(lang, locales.WallLoading)
	case status == kioskapp.FeedError:
		resp.Message = h.respond.Message(lang, locales.WallError)
	default:
		if id, ok := wallMessages[view.State]; ok {
			resp.Message = h.respond.Message(lang, id)
		}
	}
	return resp
}

func wallCards(cards []kioskapp.WallCard) []wallCardResponse {
	out := make([]wallCardResponse, 0, len(cards))
	for _, card := range cards {
		out = append(out, wallCardResponse{
			Review:    common.NewReviewPayload(card.Review),
			Overall:   card.Overall,
			Duplicate: card.Duplicate,
		})
	}
	return out
}

var galleryMessages = map[kioskapp.GalleryState]string{
	kioskapp.GallerySkipped:    locales.GallerySkipped,
	kioskapp.GalleryProcessing: locales.GalleryProcessing,
	kioskapp.GalleryFailed:     locales.GalleryFailed,
}

func (h *Handler) buildGalleryResponse(view kioskapp.GalleryView, lang string) galleryResponse {
	resp := galleryResponse{
		FaceID:     view.FaceID,
		State:      string(view.State),
		PersonName: view.PersonName,
		Items:      make([]galleryItemResponse, 0, len(view.Items)),
		Count:      len(view.Items),
	}
	if resp.PersonName == "" {
		resp.PersonName = h.respond.Message(lang, locales.GalleryPersonFallback)
	}
	if id, ok := galleryMessages[view.State]; ok {
		resp.Message = h.respond.Message(lang, id)
	}
	for _, item := range view.Items {
		resp.Items = append(resp.Items, newGalleryItem(item))
	}
	return resp
}

func newGalleryItem(item domain.FaceItem) galleryItemResponse {
	out := galleryItemResponse{
		ID:           item.ID,
		Hash:         item.Hash,
		Title:        item.Title,
		OriginalName: item.OriginalName,
		ThumbnailURL: item.ThumbnailURL,
	}
	if !item.TakenAt.IsZero() {
		taken := item.TakenAt.UTC()
		out.TakenAt = &taken
	}
	return out
}
