package admin

import (
	"github.com/sngm3741/haraj-kiosk/api/internal/interfaces/http/common"
)

type adminReviewListResponse struct {
	Items []common.ReviewPayload `json:"items"`
	Query string                 `json:"query,omitempty"`
}

type updateReviewRequest struct {
	Name    *string        `json:"name"`
	Comment *string        `json:"comment"`
	Ratings map[string]int `json:"ratings"`
}

type deleteAllResponse struct {
	Deleted int64 `json:"deleted"`
}

type updateSettingsRequest struct {
	common.StationPayload
}
