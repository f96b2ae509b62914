package domain

import (
	"strconv"
	"strings"
	"time"
)

const (
	// GuestFaceID is stored when recognition is disabled or no photo exists.
	GuestFaceID = "GUEST_ID"

	guestFallbackPrefix = "GUEST_"
	errorFaceIDPrefix   = "ERR_"
)

// NewGuestFallbackID is used when recognition ran but never produced a cluster.
func NewGuestFallbackID(now time.Time) string {
	return guestFallbackPrefix + strconv.FormatInt(now.UnixMilli(), 10)
}

// NewErrorFaceID is used when the recognition service failed.
func NewErrorFaceID(now time.Time) string {
	return errorFaceIDPrefix + strconv.FormatInt(now.UnixMilli(), 10)
}

// IsSentinelFaceID reports whether id carries no real face cluster.
func IsSentinelFaceID(id string) bool {
	id = strings.TrimSpace(id)
	if id == "" || id == GuestFaceID {
		return true
	}
	return strings.HasPrefix(id, guestFallbackPrefix) || strings.HasPrefix(id, "ERR")
}

// FaceMarker is a face detection on a recognition-service item.
type FaceMarker struct {
	UID       string
	SubjectID string
	ClusterID string
	Name      string
}

// Identity returns the subject id when known, otherwise the raw cluster id.
func (m FaceMarker) Identity() string {
	if id := strings.TrimSpace(m.SubjectID); id != "" {
		return id
	}
	return strings.TrimSpace(m.ClusterID)
}

// FaceItem is a photo held by the recognition service.
type FaceItem struct {
	ID           string
	Hash         string
	Title        string
	OriginalName string
	TakenAt      time.Time
	ThumbnailURL string
	Markers      []FaceMarker
}

// FirstIdentity returns the first marker identity on the item.
func (i FaceItem) FirstIdentity() (string, bool) {
	for _, marker := range i.Markers {
		if id := marker.Identity(); id != "" {
			return id, true
		}
	}
	return "", false
}
