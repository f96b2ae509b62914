package photoprism

import (
	"time"

	"github.com/sngm3741/haraj-kiosk/api/internal/kiosk/domain"
)

type photoPayload struct {
	UID          string        `json:"UID"`
	Hash         string        `json:"Hash"`
	Title        string        `json:"Title"`
	OriginalName string        `json:"OriginalName"`
	TakenAt      time.Time     `json:"TakenAt"`
	Files        []filePayload `json:"Files"`
}

type filePayload struct {
	Hash    string          `json:"Hash"`
	Primary bool            `json:"Primary"`
	Markers []markerPayload `json:"Markers"`
}

type markerPayload struct {
	UID        string `json:"UID"`
	Type       string `json:"Type"`
	SubjUID    string `json:"SubjUID"`
	FaceID     string `json:"FaceID"`
	ClusterUID string `json:"ClusterUID"`
	Name       string `json:"Name"`
	Invalid    bool   `json:"Invalid"`
}

func (p photoPayload) toDomain(thumbnail func(hash string) string) domain.FaceItem {
	item := domain.FaceItem{
		ID:           p.UID,
		Hash:         p.Hash,
		Title:        p.Title,
		OriginalName: p.OriginalName,
		TakenAt:      p.TakenAt,
	}
	for _, file := range p.Files {
		if item.Hash == "" && file.Primary {
			item.Hash = file.Hash
		}
		for _, m := range file.Markers {
			if m.Invalid || (m.Type != "" && m.Type != "face") {
				continue
			}
			cluster := m.FaceID
			if cluster == "" {
				cluster = m.ClusterUID
			}
			item.Markers = append(item.Markers, domain.FaceMarker{
				UID:       m.UID,
				SubjectID: m.SubjUID,
				ClusterID: cluster,
				Name:      m.Name,
			})
		}
	}
	item.ThumbnailURL = thumbnail(item.Hash)
	return item
}
