package mongo

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ReviewDocument は MongoDB 上でのレビュースキーマを表現する。
// ratings は旧レコードでは数値、新レコードでは埋め込みドキュメントになるため any で受ける。
type ReviewDocument struct {
	ID           primitive.ObjectID `bson:"_id"`
	SerialNumber *int64             `bson:"serial_number,omitempty"`
	Name         string             `bson:"name"`
	Photo        string             `bson:"photo,omitempty"`
	FaceID       string             `bson:"face_id,omitempty"`
	Ratings      any                `bson:"ratings,omitempty"`
	Rating       *float64           `bson:"rating,omitempty"`
	Comment      string             `bson:"comment,omitempty"`
	Timestamp    int64              `bson:"timestamp"`
	CreatedAt    time.Time          `bson:"created_at"`
	UpdatedAt    *time.Time         `bson:"updated_at,omitempty"`
}

// SettingsDocument はステーション設定 1 件分のスキーマ。_id は固定キー。
type SettingsDocument struct {
	ID            string             `bson:"_id"`
	LogoURL       string             `bson:"logo_url,omitempty"`
	Background    BackgroundDocument `bson:"background"`
	Categories    []CategoryDocument `bson:"categories,omitempty"`
	FaceIDEnabled *bool              `bson:"face_id_enabled,omitempty"`
	Suggestions   []string           `bson:"suggestions,omitempty"`
	UpdatedAt     time.Time          `bson:"updated_at"`
}

// BackgroundDocument は背景画像の配置情報を保持する埋め込みドキュメント。
type BackgroundDocument struct {
	ImageURL string  `bson:"image_url,omitempty"`
	Zoom     float64 `bson:"zoom,omitempty"`
	OffsetX  float64 `bson:"offset_x,omitempty"`
	OffsetY  float64 `bson:"offset_y,omitempty"`
	Blur     float64 `bson:"blur,omitempty"`
}

// CategoryDocument は評価カテゴリ 1 件分。
type CategoryDocument struct {
	ID       string `bson:"id"`
	Label    string `bson:"label"`
	Question string `bson:"question,omitempty"`
}

// counterDocument は連番採番用のカウンタ。
type counterDocument struct {
	ID  string `bson:"_id"`
	Seq int64  `bson:"seq"`
}
