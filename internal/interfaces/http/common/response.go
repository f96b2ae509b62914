package common

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/sngm3741/haraj-kiosk/api/internal/locales"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// WriteJSON serializes payload to JSON with status and logs on failure.
func WriteJSON(logger *zap.Logger, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil && logger != nil {
		logger.Warn("JSON エンコードに失敗", zap.Error(err))
	}
}

// Responder はリクエスト言語に合わせて JSON とエラーを書き出す。
type Responder struct {
	Logger  *zap.Logger
	Catalog *locales.Catalog
}

// Lang negotiates the response language from Accept-Language (or ?lang=).
func (rs Responder) Lang(r *http.Request) string {
	if rs.Catalog == nil {
		return ""
	}
	if lang := r.URL.Query().Get("lang"); lang != "" {
		return rs.Catalog.Negotiate(lang)
	}
	return rs.Catalog.Negotiate(r.Header.Get("Accept-Language"))
}

// Message localizes msgID. Without a catalog the id itself is returned.
func (rs Responder) Message(lang, msgID string) string {
	if rs.Catalog == nil || msgID == "" {
		return msgID
	}
	return rs.Catalog.Localize(lang, msgID, nil)
}

// JSON writes a successful payload.
func (rs Responder) JSON(w http.ResponseWriter, status int, payload any) {
	WriteJSON(rs.Logger, w, status, payload)
}

// Error writes {"error": <localized>, "code": <msgID>}.
func (rs Responder) Error(w http.ResponseWriter, lang string, status int, msgID string) {
	if lang != "" {
		w.Header().Set(LanguageHeader, lang)
	}
	WriteJSON(rs.Logger, w, status, ErrorResponse{Error: rs.Message(lang, msgID), Code: msgID})
}

// Fail maps err onto a status and message id. Unknown errors are logged and reported as internal.
func (rs Responder) Fail(w http.ResponseWriter, lang string, err error) {
	status, msgID := ErrorStatus(err)
	if status >= http.StatusInternalServerError && rs.Logger != nil {
		rs.Logger.Error("request failed", zap.Int("status", status), zap.Error(err))
	}
	rs.Error(w, lang, status, msgID)
}
