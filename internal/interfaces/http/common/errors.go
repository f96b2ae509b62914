package common

import (
	"errors"
	"net/http"

	adminapp "github.com/sngm3741/haraj-kiosk/api/internal/admin/application"
	kioskapp "github.com/sngm3741/haraj-kiosk/api/internal/kiosk/application"
	"github.com/sngm3741/haraj-kiosk/api/internal/locales"
)

// ErrBadRequest marks malformed request bodies or parameters.
var ErrBadRequest = errors.New("bad request")

// ErrSessionNotFound is returned for unknown or expired session ids.
var ErrSessionNotFound = errors.New("session not found")

var errorTable = []struct {
	err    error
	status int
	msgID  string
}{
	{ErrBadRequest, http.StatusBadRequest, locales.ErrorBadRequest},
	{ErrSessionNotFound, http.StatusNotFound, locales.ErrorSessionNotFound},
	{kioskapp.ErrConfigRequired, http.StatusConflict, locales.ErrorConfigRequired},
	{kioskapp.ErrInvalidTransition, http.StatusConflict, locales.ErrorInvalidTransition},
	{kioskapp.ErrStepBlocked, http.StatusConflict, locales.ErrorInvalidTransition},
	{kioskapp.ErrWrongStep, http.StatusConflict, locales.ErrorInvalidTransition},
	{kioskapp.ErrSubmissionInProgress, http.StatusConflict, locales.ErrorSubmissionInProgress},
	{kioskapp.ErrSessionClosed, http.StatusGone, locales.ErrorSessionClosed},
	{kioskapp.ErrNameRequired, http.StatusUnprocessableEntity, locales.ErrorNameRequired},
	{kioskapp.ErrInvalidRating, http.StatusUnprocessableEntity, locales.ErrorInvalidRating},
	{kioskapp.ErrPhotoEmpty, http.StatusUnprocessableEntity, locales.ErrorInvalidPhoto},
	{kioskapp.ErrPhotoType, http.StatusUnprocessableEntity, locales.ErrorInvalidPhoto},
	{kioskapp.ErrPhotoTooLarge, http.StatusRequestEntityTooLarge, locales.ErrorInvalidPhoto},
	{kioskapp.ErrReviewNotFound, http.StatusNotFound, locales.ErrorReviewNotFound},
	{kioskapp.ErrBlobNotFound, http.StatusNotFound, locales.ErrorBlobNotFound},
	{kioskapp.ErrNotConfigured, http.StatusServiceUnavailable, locales.ErrorNotConfigured},
	{adminapp.ErrInvalidAccessCode, http.StatusUnauthorized, locales.ErrorInvalidAccessCode},
	{adminapp.ErrAccessNotConfigured, http.StatusServiceUnavailable, locales.ErrorAccessNotConfigured},
	{adminapp.ErrInvalidToken, http.StatusUnauthorized, locales.ErrorUnauthorized},
	{adminapp.ErrConfirmationRequired, http.StatusPreconditionRequired, locales.ErrorConfirmationRequired},
	{adminapp.ErrValidation, http.StatusUnprocessableEntity, locales.ErrorValidation},
}

// ErrorStatus maps domain and application errors onto an HTTP status and message id.
func ErrorStatus(err error) (int, string) {
	for _, entry := range errorTable {
		if errors.Is(err, entry.err) {
			return entry.status, entry.msgID
		}
	}
	return http.StatusInternalServerError, locales.ErrorInternal
}
