package locales

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

//go:embed *.json
var localeFS embed.FS

// Message ids shared by the HTTP layer.
const (
	PhaseAuthenticating       = "PhaseAuthenticating"
	PhasePublishing           = "PhasePublishing"
	ScreenConfigRequired      = "ScreenConfigRequired"
	WallEmpty                 = "WallEmpty"
	WallNotFound              = "WallNotFound"
	WallLoading               = "WallLoading"
	WallError                 = "WallError"
	GallerySkipped            = "GallerySkipped"
	GalleryProcessing         = "GalleryProcessing"
	GalleryFailed             = "GalleryFailed"
	GalleryPersonFallback     = "GalleryPersonFallback"
	ErrorBadRequest           = "ErrorBadRequest"
	ErrorInternal             = "ErrorInternal"
	ErrorNotConfigured        = "ErrorNotConfigured"
	ErrorConfigRequired       = "ErrorConfigRequired"
	ErrorInvalidTransition    = "ErrorInvalidTransition"
	ErrorSubmissionInProgress = "ErrorSubmissionInProgress"
	ErrorSessionClosed        = "ErrorSessionClosed"
	ErrorSessionNotFound      = "ErrorSessionNotFound"
	ErrorNameRequired         = "ErrorNameRequired"
	ErrorInvalidRating        = "ErrorInvalidRating"
	ErrorInvalidPhoto         = "ErrorInvalidPhoto"
	ErrorSubmissionFailed     = "ErrorSubmissionFailed"
	ErrorInvalidAccessCode    = "ErrorInvalidAccessCode"
	ErrorAccessNotConfigured  = "ErrorAccessNotConfigured"
	ErrorUnauthorized         = "ErrorUnauthorized"
	ErrorConfirmationRequired = "ErrorConfirmationRequired"
	ErrorValidation           = "ErrorValidation"
	ErrorReviewNotFound       = "ErrorReviewNotFound"
	ErrorBlobNotFound         = "ErrorBlobNotFound"
)

// Catalog holds the embedded translations.
type Catalog struct {
	bundle    *i18n.Bundle
	fallback  language.Tag
	supported []language.Tag
	matcher   language.Matcher
	logger    *zap.Logger
}

// NewCatalog loads every embedded message file. Unknown default languages fall back to English.
func NewCatalog(defaultLangCode string, logger *zap.Logger) (*Catalog, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	fallback, err := language.Parse(defaultLangCode)
	if err != nil {
		logger.Warn("invalid default language, using English", zap.String("lang", defaultLangCode), zap.Error(err))
		fallback = language.English
	}

	bundle := i18n.NewBundle(fallback)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	entries, err := localeFS.ReadDir(".")
	if err != nil {
		return nil, fmt.Errorf("read embedded locales: %w", err)
	}

	supported := []language.Tag{fallback}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		file, err := bundle.LoadMessageFileFS(localeFS, entry.Name())
		if err != nil {
			return nil, fmt.Errorf("load message file %s: %w", entry.Name(), err)
		}
		if file.Tag != fallback {
			supported = append(supported, file.Tag)
		}
	}
	if len(bundle.LanguageTags()) == 0 {
		return nil, fmt.Errorf("no message files embedded")
	}

	return &Catalog{
		bundle:    bundle,
		fallback:  fallback,
		supported: supported,
		matcher:   language.NewMatcher(supported),
		logger:    logger,
	}, nil
}

// Negotiate picks the supported language closest to an Accept-Language header or language code.
func (c *Catalog) Negotiate(prefs ...string) string {
	_, index := language.MatchStrings(c.matcher, prefs...)
	base, _ := c.supported[index].Base()
	return base.String()
}

// Fallback returns the default language code.
func (c *Catalog) Fallback() string {
	base, _ := c.fallback.Base()
	return base.String()
}

// Localize resolves msgID for lang. Missing translations fall back to the default language, then to the id.
func (c *Catalog) Localize(lang, msgID string, data map[string]any) string {
	localizer := i18n.NewLocalizer(c.bundle, lang, c.fallback.String())
	msg, err := localizer.Localize(&i18n.LocalizeConfig{MessageID: msgID, TemplateData: data})
	if err == nil {
		return msg
	}
	c.logger.Debug("missing translation", zap.String("lang", lang), zap.String("messageId", msgID), zap.Error(err))
	return msgID
}
