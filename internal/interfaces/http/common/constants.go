package common

const (
	// MaxRequestBody limits JSON request bodies.
	MaxRequestBody = 1 << 20
	// MaxPhotoBody limits a raw or data-URL photo upload; base64 inflates by a third.
	MaxPhotoBody = 12 << 20
	// LanguageHeader echoes the negotiated language on every localized response.
	LanguageHeader = "Content-Language"
)
