package application

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"

	"github.com/sngm3741/haraj-kiosk/api/internal/kiosk/domain"
)

var (
	// ErrConfigRequired is returned by every wizard operation while station settings are unavailable.
	ErrConfigRequired = errors.New("station configuration required")
	// ErrInvalidTransition is returned when an operation does not apply to the current screen or mode.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrSubmissionInProgress blocks input while the processing overlay is shown.
	ErrSubmissionInProgress = errors.New("submission in progress")
	// ErrSessionClosed is returned after Close.
	ErrSessionClosed = errors.New("session closed")
)

const (
	DefaultThanksDwell      = 12 * time.Second
	DefaultAutoAdvanceDelay = 600 * time.Millisecond
	DefaultAckDuration      = 400 * time.Millisecond
)

// Screen is the primary state of the kiosk cycle.
type Screen string

const (
	ScreenHome           Screen = "home"
	ScreenCamera         Screen = "camera"
	ScreenForm           Screen = "form"
	ScreenThanks         Screen = "thanks"
	ScreenConfigRequired Screen = "config_required"
)

// Overlay is a side screen drawn over the cycle.
type Overlay string

const (
	OverlayNone    Overlay = ""
	OverlayDisplay Overlay = "display"
	OverlayGallery Overlay = "gallery"
	OverlayLogin   Overlay = "login"
	OverlayAdmin   Overlay = "admin"
)

// Mode is the operating mode chosen once when the session is created.
type Mode string

const (
	ModeStation Mode = "station"
	ModeRemote  Mode = "remote"
	ModeDisplay Mode = "display"
	ModeReview  Mode = "review"
	ModeGallery Mode = "gallery"
)

// ModeSelection is the parsed mount-time query.
type ModeSelection struct {
	Mode     Mode
	ReviewID string
	FaceID   string
}

// ParseModeSelection reads mode, id and faceId. Unknown modes fall back to station.
func ParseModeSelection(values url.Values) ModeSelection {
	sel := ModeSelection{Mode: ModeStation}
	switch Mode(strings.ToLower(strings.TrimSpace(values.Get("mode")))) {
	case ModeRemote:
		sel.Mode = ModeRemote
	case ModeDisplay:
		sel.Mode = ModeDisplay
	case ModeReview:
		sel.Mode = ModeReview
		sel.ReviewID = strings.TrimSpace(values.Get("id"))
	case ModeGallery:
		sel.Mode = ModeGallery
		sel.FaceID = strings.TrimSpace(values.Get("faceId"))
	}
	return sel
}

// interactive reports whether the wizard cycle is reachable in the mode.
func (m Mode) interactive() bool {
	return m == ModeStation || m == ModeRemote
}

// AccessGate verifies a station access code and issues an admin token.
type AccessGate interface {
	Login(ctx context.Context, code string) (string, error)
}

// SessionConfig tunes the session timers.
type SessionConfig struct {
	ThanksDwell      time.Duration
	AutoAdvanceDelay time.Duration
	AckDuration      time.Duration
}

func (c SessionConfig) withDefaults() SessionConfig {
	if c.ThanksDwell <= 0 {
		c.ThanksDwell = DefaultThanksDwell
	}
	if c.AutoAdvanceDelay <= 0 {
		c.AutoAdvanceDelay = DefaultAutoAdvanceDelay
	}
	if c.AckDuration <= 0 {
		c.AckDuration = DefaultAckDuration
	}
	return c
}

// SessionDeps are the collaborators injected into every session.
type SessionDeps struct {
	Settings     *StationSettings
	Orchestrator *Orchestrator
	Access       AccessGate
	Clock        clock.Clock
	Logger       *zap.Logger
	// OnCommitted runs after a review is committed, outside the session lock.
	OnCommitted func(ctx context.Context, review domain.Review)
}

// Session is one mounted kiosk client. It owns the draft, the camera stream and the timers.
type Session struct {
	id        string
	selection ModeSelection
	lang      string
	cfg       SessionConfig
	deps      SessionDeps
	camera    Camera
	clock     clock.Clock
	logger    *zap.Logger
	createdAt time.Time

	mu            sync.Mutex
	lastSeen      time.Time
	screen        Screen
	overlay       Overlay
	station       domain.StationConfig
	wizard        *Wizard
	photo         Photo
	stream        MediaStream
	submitting    bool
	phase         Phase
	lastErr       error
	committed     *domain.Review
	galleryFaceID string
	thanksTimer   *clock.Timer
	thanksAt      time.Time
	advanceTimer  *clock.Timer
	advanceGen    uint64
	ackTimer      *clock.Timer
	ackStar       int
	cancelSubmit  context.CancelFunc
	closed        bool
	version       uint64
	wg            sync.WaitGroup
}

// NewSession mounts a session in the entry state of its mode.
func NewSession(id string, sel ModeSelection, lang string, camera Camera, deps SessionDeps, cfg SessionConfig) *Session {
	if deps.Clock == nil {
		deps.Clock = clock.New()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if camera == nil {
		camera = NewClientCamera()
	}
	s := &Session{
		id:        id,
		selection: sel,
		lang:      lang,
		cfg:       cfg.withDefaults(),
		deps:      deps,
		camera:    camera,
		clock:     deps.Clock,
		logger:    deps.Logger.With(zap.String("sessionId", id), zap.String("mode", string(sel.Mode))),
		screen:    ScreenHome,
	}
	s.createdAt = s.clock.Now()
	s.lastSeen = s.createdAt

	station, ok := s.currentStation()
	if !ok {
		s.screen = ScreenConfigRequired
		s.logger.Warn("station settings unavailable, session blocked")
		return s
	}
	s.station = station

	s.mu.Lock()
	defer s.mu.Unlock()
	switch sel.Mode {
	case ModeRemote:
		s.enterCycleLocked(context.Background())
	case ModeDisplay, ModeReview:
		s.overlay = OverlayDisplay
	case ModeGallery:
		s.overlay = OverlayGallery
		s.galleryFaceID = sel.FaceID
	}
	return s
}

func (s *Session) ID() string { return s.id }

// Selection returns the mode the session was mounted with.
func (s *Session) Selection() ModeSelection { return s.selection }

// Lang is the language negotiated at creation.
func (s *Session) Lang() string { return s.lang }

// LastSeen returns the time of the last client interaction.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Touch marks the session as in use.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastSeen = s.clock.Now()
	s.mu.Unlock()
}

// Start begins a review from Home. An open overlay must be closed first.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guardLocked(); err != nil {
		return err
	}
	if s.screen != ScreenHome || s.overlay != OverlayNone {
		return ErrInvalidTransition
	}
	s.enterCycleLocked(ctx)
	return nil
}

// CapturePhoto stores the frame into the draft and moves to the form.
func (s *Session) CapturePhoto(photo Photo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guardLocked(); err != nil {
		return err
	}
	if s.screen != ScreenCamera {
		return ErrInvalidTransition
	}
	if photo.Empty() {
		return ErrPhotoEmpty
	}
	s.photo = photo
	s.setScreenLocked(context.Background(), ScreenForm)
	return nil
}

// Cancel leaves the camera, or steps the wizard back (exiting it from the name step).
func (s *Session) Cancel(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guardLocked(); err != nil {
		return err
	}
	switch s.screen {
	case ScreenCamera:
		s.exitCycleLocked(ctx)
		return nil
	case ScreenForm:
		s.backLocked(ctx)
		return nil
	default:
		return ErrInvalidTransition
	}
}

// Back is the wizard back action. At step 0 it exits the wizard.
func (s *Session) Back(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guardFormLocked(); err != nil {
		return err
	}
	s.backLocked(ctx)
	return nil
}

// SetName updates the name input.
func (s *Session) SetName(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guardFormLocked(); err != nil {
		return err
	}
	if s.wizard.CurrentKind() != StepName {
		return ErrWrongStep
	}
	s.wizard.SetName(name)
	s.changedLocked()
	return nil
}

// SetComment updates the comment input.
func (s *Session) SetComment(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guardFormLocked(); err != nil {
		return err
	}
	if s.wizard.CurrentKind() != StepComment {
		return ErrWrongStep
	}
	s.wizard.SetComment(text)
	s.changedLocked()
	return nil
}

// AddSuggestion appends a quick-suggestion chip to the comment.
func (s *Session) AddSuggestion(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guardFormLocked(); err != nil {
		return err
	}
	if s.wizard.CurrentKind() != StepComment {
		return ErrWrongStep
	}
	s.wizard.AppendSuggestion(text)
	s.changedLocked()
	return nil
}

// Rate records a star value, shows the acknowledgement and schedules the auto-advance.
// The advance is bound to the step it was scheduled on, so a manual Next or Back cancels it.
func (s *Session) Rate(v int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guardFormLocked(); err != nil {
		return err
	}
	if err := s.wizard.SetRating(v); err != nil {
		return err
	}

	s.stopTimer(&s.ackTimer)
	s.ackStar = v
	s.ackTimer = s.clock.AfterFunc(s.cfg.AckDuration, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.ackStar == v {
			s.ackStar = 0
			s.changedLocked()
		}
	})

	s.cancelAdvanceLocked()
	gen := s.advanceGen
	step := s.wizard.Step()
	s.advanceTimer = s.clock.AfterFunc(s.cfg.AutoAdvanceDelay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed || gen != s.advanceGen || s.screen != ScreenForm || s.wizard == nil || s.wizard.Step() != step {
			return
		}
		s.advanceTimer = nil
		if err := s.wizard.Next(); err == nil {
			s.changedLocked()
		}
	})
	s.changedLocked()
	return nil
}

// Next is the manual advance.
func (s *Session) Next() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guardFormLocked(); err != nil {
		return err
	}
	s.cancelAdvanceLocked()
	if err := s.wizard.Next(); err != nil {
		return err
	}
	s.changedLocked()
	return nil
}

// Submit completes the wizard and starts the orchestrator in the background.
// On failure the session stays on the form with the draft intact.
func (s *Session) Submit(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guardFormLocked(); err != nil {
		return err
	}
	if !s.wizard.IsFinalStep() {
		return ErrInvalidTransition
	}
	draft, err := s.wizard.Draft()
	if err != nil {
		s.cancelAdvanceLocked()
		s.changedLocked()
		return err
	}
	if s.deps.Orchestrator == nil {
		return ErrNotConfigured
	}

	sub := Submission{
		Draft:         draft,
		Photo:         s.photo,
		FaceIDEnabled: s.station.FaceIDEnabled,
	}
	submitCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancelSubmit = cancel
	s.submitting = true
	s.phase = PhaseAuthenticating
	s.lastErr = nil
	s.changedLocked()

	s.wg.Add(1)
	go s.runSubmission(submitCtx, cancel, sub)
	return nil
}

func (s *Session) runSubmission(ctx context.Context, cancel context.CancelFunc, sub Submission) {
	defer s.wg.Done()
	defer cancel()

	review, err := s.deps.Orchestrator.Submit(ctx, sub, func(p Phase) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.submitting {
			s.phase = p
			s.changedLocked()
		}
	})

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.submitting = false
	s.phase = PhaseIdle
	s.cancelSubmit = nil
	if err != nil {
		s.lastErr = err
		s.changedLocked()
		s.mu.Unlock()
		s.logger.Error("review submission failed", zap.Error(err))
		sentry.CaptureException(fmt.Errorf("review submission: %w", err))
		return
	}

	s.committed = &review
	s.setScreenLocked(ctx, ScreenThanks)
	s.mu.Unlock()

	s.logger.Info("review committed", zap.String("reviewId", review.ID), zap.String("faceId", review.FaceID))
	if s.deps.OnCommitted != nil {
		s.deps.OnCommitted(ctx, review)
	}
}

// Finish leaves the thank-you screen before the dwell elapses.
func (s *Session) Finish(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guardLocked(); err != nil {
		return err
	}
	if s.screen != ScreenThanks {
		return ErrInvalidTransition
	}
	s.exitCycleLocked(ctx)
	return nil
}

// OpenDisplay shows the wall over the home screen.
func (s *Session) OpenDisplay() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guardOverlayLocked(); err != nil {
		return err
	}
	s.overlay = OverlayDisplay
	s.changedLocked()
	return nil
}

// OpenGallery shows the photos sharing faceID.
func (s *Session) OpenGallery(faceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guardOverlayLocked(); err != nil {
		return err
	}
	s.overlay = OverlayGallery
	s.galleryFaceID = strings.TrimSpace(faceID)
	s.changedLocked()
	return nil
}

// RequestAdmin shows the access-code prompt.
func (s *Session) RequestAdmin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guardOverlayLocked(); err != nil {
		return err
	}
	s.overlay = OverlayLogin
	s.changedLocked()
	return nil
}

// Login verifies the access code and opens the admin overlay. The token authorizes /admin calls.
func (s *Session) Login(ctx context.Context, code string) (string, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return "", ErrSessionClosed
	}
	if s.overlay != OverlayLogin {
		s.mu.Unlock()
		return "", ErrInvalidTransition
	}
	access := s.deps.Access
	s.mu.Unlock()

	if access == nil {
		return "", ErrNotConfigured
	}
	token, err := access.Login(ctx, code)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", ErrSessionClosed
	}
	s.overlay = OverlayAdmin
	s.changedLocked()
	return token, nil
}

// CloseOverlay returns to the cycle. Overlays fixed by the mode cannot be closed.
func (s *Session) CloseOverlay() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guardOverlayLocked(); err != nil {
		return err
	}
	s.overlay = OverlayNone
	s.galleryFaceID = ""
	s.changedLocked()
	return nil
}

// Close unmounts the session: timers are cleared, the camera released and any submission cancelled.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.stopTimer(&s.thanksTimer)
	s.stopTimer(&s.ackTimer)
	s.cancelAdvanceLocked()
	s.releaseCameraLocked()
	cancel := s.cancelSubmit
	s.cancelSubmit = nil
	s.changedLocked()
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

// Wait blocks until any in-flight submission returns.
func (s *Session) Wait() {
	s.wg.Wait()
}

func (s *Session) guardLocked() error {
	if s.closed {
		return ErrSessionClosed
	}
	if s.screen == ScreenConfigRequired {
		return ErrConfigRequired
	}
	if !s.selection.Mode.interactive() {
		return ErrInvalidTransition
	}
	if s.submitting {
		return ErrSubmissionInProgress
	}
	return nil
}

func (s *Session) guardFormLocked() error {
	if err := s.guardLocked(); err != nil {
		return err
	}
	if s.screen != ScreenForm || s.wizard == nil {
		return ErrInvalidTransition
	}
	return nil
}

func (s *Session) guardOverlayLocked() error {
	if s.closed {
		return ErrSessionClosed
	}
	if s.screen == ScreenConfigRequired {
		return ErrConfigRequired
	}
	if s.selection.Mode != ModeStation {
		return ErrInvalidTransition
	}
	if s.submitting {
		return ErrSubmissionInProgress
	}
	return nil
}

// enterCycleLocked starts a fresh draft on the camera, or the form when face identification is off.
func (s *Session) enterCycleLocked(ctx context.Context) {
	if station, ok := s.currentStation(); ok {
		s.station = station
	}
	s.wizard = nil
	s.photo = Photo{}
	s.committed = nil
	s.lastErr = nil
	if s.station.FaceIDEnabled {
		s.setScreenLocked(ctx, ScreenCamera)
		return
	}
	s.setScreenLocked(ctx, ScreenForm)
}

// exitCycleLocked discards the draft and returns to the mode's idle state.
func (s *Session) exitCycleLocked(ctx context.Context) {
	if s.selection.Mode == ModeRemote {
		s.enterCycleLocked(ctx)
		return
	}
	s.wizard = nil
	s.photo = Photo{}
	s.committed = nil
	s.lastErr = nil
	s.setScreenLocked(ctx, ScreenHome)
}

func (s *Session) backLocked(ctx context.Context) {
	s.cancelAdvanceLocked()
	if s.wizard.Back() {
		s.changedLocked()
		return
	}
	s.exitCycleLocked(ctx)
}

// setScreenLocked is the only place the screen changes. Leaving the camera always releases the stream.
func (s *Session) setScreenLocked(ctx context.Context, next Screen) {
	prev := s.screen
	if prev == ScreenCamera && next != ScreenCamera {
		s.releaseCameraLocked()
	}
	if prev == ScreenThanks && next != ScreenThanks {
		s.stopTimer(&s.thanksTimer)
	}
	if prev == ScreenForm && next != ScreenForm {
		s.cancelAdvanceLocked()
	}

	s.screen = next
	switch next {
	case ScreenCamera:
		s.releaseCameraLocked()
		stream, err := s.camera.Open(ctx)
		if err != nil {
			s.logger.Warn("camera unavailable, continuing without photo", zap.Error(err))
			s.lastErr = err
			s.screen = ScreenForm
			s.wizard = NewWizard(s.station.Categories)
			break
		}
		s.stream = stream
	case ScreenForm:
		if s.wizard == nil {
			s.wizard = NewWizard(s.station.Categories)
		}
	case ScreenThanks:
		s.wizard = nil
		s.photo = Photo{}
		s.thanksAt = s.clock.Now().Add(s.cfg.ThanksDwell)
		s.stopTimer(&s.thanksTimer)
		var timer *clock.Timer
		timer = s.clock.AfterFunc(s.cfg.ThanksDwell, func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if s.closed || s.screen != ScreenThanks || s.thanksTimer != timer {
				return
			}
			s.thanksTimer = nil
			s.exitCycleLocked(context.Background())
		})
		s.thanksTimer = timer
	}
	s.changedLocked()
}

func (s *Session) releaseCameraLocked() {
	if s.stream != nil {
		s.stream.Stop()
		s.stream = nil
	}
}

func (s *Session) cancelAdvanceLocked() {
	s.advanceGen++
	s.stopTimer(&s.advanceTimer)
}

func (s *Session) stopTimer(t **clock.Timer) {
	if *t != nil {
		(*t).Stop()
		*t = nil
	}
}

func (s *Session) changedLocked() {
	s.version++
	s.lastSeen = s.clock.Now()
}

func (s *Session) currentStation() (domain.StationConfig, bool) {
	if s.deps.Settings == nil {
		return domain.StationConfig{}, false
	}
	return s.deps.Settings.Current()
}

// Snapshot is everything a client needs to draw the session.
type Snapshot struct {
	ID             string
	Mode           Mode
	ReviewID       string
	Screen         Screen
	Overlay        Overlay
	GalleryFaceID  string
	Step           int
	StepCount      int
	StepKind       StepKind
	Category       *domain.RatingCategory
	Progress       []bool
	CanAdvance     bool
	Name           string
	Comment        string
	Ratings        domain.Ratings
	AckStar        int
	Suggestions    []string
	HasPhoto       bool
	CameraActive   bool
	Submitting     bool
	Phase          Phase
	Err            error
	Committed      *domain.Review
	ThanksDeadline time.Time
	Station        domain.StationConfig
	Version        uint64
}

// Snapshot returns a consistent copy of the session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		ID:            s.id,
		Mode:          s.selection.Mode,
		ReviewID:      s.selection.ReviewID,
		Screen:        s.screen,
		Overlay:       s.overlay,
		GalleryFaceID: s.galleryFaceID,
		AckStar:       s.ackStar,
		Suggestions:   append([]string(nil), s.station.Suggestions...),
		HasPhoto:      !s.photo.Empty(),
		CameraActive:  s.stream != nil,
		Submitting:    s.submitting,
		Phase:         s.phase,
		Err:           s.lastErr,
		Station:       s.station,
		Version:       s.version,
	}
	if s.wizard != nil {
		snap.Step = s.wizard.Step()
		snap.StepCount = s.wizard.StepCount()
		snap.StepKind = s.wizard.CurrentKind()
		if category, ok := s.wizard.CurrentCategory(); ok {
			snap.Category = &category
		}
		snap.Progress = s.wizard.Progress()
		snap.CanAdvance = s.wizard.CanAdvance()
		snap.Name = s.wizard.Name()
		snap.Comment = s.wizard.Comment()
		snap.Ratings = s.wizard.Ratings()
	}
	if s.committed != nil {
		committed := *s.committed
		snap.Committed = &committed
	}
	if s.screen == ScreenThanks {
		snap.ThanksDeadline = s.thanksAt
	}
	return snap
}
