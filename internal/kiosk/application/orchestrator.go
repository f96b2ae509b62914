package application

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sngm3741/haraj-kiosk/api/internal/kiosk/domain"
)

// Phase is the user-visible progress of a submission.
type Phase string

const (
	PhaseIdle           Phase = ""
	PhaseAuthenticating Phase = "authenticating"
	PhasePublishing     Phase = "publishing"
)

// Submission is the completed wizard draft plus the captured photo.
type Submission struct {
	Draft         domain.Draft
	Photo         Photo
	FaceIDEnabled bool
}

// OrchestratorConfig holds the storage bucket and fallback image.
type OrchestratorConfig struct {
	Bucket           string
	FallbackPhotoURL string
}

// Orchestrator turns a completed draft into a committed review.
type Orchestrator struct {
	reviews ReviewGateway
	blobs   BlobStore
	faces   *FaceIdentifier
	clock   clock.Clock
	logger  *zap.Logger
	cfg     OrchestratorConfig
}

// NewOrchestrator wires the gateways used by Submit.
func NewOrchestrator(reviews ReviewGateway, blobs BlobStore, faces *FaceIdentifier, clk clock.Clock, logger *zap.Logger, cfg OrchestratorConfig) *Orchestrator {
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(cfg.Bucket) == "" {
		cfg.Bucket = "review-photos"
	}
	return &Orchestrator{reviews: reviews, blobs: blobs, faces: faces, clock: clk, logger: logger, cfg: cfg}
}

// Submit identifies the face and uploads the photo concurrently, then inserts the merged record.
// progress receives phase changes and may be nil.
func (o *Orchestrator) Submit(ctx context.Context, sub Submission, progress func(Phase)) (domain.Review, error) {
	report := func(p Phase) {
		if progress != nil {
			progress(p)
		}
	}

	filename := o.photoFilename(sub.Photo)
	report(PhaseAuthenticating)

	var (
		faceID   string
		photoURL string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if !sub.FaceIDEnabled {
			return nil
		}
		faceID = o.faces.Identify(gctx, sub.Photo.Data, filename)
		return nil
	})
	g.Go(func() error {
		if sub.Photo.Empty() {
			photoURL = o.cfg.FallbackPhotoURL
			return nil
		}
		url, err := o.blobs.UploadBlob(gctx, o.cfg.Bucket, filename, sub.Photo.ContentType, sub.Photo.Data)
		if err != nil {
			return fmt.Errorf("upload photo: %w", err)
		}
		photoURL = url
		return nil
	})
	if err := g.Wait(); err != nil {
		return domain.Review{}, err
	}

	report(PhasePublishing)
	record := domain.Review{
		Name:      sub.Draft.Name,
		Photo:     photoURL,
		FaceID:    faceID,
		Ratings:   sub.Draft.Ratings.Clone(),
		Comment:   sub.Draft.Comment,
		Timestamp: o.clock.Now().UnixMilli(),
	}

	committed, err := o.reviews.InsertReview(ctx, record)
	if err == nil {
		return committed, nil
	}
	if !errors.Is(err, ErrUnknownColumn) || record.FaceID == "" {
		return domain.Review{}, err
	}

	o.logger.Warn("insert rejected an unknown column, retrying without faceId", zap.Error(err))
	record.FaceID = ""
	committed, retryErr := o.reviews.InsertReview(ctx, record)
	if retryErr != nil {
		o.logger.Error("insert retry without faceId failed", zap.Error(retryErr))
		return domain.Review{}, err
	}
	return committed, nil
}

// photoFilename is <unix ms>_<random>.<ext>.
func (o *Orchestrator) photoFilename(photo Photo) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return strconv.FormatInt(o.clock.Now().UnixMilli(), 10) + "_" + suffix + "." + photo.Ext()
}
