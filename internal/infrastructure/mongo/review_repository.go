package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sngm3741/haraj-kiosk/api/internal/kiosk/application"
	"github.com/sngm3741/haraj-kiosk/api/internal/kiosk/domain"
)

// documentValidationFailure はスキーマバリデータが未知フィールドを拒否したときのコード。
const documentValidationFailure = 121

// ReviewRepository は application.ReviewGateway を MongoDB で実装する。
type ReviewRepository struct {
	reviews    *mongo.Collection
	counters   *mongo.Collection
	counterKey string
	now        func() time.Time
}

// NewReviewRepository はレビューと連番カウンタの 2 コレクションを束縛したリポジトリを生成する。
func NewReviewRepository(db *mongo.Database, reviewCollection, counterCollection string) *ReviewRepository {
	return &ReviewRepository{
		reviews:    db.Collection(reviewCollection),
		counters:   db.Collection(counterCollection),
		counterKey: reviewCollection,
		now:        time.Now,
	}
}

// ListReviews は timestamp の降順で最大 limit 件を返す。
func (r *ReviewRepository) ListReviews(ctx context.Context, limit int) ([]domain.Review, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "serial_number", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cursor, err := r.reviews.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	reviews := make([]domain.Review, 0)
	for cursor.Next(ctx) {
		var doc ReviewDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		reviews = append(reviews, mapReviewDocument(doc))
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return reviews, nil
}

// InsertReview は連番を採番してから 1 件登録する。
// バリデータが未知フィールドを拒否した場合は application.ErrUnknownColumn を返す。
func (r *ReviewRepository) InsertReview(ctx context.Context, review domain.Review) (domain.Review, error) {
	serial, err := r.nextSerial(ctx)
	if err != nil {
		return domain.Review{}, fmt.Errorf("allocate serial number: %w", err)
	}

	doc := ReviewDocument{
		ID:           primitive.NewObjectID(),
		SerialNumber: &serial,
		Name:         strings.TrimSpace(review.Name),
		Photo:        review.Photo,
		FaceID:       review.FaceID,
		Ratings:      encodeRatings(review.Ratings),
		Comment:      strings.TrimSpace(review.Comment),
		Timestamp:    review.Timestamp,
		CreatedAt:    r.now().UTC(),
	}
	if _, err := r.reviews.InsertOne(ctx, doc); err != nil {
		return domain.Review{}, translateWriteError(err)
	}

	review.ID = doc.ID.Hex()
	review.SerialNumber = &serial
	review.Name = doc.Name
	review.Comment = doc.Comment
	return review, nil
}

// UpdateReview は管理画面からの編集を $set で反映し、更新後のドキュメントを返す。
func (r *ReviewRepository) UpdateReview(ctx context.Context, id string, patch domain.ReviewPatch) (domain.Review, error) {
	objectID, err := parseReviewID(id)
	if err != nil {
		return domain.Review{}, err
	}

	set := bson.M{"updated_at": r.now().UTC()}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.Comment != nil {
		set["comment"] = *patch.Comment
	}
	if len(patch.Ratings) > 0 {
		set["ratings"] = encodeRatings(patch.Ratings)
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc ReviewDocument
	err = r.reviews.FindOneAndUpdate(ctx, bson.M{"_id": objectID}, bson.M{"$set": set, "$unset": bson.M{"rating": ""}}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Review{}, application.ErrReviewNotFound
	}
	if err != nil {
		return domain.Review{}, translateWriteError(err)
	}
	return mapReviewDocument(doc), nil
}

func (r *ReviewRepository) DeleteReview(ctx context.Context, id string) error {
	objectID, err := parseReviewID(id)
	if err != nil {
		return err
	}
	result, err := r.reviews.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return application.ErrReviewNotFound
	}
	return nil
}

func (r *ReviewRepository) DeleteAllReviews(ctx context.Context) (int64, error) {
	result, err := r.reviews.DeleteMany(ctx, bson.M{})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

func (r *ReviewRepository) FindReview(ctx context.Context, id string) (domain.Review, error) {
	objectID, err := parseReviewID(id)
	if err != nil {
		return domain.Review{}, err
	}
	return r.findOne(ctx, bson.M{"_id": objectID})
}

func (r *ReviewRepository) FindBySerial(ctx context.Context, serial int64) (domain.Review, error) {
	return r.findOne(ctx, bson.M{"serial_number": serial})
}

func (r *ReviewRepository) findOne(ctx context.Context, filter bson.M) (domain.Review, error) {
	var doc ReviewDocument
	err := r.reviews.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Review{}, application.ErrReviewNotFound
	}
	if err != nil {
		return domain.Review{}, err
	}
	return mapReviewDocument(doc), nil
}

// nextSerial はカウンタを $inc で進め、採番後の値を返す。
func (r *ReviewRepository) nextSerial(ctx context.Context) (int64, error) {
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var counter counterDocument
	err := r.counters.FindOneAndUpdate(ctx, bson.M{"_id": r.counterKey}, bson.M{"$inc": bson.M{"seq": int64(1)}}, opts).Decode(&counter)
	if err != nil {
		return 0, err
	}
	return counter.Seq, nil
}

func parseReviewID(id string) (primitive.ObjectID, error) {
	objectID, err := primitive.ObjectIDFromHex(strings.TrimSpace(id))
	if err != nil {
		return primitive.NilObjectID, application.ErrReviewNotFound
	}
	return objectID, nil
}

func translateWriteError(err error) error {
	var serverErr mongo.ServerError
	if errors.As(err, &serverErr) && serverErr.HasErrorCode(documentValidationFailure) {
		return fmt.Errorf("%w: %v", application.ErrUnknownColumn, err)
	}
	return err
}

func mapReviewDocument(doc ReviewDocument) domain.Review {
	return domain.Review{
		ID:           doc.ID.Hex(),
		SerialNumber: doc.SerialNumber,
		Name:         doc.Name,
		Photo:        doc.Photo,
		FaceID:       doc.FaceID,
		Ratings:      decodeRatings(doc.Ratings, doc.Rating),
		Comment:      doc.Comment,
		Timestamp:    doc.Timestamp,
	}
}
