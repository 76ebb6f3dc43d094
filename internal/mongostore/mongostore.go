package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"lecture-rag/internal/models"
)

// ImageDocument is an extracted image as stored in the metadata collection.
// Older documents were written with numeric lecture and page fields, so those
// are decoded loosely.
type ImageDocument struct {
	ID            string      `bson:"_id"`
	Image         []byte      `bson:"image"`
	MIMEType      string      `bson:"mime_type,omitempty"`
	LectureCode   string      `bson:"lecture_code"`
	ModuleID      string      `bson:"module_id,omitempty"`
	LectureNumber interface{} `bson:"lecture_number"`
	LectureTitle  string      `bson:"lecture_title,omitempty"`
	PageNumber    interface{} `bson:"page_number"`
	Text          string      `bson:"text,omitempty"`
	ProcessedAt   string      `bson:"processed_at,omitempty"`
	ProcessedBy   string      `bson:"processed_by,omitempty"`
}

// Store reads and writes image records in a MongoDB collection.
type Store struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// Connect opens a client and pings the server.
func Connect(ctx context.Context, uri, database, collection string) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("pinging mongo: %w", err)
	}
	log.Debug().Str("database", database).Str("collection", collection).Msg("Connected to mongo")
	return &Store{client: client, coll: client.Database(database).Collection(collection)}, nil
}

func (s *Store) Close() error {
	return s.client.Disconnect(context.Background())
}

// GetImage loads one record by id. Missing documents and documents without
// an image payload are ErrPartialRecord.
func (s *Store) GetImage(ctx context.Context, id string) (*models.ImageRecord, error) {
	var doc ImageDocument
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: image %s not found", models.ErrPartialRecord, id)
	}
	if err != nil {
		return nil, fmt.Errorf("loading image %s: %w", id, err)
	}
	return doc.Record()
}

// StoreImages inserts records, skipping ids that already exist.
func (s *Store) StoreImages(ctx context.Context, records []models.ImageRecord, processedAt string) error {
	if len(records) == 0 {
		return nil
	}
	docs := make([]interface{}, len(records))
	for i, r := range records {
		docs[i] = NewImageDocument(r, processedAt)
	}
	_, err := s.coll.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if err != nil && !onlyDuplicateKeys(err) {
		return fmt.Errorf("inserting images: %w", err)
	}
	return nil
}

// DropImages removes the image collection.
func (s *Store) DropImages(ctx context.Context) error {
	if err := s.coll.Drop(ctx); err != nil {
		return fmt.Errorf("dropping image collection: %w", err)
	}
	return nil
}

func onlyDuplicateKeys(err error) bool {
	var bwe mongo.BulkWriteException
	if !errors.As(err, &bwe) || bwe.WriteConcernError != nil {
		return false
	}
	for _, we := range bwe.WriteErrors {
		if we.Code != 11000 {
			return false
		}
	}
	return true
}

func NewImageDocument(r models.ImageRecord, processedAt string) ImageDocument {
	return ImageDocument{
		ID:            r.ID,
		Image:         r.Image,
		MIMEType:      r.MIMEType,
		LectureCode:   r.LectureCode,
		ModuleID:      r.ModuleID,
		LectureNumber: r.LectureNumber,
		LectureTitle:  r.LectureTitle,
		PageNumber:    r.PageNumber,
		Text:          r.Text,
		ProcessedAt:   processedAt,
		ProcessedBy:   "lecture-rag",
	}
}

// Record converts the stored document into an ImageRecord.
func (d ImageDocument) Record() (*models.ImageRecord, error) {
	if len(d.Image) == 0 {
		return nil, fmt.Errorf("%w: image %s has no payload", models.ErrPartialRecord, d.ID)
	}
	return &models.ImageRecord{
		ID:            d.ID,
		Image:         d.Image,
		MIMEType:      d.MIMEType,
		LectureCode:   d.LectureCode,
		ModuleID:      d.ModuleID,
		LectureNumber: stringify(d.LectureNumber),
		LectureTitle:  d.LectureTitle,
		PageNumber:    stringify(d.PageNumber),
		Text:          d.Text,
	}, nil
}

func stringify(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int32, int64, int:
		return fmt.Sprintf("%d", x)
	case float64:
		if x == float64(int64(x)) {
			return fmt.Sprintf("%d", int64(x))
		}
		return fmt.Sprintf("%g", x)
	case primitive.Decimal128:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
