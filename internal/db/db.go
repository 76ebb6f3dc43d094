package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"
	_ "modernc.org/sqlite"

	"lecture-rag/internal/config"
	"lecture-rag/internal/models"
)

// ImageRow is the persisted form of an extracted lecture image.
type ImageRow struct {
	bun.BaseModel `bun:"table:lecture_images,alias:li"`
	ID            string `bun:"id,pk"`
	Collection    string `bun:"collection,notnull"`
	Image         []byte `bun:"image"`
	MIMEType      string `bun:"mime_type"`
	LectureCode   string `bun:"lecture_code"`
	ModuleID      string `bun:"module_id"`
	LectureNumber string `bun:"lecture_number"`
	LectureTitle  string `bun:"lecture_title"`
	PageNumber    string `bun:"page_number"`
	Text          string `bun:"text"`
	ProcessedAt   string `bun:"processed_at"`
}

// Store is a bun-backed metadata store for images and, on postgres, a
// pgvector text index.
type Store struct {
	db         *bun.DB
	collection string
}

// ConnectDB opens the sql connection for the configured backend
func ConnectDB(cfg *config.MetadataStoreConfig) (*sql.DB, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		sqldb, err := sql.Open("sqlite", cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
		// SQLite doesn't support concurrent writes
		sqldb.SetMaxOpenConns(1)
		return sqldb, nil
	case config.BackendPostgres:
		return connectPostgres(cfg.DSN, cfg.Driver, cfg.Password)
	default:
		return nil, fmt.Errorf("unsupported sql backend: %s", cfg.Backend)
	}
}

func connectPostgres(dsn, driver, password string) (*sql.DB, error) {
	if driver == "pq" {
		return sql.Open("postgres", dsn)
	}
	opts := []pgdriver.Option{pgdriver.WithDSN(dsn)}
	if password != "" {
		opts = append(opts, pgdriver.WithPassword(password))
	}
	return sql.OpenDB(pgdriver.NewConnector(opts...)), nil
}

// NewDB wraps the connection with the dialect matching backend
func NewDB(sqldb *sql.DB, backend string, debug bool) *bun.DB {
	var db *bun.DB
	if backend == config.BackendSQLite {
		db = bun.NewDB(sqldb, sqlitedialect.New())
	} else {
		db = bun.NewDB(sqldb, pgdialect.New())
	}
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

// NewStore binds a bun db to a logical image collection name.
func NewStore(db *bun.DB, collection string) *Store {
	return &Store{db: db, collection: collection}
}

// Open connects, wraps and initializes the image tables in one step.
func Open(ctx context.Context, cfg *config.MetadataStoreConfig) (*Store, error) {
	sqldb, err := ConnectDB(cfg)
	if err != nil {
		return nil, err
	}
	s := NewStore(NewDB(sqldb, cfg.Backend, cfg.Debug), cfg.Collection)
	if err := s.InitImages(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) DB() *bun.DB { return s.db }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) InitImages(ctx context.Context) error {
	if _, err := s.db.NewCreateTable().Model((*ImageRow)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("creating image table: %w", err)
	}
	return nil
}

// GetImage loads a single image record. A missing row or an empty payload is
// reported as ErrPartialRecord.
func (s *Store) GetImage(ctx context.Context, id string) (*models.ImageRecord, error) {
	var row ImageRow
	err := s.db.NewSelect().
		Model(&row).
		Where("id = ?", id).
		Where("collection = ?", s.collection).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: image %s not found", models.ErrPartialRecord, id)
	}
	if err != nil {
		return nil, fmt.Errorf("loading image %s: %w", id, err)
	}
	if len(row.Image) == 0 {
		return nil, fmt.Errorf("%w: image %s has no payload", models.ErrPartialRecord, id)
	}
	return &models.ImageRecord{
		ID:            row.ID,
		Image:         row.Image,
		MIMEType:      row.MIMEType,
		LectureCode:   row.LectureCode,
		ModuleID:      row.ModuleID,
		LectureNumber: row.LectureNumber,
		LectureTitle:  row.LectureTitle,
		PageNumber:    row.PageNumber,
		Text:          row.Text,
	}, nil
}

// StoreImages inserts image records; existing ids are left untouched.
func (s *Store) StoreImages(ctx context.Context, records []models.ImageRecord, processedAt string) error {
	if len(records) == 0 {
		return nil
	}
	rows := make([]ImageRow, len(records))
	for i, r := range records {
		rows[i] = ImageRow{
			ID:            r.ID,
			Collection:    s.collection,
			Image:         r.Image,
			MIMEType:      r.MIMEType,
			LectureCode:   r.LectureCode,
			ModuleID:      r.ModuleID,
			LectureNumber: r.LectureNumber,
			LectureTitle:  r.LectureTitle,
			PageNumber:    r.PageNumber,
			Text:          r.Text,
			ProcessedAt:   processedAt,
		}
	}
	if _, err := s.db.NewInsert().Model(&rows).Ignore().Exec(ctx); err != nil {
		return fmt.Errorf("inserting images: %w", err)
	}
	return nil
}

// CountImages returns the number of images in the store's collection
func (s *Store) CountImages(ctx context.Context) (int, error) {
	return s.db.NewSelect().Model((*ImageRow)(nil)).Where("collection = ?", s.collection).Count(ctx)
}

// DropImages deletes every image in the store's collection
func (s *Store) DropImages(ctx context.Context) error {
	_, err := s.db.NewDelete().Model((*ImageRow)(nil)).Where("collection = ?", s.collection).Exec(ctx)
	if err != nil {
		return fmt.Errorf("deleting images: %w", err)
	}
	return nil
}
