package db

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"lecture-rag/internal/config"
	"lecture-rag/internal/models"
)

func newTestStore(t *testing.T, collection string) *Store {
	t.Helper()
	cfg := &config.MetadataStoreConfig{
		Backend:    config.BackendSQLite,
		DSN:        fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()),
		Collection: collection,
	}
	s, err := Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreImagesAndGetImage(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, "pdf_images_7")

	records := []models.ImageRecord{
		{ID: "img-1", Image: []byte{0x89, 0x50}, MIMEType: "image/png", LectureCode: "CS101", LectureNumber: "3", PageNumber: "12", Text: "gradient descent curve"},
		{ID: "img-2", Image: []byte{0xff, 0xd8}, LectureCode: "CS101", LectureNumber: "4", PageNumber: "2"},
	}
	if err := s.StoreImages(ctx, records, "2026-01-01T00:00:00Z"); err != nil {
		t.Fatalf("StoreImages() error = %v", err)
	}

	got, err := s.GetImage(ctx, "img-1")
	if err != nil {
		t.Fatalf("GetImage() error = %v", err)
	}
	if got.LectureCode != "CS101" || got.PageNumber != "12" || got.Text != "gradient descent curve" {
		t.Errorf("GetImage() = %+v", got)
	}
	if string(got.Image) != string(records[0].Image) {
		t.Errorf("image payload mismatch")
	}

	n, err := s.CountImages(ctx)
	if err != nil {
		t.Fatalf("CountImages() error = %v", err)
	}
	if n != 2 {
		t.Errorf("CountImages() = %d, want 2", n)
	}

	// duplicate ids are ignored
	if err := s.StoreImages(ctx, records[:1], "later"); err != nil {
		t.Fatalf("StoreImages() duplicate error = %v", err)
	}
	if n, _ := s.CountImages(ctx); n != 2 {
		t.Errorf("CountImages() after duplicate = %d, want 2", n)
	}
}

func TestGetImagePartialRecord(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, "pdf_images_7")

	if err := s.StoreImages(ctx, []models.ImageRecord{{ID: "empty", LectureCode: "CS101"}}, ""); err != nil {
		t.Fatalf("StoreImages() error = %v", err)
	}

	tests := []struct {
		name string
		id   string
	}{
		{"missing row", "nope"},
		{"empty payload", "empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.GetImage(ctx, tt.id)
			if !errors.Is(err, models.ErrPartialRecord) {
				t.Errorf("GetImage(%q) error = %v, want ErrPartialRecord", tt.id, err)
			}
		})
	}
}

func TestGetImageScopedToCollection(t *testing.T) {
	ctx := context.Background()
	a := newTestStore(t, "a")
	b := NewStore(a.DB(), "b")

	if err := a.StoreImages(ctx, []models.ImageRecord{{ID: "x", Image: []byte{1}}}, ""); err != nil {
		t.Fatalf("StoreImages() error = %v", err)
	}
	if _, err := b.GetImage(ctx, "x"); !errors.Is(err, models.ErrPartialRecord) {
		t.Errorf("GetImage() across collections error = %v, want ErrPartialRecord", err)
	}
}

func TestDropImagesKeepsOtherCollections(t *testing.T) {
	ctx := context.Background()
	a := newTestStore(t, "a")
	b := NewStore(a.DB(), "b")

	for _, s := range []*Store{a, b} {
		if err := s.StoreImages(ctx, []models.ImageRecord{{ID: s.collection + "-1", Image: []byte{1}}}, ""); err != nil {
			t.Fatal(err)
		}
	}
	if err := a.DropImages(ctx); err != nil {
		t.Fatalf("DropImages() error = %v", err)
	}
	if n, _ := a.CountImages(ctx); n != 0 {
		t.Errorf("CountImages(a) = %d, want 0", n)
	}
	if n, _ := b.CountImages(ctx); n != 1 {
		t.Errorf("CountImages(b) = %d, want 1", n)
	}
}

func TestConnectDBUnsupported(t *testing.T) {
	if _, err := ConnectDB(&config.MetadataStoreConfig{Backend: "oracle"}); err == nil {
		t.Error("ConnectDB() expected error for unsupported backend")
	}
}
