package mongostore

import (
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"lecture-rag/internal/models"
)

func TestStringify(t *testing.T) {
	dec, _ := primitive.ParseDecimal128("7")
	tests := []struct {
		name string
		in   interface{}
		want string
	}{
		{"nil", nil, ""},
		{"string", "12", "12"},
		{"int32", int32(3), "3"},
		{"int64", int64(44), "44"},
		{"whole float", float64(5), "5"},
		{"fraction", 2.5, "2.5"},
		{"decimal", dec, "7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stringify(tt.in); got != tt.want {
				t.Errorf("stringify(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestRecordRoundTripThroughBSON(t *testing.T) {
	in := models.ImageRecord{
		ID: "abc", Image: []byte{1, 2, 3}, LectureCode: "CS101",
		LectureNumber: "3", PageNumber: "12", Text: "loss curve",
	}
	raw, err := bson.Marshal(NewImageDocument(in, "now"))
	if err != nil {
		t.Fatalf("bson.Marshal() error = %v", err)
	}
	var doc ImageDocument
	if err := bson.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("bson.Unmarshal() error = %v", err)
	}
	got, err := doc.Record()
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if got.ID != "abc" || got.LectureNumber != "3" || got.PageNumber != "12" || string(got.Image) != string(in.Image) {
		t.Errorf("Record() = %+v", got)
	}
}

func TestRecordNumericFields(t *testing.T) {
	raw, err := bson.Marshal(bson.M{"_id": "n", "image": []byte{9}, "lecture_number": int32(4), "page_number": 17.0})
	if err != nil {
		t.Fatal(err)
	}
	var doc ImageDocument
	if err := bson.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("bson.Unmarshal() error = %v", err)
	}
	got, err := doc.Record()
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if got.LectureNumber != "4" || got.PageNumber != "17" {
		t.Errorf("Record() lecture=%q page=%q", got.LectureNumber, got.PageNumber)
	}
}

func TestRecordWithoutPayload(t *testing.T) {
	_, err := ImageDocument{ID: "x"}.Record()
	if !errors.Is(err, models.ErrPartialRecord) {
		t.Errorf("Record() error = %v, want ErrPartialRecord", err)
	}
}
