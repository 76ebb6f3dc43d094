package render

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"lecture-rag/internal/models"
	"lecture-rag/internal/session"
)

func answerWithEvidence() *models.AnswerResult {
	return &models.AnswerResult{
		AnswerText: "As explained in Lecture 3, gradient descent...",
		ImageResults: []models.ImageMatch{
			{ID: "a", Image: []byte("\x89PNG\r\n\x1a\n"), SimilarityScore: 0.812, LectureCode: "CS229", LectureNumber: "3", PageNumber: "12"},
			{ID: "b", Image: []byte{0xff, 0xd8, 0xff}, SimilarityScore: 0.5, LectureCode: "CS229", LectureNumber: "4", PageNumber: "1"},
		},
		HasImages:     true,
		OriginalQuery: "What is gradient descent?",
		TextSources: []models.TextMatch{{
			Content: "Gradient descent...", Source: "l3.pdf", Page: "7", ModuleCode: "CS229",
			ModuleName: "Machine Learning", LectureNumber: "3", LectureTitle: models.Unknown,
		}},
	}
}

func TestFormatImageInfo(t *testing.T) {
	img := models.ImageMatch{LectureCode: "CS229", LectureNumber: "3", PageNumber: "12"}
	if got, want := FormatImageInfo(img), "**Source**: CS229, Lecture 3, Page 12"; got != want {
		t.Errorf("FormatImageInfo() = %q, want %q", got, want)
	}
}

func TestAnswerRespectsSettings(t *testing.T) {
	ans := answerWithEvidence()
	tests := []struct {
		name        string
		settings    session.Settings
		wantImages  bool
		wantSources bool
	}{
		{"defaults", session.DefaultSettings(), true, false},
		{"sources on", session.Settings{ShowSources: true, IncludeImages: true}, true, true},
		{"images off", session.Settings{ShowSources: true, IncludeImages: false}, false, true},
		{"everything off", session.Settings{}, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Answer(ans, tt.settings)
			if !strings.HasPrefix(got, ans.AnswerText) {
				t.Errorf("answer text missing: %q", got)
			}
			if has := strings.Contains(got, "Found 2 relevant images"); has != tt.wantImages {
				t.Errorf("images shown = %v, want %v", has, tt.wantImages)
			}
			if tt.wantImages && !strings.Contains(got, "**Score**: 0.81") {
				t.Errorf("score not rendered: %q", got)
			}
			if has := strings.Contains(got, "Text Result 1:"); has != tt.wantSources {
				t.Errorf("sources shown = %v, want %v", has, tt.wantSources)
			}
		})
	}
}

func TestAnswerNoResults(t *testing.T) {
	ans := &models.AnswerResult{AnswerText: "best effort", ImageResults: []models.ImageMatch{}}
	got := Answer(ans, session.Settings{ShowSources: true, IncludeImages: true})
	if !strings.Contains(got, models.NoResults) {
		t.Errorf("Answer() = %q, want no-results notice", got)
	}
}

func TestRows(t *testing.T) {
	imgs := make([]models.ImageMatch, 7)
	rows := Rows(imgs, 3)
	if len(rows) != 3 || len(rows[0]) != 3 || len(rows[2]) != 1 {
		t.Errorf("Rows() shape = %d rows", len(rows))
	}
	if Rows(nil, 3) != nil {
		t.Error("Rows(nil) should be nil")
	}
}

func TestSaveImages(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	paths, err := SaveImages(dir, answerWithEvidence().ImageResults)
	if err != nil {
		t.Fatalf("SaveImages() error = %v", err)
	}
	if len(paths) != 2 || !strings.HasSuffix(paths[0], ".png") || !strings.HasSuffix(paths[1], ".jpg") {
		t.Fatalf("paths = %v", paths)
	}
	data, err := os.ReadFile(paths[0])
	if err != nil || !strings.HasPrefix(string(data), "\x89PNG") {
		t.Errorf("saved payload = %q, %v", data, err)
	}
}
