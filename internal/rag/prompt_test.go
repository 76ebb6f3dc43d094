package rag

import (
	"fmt"
	"strings"
	"testing"

	"lecture-rag/internal/models"
)

func gradientEvidence() ([]models.TextMatch, []models.ImageMatch) {
	text := []models.TextMatch{models.NewTextMatch(models.TextHit{
		Content: "Gradient descent iteratively moves parameters against the gradient.",
		Metadata: map[string]string{
			models.MetaSource: "lecture3.pdf", models.MetaPage: "7",
			models.MetaModuleCode: "CS229", models.MetaLectureNumber: "3",
		},
	})}
	images := []models.ImageMatch{models.NewImageMatch(models.ImageRecord{
		ID: "img", Image: []byte{1}, LectureCode: "CS229", LectureNumber: "3", PageNumber: "12",
		Text: "Contour plot of a loss surface with descent steps",
	}, 0.82)}
	return text, images
}

func TestBuildPromptGradientDescent(t *testing.T) {
	text, images := gradientEvidence()
	req := BuildPrompt("What is gradient descent?", text, images, 100)

	textBlock := between(req.Prompt, "Text Context:", "Image References:")
	imageBlock := between(req.Prompt, "Image References:", "INSTRUCTIONS:")
	instructions := req.Prompt[strings.Index(req.Prompt, "INSTRUCTIONS:"):]

	if !strings.Contains(textBlock, "Lecture 3") {
		t.Errorf("text block missing lecture citation:\n%s", textBlock)
	}
	if !strings.Contains(imageBlock, "Lecture 3") || !strings.Contains(imageBlock, "Page 12") {
		t.Errorf("image block missing provenance:\n%s", imageBlock)
	}
	if !strings.Contains(imageBlock, "Image 1: From CS229") {
		t.Errorf("image block not numbered from 1:\n%s", imageBlock)
	}
	for i := 1; i <= 4; i++ {
		if !strings.Contains(instructions, fmt.Sprintf("%d. ", i)) {
			t.Errorf("instructions missing directive %d", i)
		}
	}
	if strings.Contains(instructions, "5. ") {
		t.Error("instructions contain a fifth directive")
	}
	if req.Query != "What is gradient descent?" || len(req.TextMatches) != 1 || len(req.ImageMatches) != 1 {
		t.Errorf("request fields not carried: %+v", req)
	}
}

func TestBuildPromptEmptyEvidence(t *testing.T) {
	req := BuildPrompt("anything", nil, nil, 100)

	if got := strings.TrimSpace(between(req.Prompt, "Text Context:", "Image References:")); got != models.NoTextFound {
		t.Errorf("text block = %q, want %q", got, models.NoTextFound)
	}
	if got := strings.TrimSpace(between(req.Prompt, "Image References:", "INSTRUCTIONS:")); got != models.NoImagesFound {
		t.Errorf("image block = %q, want %q", got, models.NoImagesFound)
	}
	if !strings.Contains(req.Prompt, Instructions()) {
		t.Error("directives missing from empty-evidence prompt")
	}
}

func TestCaption(t *testing.T) {
	tests := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{"short", "loss", 100, "loss..."},
		{"truncated", "abcdef", 3, "abc..."},
		{"multibyte", "αβγδ", 2, "αβ..."},
		{"default width", strings.Repeat("x", 150), 0, strings.Repeat("x", 100) + "..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Caption(tt.in, tt.n); got != tt.want {
				t.Errorf("Caption() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestToolFormats(t *testing.T) {
	text, images := gradientEvidence()

	gotText := FormatTextResults(text)
	wantText := "Text Result 1:\nModule: CS229 - Unknown\nSource: lecture3.pdf, Lecture 3, Page: 7\nContent: Gradient descent iteratively moves parameters against the gradient.\n"
	if gotText != wantText {
		t.Errorf("FormatTextResults() = %q, want %q", gotText, wantText)
	}

	gotImages := FormatImageResults(images, 100)
	if !strings.HasPrefix(gotImages, "Image 1:\nFrom CS229, Lecture 3, Page 12 - Related to: Contour plot") {
		t.Errorf("FormatImageResults() = %q", gotImages)
	}
	if !strings.HasSuffix(gotImages, "Similarity score: 0.82\n") {
		t.Errorf("FormatImageResults() score line = %q", gotImages)
	}

	if FormatTextResults(nil) != models.NoTextFound || FormatImageResults(nil, 100) != models.NoImagesFound {
		t.Error("empty tool results must use sentinels")
	}
}

func between(s, start, end string) string {
	i := strings.Index(s, start)
	j := strings.Index(s, end)
	if i < 0 || j < 0 || j < i {
		return ""
	}
	return s[i+len(start) : j]
}
