package render

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"lecture-rag/internal/models"
	"lecture-rag/internal/rag"
	"lecture-rag/internal/session"
)

// ImagesPerRow is the widest image grid the renderers lay out.
const ImagesPerRow = 3

// FormatImageInfo is the provenance line shown under an image.
func FormatImageInfo(img models.ImageMatch) string {
	return fmt.Sprintf("**Source**: %s, Lecture %s, Page %s", img.LectureCode, img.LectureNumber, img.PageNumber)
}

// Answer renders an assistant turn as markdown. Images and text sources are
// shown according to the live settings; sources are the ones stored with the
// answer.
func Answer(ans *models.AnswerResult, settings session.Settings) string {
	var b strings.Builder
	b.WriteString(ans.AnswerText)
	b.WriteString("\n")

	if ans.NoResults() {
		b.WriteString("\n")
		b.WriteString(models.NoResults)
		b.WriteString("\n")
		return b.String()
	}

	if settings.IncludeImages && len(ans.ImageResults) > 0 {
		b.WriteString("\n### Relevant Images:\n")
		fmt.Fprintf(&b, "Found %d relevant images\n", len(ans.ImageResults))
		for r, row := range Rows(ans.ImageResults, ImagesPerRow) {
			for c, img := range row {
				fmt.Fprintf(&b, "\nImage %d\n**Score**: %.2f\n%s\n", r*ImagesPerRow+c+1, img.SimilarityScore, FormatImageInfo(img))
			}
		}
	}

	if settings.ShowSources {
		b.WriteString("\n### Text Sources:\n")
		b.WriteString(rag.FormatTextResults(ans.TextSources))
		b.WriteString("\n")
	}
	return b.String()
}

// Turn renders any conversation turn.
func Turn(t models.ConversationTurn, settings session.Settings) string {
	if t.Answer != nil {
		return Answer(t.Answer, settings)
	}
	return t.Text
}

// Rows splits images into rows of at most n.
func Rows(images []models.ImageMatch, n int) [][]models.ImageMatch {
	if n <= 0 {
		n = ImagesPerRow
	}
	var rows [][]models.ImageMatch
	for i := 0; i < len(images); i += n {
		end := min(i+n, len(images))
		rows = append(rows, images[i:end])
	}
	return rows
}

// SaveImages writes each image payload to dir and returns the file paths.
func SaveImages(dir string, images []models.ImageMatch) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create image folder: %w", err)
	}
	paths := make([]string, 0, len(images))
	for i, img := range images {
		name := fmt.Sprintf("image_%d_lecture_%s_page_%s%s", i+1, img.LectureNumber, img.PageNumber, Extension(img))
		path := filepath.Join(dir, sanitize(name))
		if err := os.WriteFile(path, img.Image, 0o644); err != nil {
			return paths, fmt.Errorf("failed to write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// Extension picks a file extension from the declared or sniffed content type.
func Extension(img models.ImageMatch) string {
	mime := img.MIMEType
	if mime == "" {
		mime = http.DetectContentType(img.Image)
	}
	switch {
	case strings.Contains(mime, "png"):
		return ".png"
	case strings.Contains(mime, "jpeg"):
		return ".jpg"
	case strings.Contains(mime, "gif"):
		return ".gif"
	case strings.Contains(mime, "webp"):
		return ".webp"
	default:
		return ".bin"
	}
}

func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ' ', ':':
			return '_'
		}
		return r
	}, name)
}
