package rag

import (
	"fmt"
	"strings"

	"lecture-rag/internal/models"
)

// DefaultCaptionChars is how much of an image caption is quoted in prompts and tool output.
const DefaultCaptionChars = 100

// BuildPrompt fuses the query and both evidence sets into one grounded request.
// Empty evidence blocks are replaced with fixed sentinels; the directives are
// always present.
func BuildPrompt(query string, text []models.TextMatch, images []models.ImageMatch, captionChars int) models.PromptRequest {
	prompt := fmt.Sprintf(models.PromptTemplate,
		query,
		TextContext(text),
		ImageContext(images, captionChars),
		Instructions(),
	)
	return models.PromptRequest{
		Query:        query,
		Prompt:       prompt,
		TextMatches:  text,
		ImageMatches: images,
	}
}

// TextContext renders the "Text Context" block.
func TextContext(text []models.TextMatch) string {
	if len(text) == 0 {
		return models.NoTextFound
	}
	entries := make([]string, len(text))
	for i, t := range text {
		entries[i] = fmt.Sprintf("Source: %s, Lecture %s, Page %s\nContent: %s",
			t.ModuleCode, t.LectureNumber, t.Page, t.Content)
	}
	return strings.Join(entries, models.ContextSeparator)
}

// ImageContext renders the numbered "Image References" block, starting at 1.
func ImageContext(images []models.ImageMatch, captionChars int) string {
	if len(images) == 0 {
		return models.NoImagesFound
	}
	var b strings.Builder
	for i, img := range images {
		fmt.Fprintf(&b, "Image %d: From %s, Lecture %s, Page %s - Related to: %s\n",
			i+1, img.LectureCode, img.LectureNumber, img.PageNumber, Caption(img.Text, captionChars))
	}
	return strings.TrimRight(b.String(), "\n")
}

func Instructions() string {
	lines := make([]string, len(models.Directives))
	for i, d := range models.Directives {
		lines[i] = fmt.Sprintf("%d. %s", i+1, d)
	}
	return strings.Join(lines, "\n")
}

// Caption truncates to n runes and always appends an ellipsis.
func Caption(text string, n int) string {
	if n <= 0 {
		n = DefaultCaptionChars
	}
	r := []rune(text)
	if len(r) > n {
		r = r[:n]
	}
	return string(r) + "..."
}

// FormatTextResults is the TextSearch tool output.
func FormatTextResults(text []models.TextMatch) string {
	if len(text) == 0 {
		return models.NoTextFound
	}
	entries := make([]string, len(text))
	for i, t := range text {
		entries[i] = fmt.Sprintf("Text Result %d:\nModule: %s - %s\nSource: %s, Lecture %s, Page: %s\nContent: %s\n",
			i+1, t.ModuleCode, t.ModuleName, t.Source, t.LectureNumber, t.Page, t.Content)
	}
	return strings.Join(entries, "\n")
}

// FormatImageResults is the ImageSearch tool output.
func FormatImageResults(images []models.ImageMatch, captionChars int) string {
	if len(images) == 0 {
		return models.NoImagesFound
	}
	entries := make([]string, len(images))
	for i, img := range images {
		entries[i] = fmt.Sprintf("Image %d:\nFrom %s, Lecture %s, Page %s - Related to: %s\nSimilarity score: %.2f\n",
			i+1, img.LectureCode, img.LectureNumber, img.PageNumber, Caption(img.Text, captionChars), img.SimilarityScore)
	}
	return strings.Join(entries, "\n")
}
