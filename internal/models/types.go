package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Chunk represents a parsed chunk with metadata
type Chunk struct {
	Content    string
	PageNumber int
	ChunkID    int
}

// TextRecord is a single embedded chunk written to the text index.
type TextRecord struct {
	ID        string
	Content   string
	Embedding []float32
	Metadata  map[string]string
}

// TextHit is a raw text index hit before metadata defaults are resolved.
type TextHit struct {
	Content  string
	Metadata map[string]string
	Score    float32
}

// TextMatch is a retrieved passage with its lecture provenance.
type TextMatch struct {
	Content       string `json:"content"`
	Source        string `json:"source"`
	Page          string `json:"page"`
	ModuleCode    string `json:"module_code"`
	ModuleName    string `json:"module_name"`
	LectureNumber string `json:"lecture_number"`
	LectureTitle  string `json:"lecture_title"`
}

// NewTextMatch resolves every absent metadata field to Unknown.
func NewTextMatch(hit TextHit) TextMatch {
	return TextMatch{
		Content:       hit.Content,
		Source:        metaOr(hit.Metadata, MetaSource, Unknown),
		Page:          metaOr(hit.Metadata, MetaPage, Unknown),
		ModuleCode:    metaOr(hit.Metadata, MetaModuleCode, Unknown),
		ModuleName:    metaOr(hit.Metadata, MetaModuleName, Unknown),
		LectureNumber: metaOr(hit.Metadata, MetaLectureNumber, Unknown),
		LectureTitle:  metaOr(hit.Metadata, MetaLectureTitle, Unknown),
	}
}

// ImageCandidate is an image index hit: an identifier into the metadata store and its score.
type ImageCandidate struct {
	ID    string
	Score float32
}

// ImageRecord is an image payload and its descriptive metadata as held by the metadata store.
type ImageRecord struct {
	ID            string
	Image         []byte
	MIMEType      string
	LectureCode   string
	ModuleID      string
	LectureNumber string
	LectureTitle  string
	PageNumber    string
	Text          string
}

// ImageMatch is a retrieved image with similarity score and provenance.
type ImageMatch struct {
	ID              string  `json:"id"`
	Image           []byte  `json:"image"`
	MIMEType        string  `json:"mime_type,omitempty"`
	SimilarityScore float32 `json:"similarity_score"`
	LectureCode     string  `json:"lecture_code"`
	LectureNumber   string  `json:"lecture_number"`
	LectureTitle    string  `json:"lecture_title"`
	PageNumber      string  `json:"page_number"`
	Text            string  `json:"text"`
}

// NewImageMatch combines a candidate score with its record, resolving absent fields.
func NewImageMatch(rec ImageRecord, score float32) ImageMatch {
	return ImageMatch{
		ID:              rec.ID,
		Image:           rec.Image,
		MIMEType:        rec.MIMEType,
		SimilarityScore: score,
		LectureCode:     orDefault(rec.LectureCode, Unknown),
		LectureNumber:   orDefault(rec.LectureNumber, Unknown),
		LectureTitle:    orDefault(rec.LectureTitle, Unknown),
		PageNumber:      orDefault(rec.PageNumber, Unknown),
		Text:            orDefault(rec.Text, NoCaption),
	}
}

// PromptRequest is the fused grounded-generation request.
type PromptRequest struct {
	Query        string
	Prompt       string
	TextMatches  []TextMatch
	ImageMatches []ImageMatch
	History      []ConversationTurn
}

// AnswerResult is what a turn produces, whichever generation tier succeeded.
type AnswerResult struct {
	AnswerText    string       `json:"answer_text"`
	ImageResults  []ImageMatch `json:"image_results"`
	HasImages     bool         `json:"has_images"`
	OriginalQuery string       `json:"original_query"`
	TextSources   []TextMatch  `json:"text_sources,omitempty"`
	Tier          string       `json:"tier,omitempty"`
}

// NoResults reports whether both retrievers came back empty.
func (a *AnswerResult) NoResults() bool {
	return len(a.ImageResults) == 0 && len(a.TextSources) == 0
}

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ConversationTurn holds plain text for user and system turns and a
// structured answer for assistant turns.
type ConversationTurn struct {
	Role   Role
	Text   string
	Answer *AnswerResult
}

// Content returns the text form of the turn.
func (t ConversationTurn) Content() string {
	if t.Answer != nil {
		return t.Answer.AnswerText
	}
	return t.Text
}

type turnJSON struct {
	Role    Role            `json:"role"`
	Content json.RawMessage `json:"content"`
}

// MarshalJSON writes content as a string or as the AnswerResult object.
func (t ConversationTurn) MarshalJSON() ([]byte, error) {
	var content []byte
	var err error
	if t.Answer != nil {
		content, err = json.Marshal(t.Answer)
	} else {
		content, err = json.Marshal(t.Text)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(turnJSON{Role: t.Role, Content: content})
}

func (t *ConversationTurn) UnmarshalJSON(data []byte) error {
	var raw turnJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	t.Role = raw.Role
	t.Text = ""
	t.Answer = nil
	trimmed := strings.TrimSpace(string(raw.Content))
	switch {
	case trimmed == "" || trimmed == "null":
		return nil
	case strings.HasPrefix(trimmed, "{"):
		var ans AnswerResult
		if err := json.Unmarshal(raw.Content, &ans); err != nil {
			return fmt.Errorf("failed to decode answer content: %w", err)
		}
		t.Answer = &ans
	default:
		if err := json.Unmarshal(raw.Content, &t.Text); err != nil {
			return fmt.Errorf("failed to decode text content: %w", err)
		}
	}
	return nil
}

func metaOr(meta map[string]string, key, def string) string {
	if meta == nil {
		return def
	}
	return orDefault(meta[key], def)
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

// Evidence is what both retrievers produced for one turn.
type Evidence struct {
	Text   []TextMatch
	Images []ImageMatch
}
