package models

const (
	Unknown       = "Unknown"
	NoCaption     = "No text available"
	NoTextFound   = "No relevant text information found."
	NoImagesFound = "No relevant images found."
	NoResults     = "No results found for your query."

	GreetingMessage = "I am a multimodal assistant that can help you find information from both text and images in your documents."
	ApologyMessage  = "I encountered an error while generating an answer. Please try again or rephrase your question."

	ContextSeparator = "\n\n"
	ThinkTag         = `(?s)<think>.*?</think>`
)

// metadata keys shared by the indexes and the ingestion pipeline
const (
	MetaSource        = "source"
	MetaPage          = "page"
	MetaModuleCode    = "module_code"
	MetaModuleName    = "module_name"
	MetaLectureNumber = "lecture_number"
	MetaLectureTitle  = "lecture_title"
	MetaLectureCode   = "lecture_code"
	MetaPageNumber    = "page_number"
	MetaSourceType    = "source_type"
	MetaModuleID      = "module_id"
	MetaProcessedAt   = "processed_at"
	MetaProcessedBy   = "processed_by"
	MetaText          = "text"
)

var (
	// PromptTemplate takes the query, the text context block, the image
	// context block and the numbered instruction list.
	PromptTemplate = `User Query: %s

Text Context:
%s

Image References:
%s

INSTRUCTIONS:
%s
`

	Directives = []string{
		"Based on the provided context, answer the user's query thoroughly.",
		`ALWAYS cite the specific lecture numbers inline when providing information (e.g., "As explained in Lecture 3..." or "According to Lecture 5..."), as a natural part of the answer rather than a list at the end.`,
		`If there are relevant images that would help illustrate your answer, mention them by referring to their number and lecture (e.g., "As shown in Image 1 from Lecture 2...").`,
		`If the lecture number is unknown for some sources, say so explicitly (e.g., "from an unspecified lecture") instead of omitting the citation.`,
	}

	AgentPromptTemplate = `Please answer this query, and make sure to reference the specific lecture numbers when providing information: %s`

	AgentSystemPrompt = `You are a teaching assistant answering questions about indexed lecture material.
Use the TextSearch tool to find lecture text and the ImageSearch tool to find lecture figures.
Every fact you state must cite the lecture number it came from.`

	CaptionPrompt = `Describe this lecture slide image in two or three sentences. Mention any diagram, chart, formula or labelled concept it shows.`
)
