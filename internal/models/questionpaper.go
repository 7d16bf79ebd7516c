package models

// GeneratedQuestion is a single question extracted from the AI response.
type GeneratedQuestion struct {
	Number int    `json:"number"`
	Text   string `json:"text"`
}

// QuestionPaper is the assembled output of the generation pipeline.
type QuestionPaper struct {
	Title      string              `json:"title"`
	SourceName string              `json:"source_name"`
	Questions  []GeneratedQuestion `json:"questions"`
	ChunkCount int                 `json:"chunk_count"`
}
