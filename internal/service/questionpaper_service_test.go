package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/college-erp-api/pkg/config"
	appErrors "github.com/noah-isme/college-erp-api/pkg/errors"
)

func TestParseNumberedQuestions(t *testing.T) {
	text := strings.Join([]string{
		"Here are your questions:",
		"1. What is a binary search tree?",
		"2) Explain collision handling in hash tables.",
		"3 - Compare BFS and DFS.",
		"",
		"Good luck!",
		"4. ",
	}, "\n")

	questions := ParseNumberedQuestions(text)

	require.Len(t, questions, 3)
	assert.Equal(t, "What is a binary search tree?", questions[0])
	assert.Equal(t, "Explain collision handling in hash tables.", questions[1])
	assert.Equal(t, "Compare BFS and DFS.", questions[2])
}

func TestParseNumberedQuestionsEmpty(t *testing.T) {
	assert.Nil(t, ParseNumberedQuestions(""))
	assert.Nil(t, ParseNumberedQuestions("no numbering here\nstill nothing"))
}

func TestChunkTextPrefersWhitespaceBreak(t *testing.T) {
	text := strings.Repeat("word ", 100)

	chunks := ChunkText(text, 120)

	require.NotEmpty(t, chunks)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len([]rune(chunk)), 120)
		assert.False(t, strings.HasPrefix(chunk, " "))
		assert.False(t, strings.HasSuffix(chunk, " "))
	}
	joined := strings.Join(chunks, " ")
	assert.Equal(t, strings.TrimSpace(text), joined)
}

func TestChunkTextShortInput(t *testing.T) {
	chunks := ChunkText("  short passage  ", 100)
	require.Len(t, chunks, 1)
	assert.Equal(t, "short passage", chunks[0])
}

func TestChunkTextEmpty(t *testing.T) {
	assert.Nil(t, ChunkText("   ", 100))
}

type fakeGenerator struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeGenerator) GenerateQuestions(ctx context.Context, passage string, count int) ([]string, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	// Tag questions with the passage prefix so ordering is observable.
	prefix := passage
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	return []string{
		fmt.Sprintf("%s question one (call %d)", prefix, call),
		fmt.Sprintf("%s question two (call %d)", prefix, call),
	}, nil
}

func (f *fakeGenerator) Close() error { return nil }

func paperConfig() config.QuestionPaperConfig {
	return config.QuestionPaperConfig{
		ChunkSize:         40,
		MaxChunks:         3,
		ChunkConcurrency:  2,
		QuestionsPerChunk: 2,
	}
}

func TestGenerateNumbersQuestionsSequentially(t *testing.T) {
	gen := &fakeGenerator{}
	svc := NewQuestionPaperService(NewDocumentExtractor(), gen, paperConfig(), zap.NewNop())

	text := strings.Repeat("alpha beta gamma delta ", 10)
	paper, err := svc.Generate(context.Background(), "Unit Test Paper", "notes.txt", []byte(text))
	require.NoError(t, err)

	assert.Equal(t, "Unit Test Paper", paper.Title)
	assert.Equal(t, "notes.txt", paper.SourceName)
	assert.NotEmpty(t, paper.Questions)
	for i, q := range paper.Questions {
		assert.Equal(t, i+1, q.Number)
		assert.NotEmpty(t, q.Text)
	}
}

func TestGenerateCapsChunkCount(t *testing.T) {
	gen := &fakeGenerator{}
	svc := NewQuestionPaperService(NewDocumentExtractor(), gen, paperConfig(), zap.NewNop())

	text := strings.Repeat("alpha beta gamma delta ", 100)
	paper, err := svc.Generate(context.Background(), "Capped", "notes.txt", []byte(text))
	require.NoError(t, err)

	assert.Equal(t, 3, paper.ChunkCount)
	assert.Equal(t, 3, gen.calls)
	assert.Len(t, paper.Questions, 6)
}

func TestGenerateWithoutGenerator(t *testing.T) {
	svc := NewQuestionPaperService(NewDocumentExtractor(), nil, paperConfig(), zap.NewNop())

	_, err := svc.Generate(context.Background(), "T", "notes.txt", []byte("text"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}

func TestGenerateEmptyDocument(t *testing.T) {
	svc := NewQuestionPaperService(NewDocumentExtractor(), &fakeGenerator{}, paperConfig(), zap.NewNop())

	_, err := svc.Generate(context.Background(), "T", "notes.txt", nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestGenerateOversizeDocument(t *testing.T) {
	cfg := paperConfig()
	cfg.MaxUploadBytes = 10
	svc := NewQuestionPaperService(NewDocumentExtractor(), &fakeGenerator{}, cfg, zap.NewNop())

	_, err := svc.Generate(context.Background(), "T", "notes.txt", []byte("this is more than ten bytes"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestGenerateUnsupportedFileType(t *testing.T) {
	svc := NewQuestionPaperService(NewDocumentExtractor(), &fakeGenerator{}, paperConfig(), zap.NewNop())

	_, err := svc.Generate(context.Background(), "T", "notes.docx", []byte("binary"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestGenerateProviderError(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("model unavailable")}
	svc := NewQuestionPaperService(NewDocumentExtractor(), gen, paperConfig(), zap.NewNop())

	_, err := svc.Generate(context.Background(), "T", "notes.txt", []byte("some study material"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}
