package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/college-erp-api/internal/models"
	"github.com/noah-isme/college-erp-api/pkg/config"
	appErrors "github.com/noah-isme/college-erp-api/pkg/errors"
)

// QuestionPaperService turns an uploaded study document into a draft exam
// paper. The document is chunked and each chunk is sent to the AI provider
// with bounded concurrency; questions come back in chunk order.
type QuestionPaperService struct {
	extractor TextExtractor
	generator QuestionGenerator
	config    config.QuestionPaperConfig
	logger    *zap.Logger
}

// NewQuestionPaperService constructs a QuestionPaperService.
func NewQuestionPaperService(extractor TextExtractor, generator QuestionGenerator, cfg config.QuestionPaperConfig, logger *zap.Logger) *QuestionPaperService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 8000
	}
	if cfg.MaxChunks <= 0 {
		cfg.MaxChunks = 12
	}
	if cfg.ChunkConcurrency <= 0 {
		cfg.ChunkConcurrency = 3
	}
	if cfg.QuestionsPerChunk <= 0 {
		cfg.QuestionsPerChunk = 5
	}
	if cfg.GenerationTimeout <= 0 {
		cfg.GenerationTimeout = 45 * time.Second
	}
	return &QuestionPaperService{extractor: extractor, generator: generator, config: cfg, logger: logger}
}

// Generate builds a question paper from the uploaded document.
func (s *QuestionPaperService) Generate(ctx context.Context, title, filename string, data []byte) (*models.QuestionPaper, error) {
	if s.generator == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "question generation is not configured")
	}
	if len(data) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "uploaded document is empty")
	}
	if s.config.MaxUploadBytes > 0 && int64(len(data)) > s.config.MaxUploadBytes {
		return nil, appErrors.Clone(appErrors.ErrValidation, "uploaded document exceeds the size limit")
	}

	text, err := s.extractor.Extract(filename, data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "could not read document text")
	}
	if strings.TrimSpace(text) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "document contains no extractable text")
	}

	chunks := ChunkText(text, s.config.ChunkSize)
	if len(chunks) > s.config.MaxChunks {
		chunks = chunks[:s.config.MaxChunks]
	}

	results := make([][]string, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.ChunkConcurrency)
	for i, chunk := range chunks {
		i, chunk := i, chunk
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(gctx, s.config.GenerationTimeout)
			defer cancel()

			questions, err := s.generator.GenerateQuestions(callCtx, chunk, s.config.QuestionsPerChunk)
			if err != nil {
				return err
			}
			results[i] = questions
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "question generation failed")
	}

	paper := &models.QuestionPaper{
		Title:      title,
		SourceName: filename,
		ChunkCount: len(chunks),
	}
	number := 0
	for _, questions := range results {
		for _, q := range questions {
			number++
			paper.Questions = append(paper.Questions, models.GeneratedQuestion{Number: number, Text: q})
		}
	}

	s.logger.Info("question paper generated",
		zap.String("source", filename),
		zap.Int("chunks", paper.ChunkCount),
		zap.Int("questions", len(paper.Questions)))
	return paper, nil
}
