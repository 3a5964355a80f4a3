package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/custodia-labs/lumen/internal/core/domain"
	"github.com/custodia-labs/lumen/internal/core/ports/driven"
	"github.com/custodia-labs/lumen/internal/core/ports/driving"
	"github.com/custodia-labs/lumen/internal/logger"
	"github.com/custodia-labs/lumen/internal/metrics"
)

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

// IngestService loads the corpus, chunks each document and rebuilds the index.
type IngestService struct {
	loader  driven.DocumentLoader
	chunker driven.Chunker
	index   driving.IndexService

	// Ingest runs are serialised so watch-triggered rebuilds never overlap.
	mu sync.Mutex
}

// NewIngestService creates a new ingestion service.
func NewIngestService(loader driven.DocumentLoader, chunker driven.Chunker, index driving.IndexService) *IngestService {
	return &IngestService{
		loader:  loader,
		chunker: chunker,
		index:   index,
	}
}

// Ingest runs a full rebuild. Documents that are malformed or yield no
// usable chunks are skipped and reported; they do not abort the run.
func (s *IngestService) Ingest(ctx context.Context) (*domain.IngestReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// 1. Load documents
	logger.Section("Ingesting corpus")
	logger.Info("Loading documents from %s", s.loader.Location())

	docs, issues, err := s.loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load documents: %w", err)
	}

	report := &domain.IngestReport{
		Documents: len(docs) + len(issues),
		Skipped:   append([]domain.IngestIssue(nil), issues...),
	}
	for _, issue := range issues {
		logger.Warn("Skipping %s: %v", issue.URI, issue.Reason)
		metrics.RecordDocument(metrics.StatusSkipped)
	}
	if report.Documents == 0 {
		return report, fmt.Errorf("%w in %s", domain.ErrNoDocuments, s.loader.Location())
	}

	// 2. Chunk every document, renumbering chunks across the corpus
	var chunks []domain.Chunk
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		docChunks, err := s.chunkDocument(doc)
		if err != nil {
			logger.Warn("Skipping %s: %v", doc.URI, err)
			report.Skipped = append(report.Skipped, domain.IngestIssue{URI: doc.URI, Reason: err})
			metrics.RecordDocument(metrics.StatusSkipped)
			continue
		}

		for _, c := range docChunks {
			chunks = append(chunks, c.WithID(len(chunks)))
		}
		report.Indexed++
		metrics.RecordDocument(metrics.StatusOK)
		logger.Debug("%s: %d chunks", doc.Name, len(docChunks))
	}

	if len(chunks) == 0 {
		return report, fmt.Errorf("%w: %d document(s) skipped", domain.ErrNoUsableChunks, len(report.Skipped))
	}

	// 3. Rebuild the index
	if err := s.index.Build(ctx, chunks); err != nil {
		return report, fmt.Errorf("build index: %w", err)
	}

	report.Chunks = len(chunks)
	report.Stats = s.index.Stats()
	logger.Info("Indexed %d chunks from %d of %d documents (%s, %d dims)",
		report.Chunks, report.Indexed, report.Documents, report.Stats.SimilarityMode(), report.Stats.Dimensions)

	return report, nil
}

func (s *IngestService) chunkDocument(doc *domain.Document) ([]domain.Chunk, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	chunks := s.chunker.Chunk(doc)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: no section reaches the minimum length", domain.ErrNoUsableChunks)
	}
	return chunks, nil
}

// IsIngestConfigError reports whether err means the corpus itself is unusable,
// as opposed to a failure of the embedding service.
func IsIngestConfigError(err error) bool {
	return errors.Is(err, domain.ErrNoDocuments) || errors.Is(err, domain.ErrNoUsableChunks)
}
