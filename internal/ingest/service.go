// File path: internal/ingest/service.go
package ingest

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/nicodishanthj/reqlens/internal/agent"
	"github.com/nicodishanthj/reqlens/internal/common"
	"github.com/nicodishanthj/reqlens/internal/embedding"
	"github.com/nicodishanthj/reqlens/internal/kb"
	"github.com/nicodishanthj/reqlens/internal/vector"
)

// DefaultMinScore is the similarity floor applied when a search request does
// not supply its own threshold.
const DefaultMinScore = 0.8

// Service is the pipeline facade: extraction, embedding, storage, and
// retrieval behind one API. All methods are safe for concurrent use as long
// as the underlying store is.
type Service struct {
	extractor    *kb.Extractor
	embedder     embedding.Embedder
	store        vector.Store
	orchestrator *agent.Orchestrator
}

func NewService(extractor *kb.Extractor, embedder embedding.Embedder, store vector.Store, orchestrator *agent.Orchestrator) (*Service, error) {
	if extractor == nil {
		return nil, errors.New("nil extractor")
	}
	if embedder == nil {
		return nil, errors.New("nil embedder")
	}
	if store == nil {
		return nil, errors.New("nil vector store")
	}
	return &Service{extractor: extractor, embedder: embedder, store: store, orchestrator: orchestrator}, nil
}

// SkippedRecord explains why one extracted record was not stored.
type SkippedRecord struct {
	RecordID  string `json:"record_id"`
	Statement string `json:"statement"`
	Reason    string `json:"reason"`
}

// Report summarizes one file's journey through the pipeline.
type Report struct {
	SourceFile string                 `json:"source_file"`
	Encoding   string                 `json:"encoding"`
	Analyzer   string                 `json:"analyzer,omitempty"`
	Stored     int                    `json:"stored"`
	Skipped    []SkippedRecord        `json:"skipped,omitempty"`
	Records    []kb.RequirementRecord `json:"records"`
}

// IngestFile runs the pattern path end to end: decode, extract, embed, and
// upsert. Records whose embedding fails are skipped with a reason rather than
// failing the whole file; the surviving batch is stored atomically.
func (s *Service) IngestFile(ctx context.Context, path string, raw []byte) (*Report, error) {
	logger := common.Logger()
	extraction, err := s.extractor.Extract(ctx, path, raw)
	if err != nil {
		return nil, err
	}
	report := &Report{
		SourceFile: extraction.SourceFile,
		Encoding:   extraction.Encoding,
		Analyzer:   extraction.Analyzer,
	}
	if len(extraction.Records) == 0 {
		return report, nil
	}
	stored, skipped, err := s.storeRecords(ctx, extraction.Records)
	if err != nil {
		return nil, err
	}
	report.Stored = len(stored)
	report.Skipped = skipped
	report.Records = stored
	logger.Info(
		"ingest: file complete",
		"path", path,
		"stored", report.Stored,
		"skipped", len(report.Skipped),
	)
	return report, nil
}

// AgentExtract runs the fallback chain over a raw excerpt and stores whatever
// the winning provider produced. An optional intent narrows the prompt.
func (s *Service) AgentExtract(ctx context.Context, path, excerpt, intent string) (*agent.Result, *Report, error) {
	if s.orchestrator == nil {
		return nil, nil, errors.New("agent orchestrator not configured")
	}
	result, err := s.orchestrator.Extract(ctx, path, excerpt, intent)
	if err != nil {
		return nil, nil, err
	}
	report := &Report{SourceFile: path}
	if len(result.Records) > 0 {
		stored, skipped, err := s.storeRecords(ctx, result.Records)
		if err != nil {
			return nil, nil, err
		}
		report.Stored = len(stored)
		report.Skipped = skipped
		report.Records = stored
	}
	return result, report, nil
}

// storeRecords embeds statements and upserts the batch. An embedding failure
// on one input removes that record and retries the remainder, so a single
// oversized statement cannot sink its file.
func (s *Service) storeRecords(ctx context.Context, records []kb.RequirementRecord) ([]kb.RequirementRecord, []SkippedRecord, error) {
	logger := common.Logger()
	remaining := append([]kb.RequirementRecord(nil), records...)
	var skipped []SkippedRecord
	var vectors [][]float32
	for len(remaining) > 0 {
		texts := make([]string, len(remaining))
		for i, rec := range remaining {
			texts[i] = rec.Statement
		}
		embedded, err := s.embedder.Embed(ctx, texts)
		if err == nil {
			vectors = embedded
			break
		}
		var embedErr *embedding.Error
		if !errors.As(err, &embedErr) || embedErr.Index < 0 || embedErr.Index >= len(remaining) {
			return nil, nil, err
		}
		rec := remaining[embedErr.Index]
		logger.Warn("ingest: skipping record", "record", rec.ID, "error", embedErr.Err)
		skipped = append(skipped, SkippedRecord{RecordID: rec.ID, Statement: rec.Statement, Reason: embedErr.Err.Error()})
		remaining = append(remaining[:embedErr.Index], remaining[embedErr.Index+1:]...)
	}
	if len(remaining) == 0 {
		return nil, skipped, nil
	}
	if err := s.store.EnsureCollection(ctx, s.embedder.Dimensions()); err != nil {
		return nil, nil, err
	}
	entries := make([]vector.Entry, len(remaining))
	for i, rec := range remaining {
		entries[i] = vector.Entry{
			ID:      kb.PointID(rec.ID),
			Vector:  vectors[i],
			Payload: rec.Payload(),
		}
	}
	if err := s.store.Upsert(ctx, entries); err != nil {
		return nil, nil, fmt.Errorf("upsert %d records: %w", len(entries), err)
	}
	return remaining, skipped, nil
}

// Match pairs a stored record with its similarity score.
type Match struct {
	Record kb.RequirementRecord `json:"record"`
	Score  float32              `json:"score"`
}

// SearchOptions narrow a semantic query. A nil MinScore applies the default
// threshold; point it at zero to disable thresholding entirely.
type SearchOptions struct {
	Limit    int
	MinScore *float32
	Category kb.Category
}

// Search embeds the query text and ranks stored requirements by cosine
// similarity.
func (s *Service) Search(ctx context.Context, query string, opts SearchOptions) ([]Match, error) {
	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("expected 1 query vector, got %d", len(vectors))
	}
	minScore := float32(DefaultMinScore)
	if opts.MinScore != nil {
		minScore = *opts.MinScore
	}
	if minScore < 0 {
		minScore = 0
	}
	queryOpts := vector.QueryOptions{MinScore: minScore}
	if opts.Category != "" {
		queryOpts.Filter = map[string]interface{}{"category": string(opts.Category)}
	}
	results, err := s.store.Query(ctx, vectors[0], opts.Limit, queryOpts)
	if err != nil {
		return nil, err
	}
	matches := make([]Match, 0, len(results))
	for _, hit := range results {
		matches = append(matches, Match{Record: kb.RecordFromPayload(hit.Payload), Score: hit.Score})
	}
	return matches, nil
}

// List returns stored requirements without ranking, sorted by source
// location for stable output.
func (s *Service) List(ctx context.Context, limit int) ([]kb.RequirementRecord, error) {
	results, err := s.store.List(ctx, limit)
	if err != nil {
		return nil, err
	}
	records := make([]kb.RequirementRecord, 0, len(results))
	for _, hit := range results {
		records = append(records, kb.RecordFromPayload(hit.Payload))
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].Source.File != records[j].Source.File {
			return records[i].Source.File < records[j].Source.File
		}
		return records[i].Source.StartLine < records[j].Source.StartLine
	})
	return records, nil
}

// statsScanLimit caps how many stored points the per-category breakdown
// scans.
const statsScanLimit = 10000

// Stats reports pipeline health for the stats and health endpoints.
type Stats struct {
	StoreAvailable bool           `json:"store_available"`
	Collection     string         `json:"collection"`
	RecordCount    int            `json:"record_count"`
	ByCategory     map[string]int `json:"by_category,omitempty"`
	BySourceFile   map[string]int `json:"by_source_file,omitempty"`
	Embedder       string         `json:"embedder"`
	Dimensions     int            `json:"dimensions"`
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{
		StoreAvailable: s.store.Available(),
		Collection:     s.store.Collection(),
		Embedder:       s.embedder.Name(),
		Dimensions:     s.embedder.Dimensions(),
	}
	count, err := s.store.Count(ctx)
	if err != nil {
		common.Logger().Warn("ingest: count failed", "error", err)
		return stats, nil
	}
	stats.RecordCount = count
	results, err := s.store.List(ctx, statsScanLimit)
	if err != nil {
		common.Logger().Warn("ingest: stats scan failed", "error", err)
		return stats, nil
	}
	byCategory := make(map[string]int)
	bySource := make(map[string]int)
	for _, hit := range results {
		rec := kb.RecordFromPayload(hit.Payload)
		if rec.Category != "" {
			byCategory[string(rec.Category)]++
		}
		if rec.Source.File != "" {
			bySource[rec.Source.File]++
		}
	}
	if len(byCategory) > 0 {
		stats.ByCategory = byCategory
	}
	if len(bySource) > 0 {
		stats.BySourceFile = bySource
	}
	return stats, nil
}

// Health probes the store directly rather than trusting the cached flag.
func (s *Service) Health(ctx context.Context) error {
	return s.store.Health(ctx)
}
