// File path: internal/kb/extractor.go
package kb

import (
	"context"
	"fmt"

	"github.com/nicodishanthj/reqlens/internal/common"
	textenc "github.com/nicodishanthj/reqlens/internal/encoding"
)

// Extractor runs the pattern path for one file: normalize raw bytes, parse
// structural events with the matching analyzer, synthesize records. It holds
// no state between files, so independent files may be processed in parallel
// by independent extractors.
type Extractor struct {
	analyzers []Analyzer
	encodings []string
}

func NewExtractor(opts *SynthesizerOptions) *Extractor {
	return &Extractor{
		analyzers: defaultAnalyzers(NewSynthesizer(opts)),
		encodings: textenc.DefaultCandidates(),
	}
}

// Extraction reports the outcome for a single file.
type Extraction struct {
	SourceFile string              `json:"source_file"`
	Encoding   string              `json:"encoding"`
	Analyzer   string              `json:"analyzer"`
	Records    []RequirementRecord `json:"records"`
}

// Extract decodes raw bytes and produces requirement records. A DecodeError
// rejects the file; an unrecognized dialect yields an empty extraction rather
// than an error.
func (e *Extractor) Extract(ctx context.Context, path string, raw []byte) (*Extraction, error) {
	logger := common.Logger()
	text, encoding, err := textenc.Normalize(raw, e.encodings)
	if err != nil {
		logger.Warn("kb: decode failed", "path", path, "error", err)
		return nil, err
	}
	for _, analyzer := range e.analyzers {
		if !analyzer.Match(path, text) {
			continue
		}
		records, err := analyzer.Extract(ctx, path, text)
		if err != nil {
			return nil, fmt.Errorf("extract %s with %s: %w", path, analyzer.Name(), err)
		}
		logger.Info(
			"kb: extraction complete",
			"path", path,
			"analyzer", analyzer.Name(),
			"encoding", encoding,
			"records", len(records),
		)
		return &Extraction{SourceFile: path, Encoding: encoding, Analyzer: analyzer.Name(), Records: records}, nil
	}
	logger.Warn("kb: no analyzer matched", "path", path)
	return &Extraction{SourceFile: path, Encoding: encoding}, nil
}
