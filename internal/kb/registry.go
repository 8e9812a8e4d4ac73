// File path: internal/kb/registry.go
package kb

import (
	"context"
	"fmt"
	"strings"

	"github.com/nicodishanthj/reqlens/internal/kb/cobol"
)

// Analyzer recognizes one legacy source dialect and extracts requirement
// records from it.
type Analyzer interface {
	Name() string
	Match(path string, text string) bool
	Extract(ctx context.Context, path string, text string) ([]RequirementRecord, error)
}

func defaultAnalyzers(synth *Synthesizer) []Analyzer {
	return []Analyzer{
		&cobolAnalyzer{parser: cobol.NewParser(), synth: synth},
	}
}

type cobolAnalyzer struct {
	parser *cobol.Parser
	synth  *Synthesizer
}

func (c *cobolAnalyzer) Name() string { return "cobol" }

func (c *cobolAnalyzer) Match(path string, text string) bool {
	lower := strings.ToLower(path)
	for _, ext := range []string{".cob", ".cbl", ".cobol"} {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	upper := strings.ToUpper(text)
	return strings.Contains(upper, "IDENTIFICATION DIVISION") || strings.Contains(upper, "PROCEDURE DIVISION")
}

func (c *cobolAnalyzer) Extract(ctx context.Context, path string, text string) ([]RequirementRecord, error) {
	if c.parser == nil {
		return nil, fmt.Errorf("nil COBOL parser")
	}
	events, err := c.parser.Parse(ctx, text)
	if err != nil {
		return nil, err
	}
	var records []RequirementRecord
	for _, evt := range events {
		if rec, ok := c.synth.Synthesize(path, evt); ok {
			records = append(records, rec)
		}
	}
	return records, nil
}
