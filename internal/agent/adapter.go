// File path: internal/agent/adapter.go
package agent

import (
	"regexp"
	"strings"

	"github.com/nicodishanthj/reqlens/internal/kb"
)

const (
	agentConfidenceFloor = 0.5
	agentConfidenceCeil  = 0.8
)

var bulletRe = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s*`)

// Adapter converts provider prose into requirement records. Providers are
// asked for "category | statement" lines, but responses drift, so unlabeled
// lines are classified by keyword and malformed lines dropped.
type Adapter struct{}

func NewAdapter() *Adapter {
	return &Adapter{}
}

func (a *Adapter) Records(sourceFile, providerName, output string) []kb.RequirementRecord {
	var records []kb.RequirementRecord
	seen := make(map[string]struct{})
	for _, line := range strings.Split(output, "\n") {
		line = bulletRe.ReplaceAllString(strings.TrimSpace(line), "")
		if line == "" {
			continue
		}
		category, statement := splitLabeledLine(line)
		statement = strings.TrimSpace(statement)
		if len(strings.Fields(statement)) < 3 {
			continue
		}
		if _, dup := seen[statement]; dup {
			continue
		}
		seen[statement] = struct{}{}
		source := kb.SourceReference{File: sourceFile}
		records = append(records, kb.RequirementRecord{
			ID:         kb.RecordID(source, category, statement),
			Category:   category,
			Statement:  statement,
			Source:     source,
			Confidence: agentConfidence(statement),
			Method:     kb.MethodAgent,
			Provider:   providerName,
		})
	}
	return records
}

func splitLabeledLine(line string) (kb.Category, string) {
	if idx := strings.Index(line, "|"); idx > 0 {
		label := strings.ToLower(strings.TrimSpace(line[:idx]))
		rest := line[idx+1:]
		switch label {
		case "business_rule", "business rule":
			return kb.CategoryBusinessRule, rest
		case "validation_logic", "validation logic", "validation":
			return kb.CategoryValidationLogic, rest
		case "data_definition", "data definition", "data":
			return kb.CategoryDataDefinition, rest
		case "file_operation", "file operation", "file":
			return kb.CategoryFileOperation, rest
		}
		return classifyStatement(rest), rest
	}
	return classifyStatement(line), line
}

func classifyStatement(statement string) kb.Category {
	lower := strings.ToLower(statement)
	switch {
	case strings.Contains(lower, "valid") || strings.Contains(lower, "check") || strings.Contains(lower, "verif") || strings.Contains(lower, "reject"):
		return kb.CategoryValidationLogic
	case strings.Contains(lower, "file") || strings.Contains(lower, "read") || strings.Contains(lower, "write") || strings.Contains(lower, "record i/o"):
		return kb.CategoryFileOperation
	case strings.Contains(lower, "field") || strings.Contains(lower, "declared") || strings.Contains(lower, "pic "):
		return kb.CategoryDataDefinition
	default:
		return kb.CategoryBusinessRule
	}
}

// agentConfidence scales with statement length: terse fragments sit at the
// floor, fully articulated sentences approach the ceiling.
func agentConfidence(statement string) float64 {
	words := len(strings.Fields(statement))
	if words <= 4 {
		return agentConfidenceFloor
	}
	if words >= 20 {
		return agentConfidenceCeil
	}
	span := agentConfidenceCeil - agentConfidenceFloor
	return agentConfidenceFloor + span*float64(words-4)/16
}
