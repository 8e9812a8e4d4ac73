// File path: internal/kb/types.go
package kb

import "fmt"

// Category classifies a requirement record. The set is closed.
type Category string

const (
	CategoryBusinessRule    Category = "business_rule"
	CategoryValidationLogic Category = "validation_logic"
	CategoryDataDefinition  Category = "data_definition"
	CategoryFileOperation   Category = "file_operation"
)

// ExtractionMethod records which path produced a requirement.
type ExtractionMethod string

const (
	MethodPattern ExtractionMethod = "pattern"
	MethodAgent   ExtractionMethod = "agent"
)

// SourceReference locates the origin of a requirement in legacy source.
type SourceReference struct {
	File      string `json:"file"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
	Procedure string `json:"procedure,omitempty"`
}

// RequirementRecord is an immutable unit of extracted business knowledge.
// Re-extracting unchanged source produces records with identical ids.
type RequirementRecord struct {
	ID         string           `json:"id"`
	Category   Category         `json:"category"`
	Statement  string           `json:"statement"`
	Source     SourceReference  `json:"source_reference"`
	RawExcerpt string           `json:"raw_excerpt"`
	Confidence float64          `json:"confidence"`
	Method     ExtractionMethod `json:"extraction_method"`
	Provider   string           `json:"provider,omitempty"`
	Incomplete bool             `json:"incomplete,omitempty"`
}

// Payload flattens the record into the metadata mapping stored alongside its
// vector. The inverse is RecordFromPayload.
func (r RequirementRecord) Payload() map[string]interface{} {
	payload := map[string]interface{}{
		"record_id":   r.ID,
		"category":    string(r.Category),
		"statement":   r.Statement,
		"source_file": r.Source.File,
		"start_line":  r.Source.StartLine,
		"end_line":    r.Source.EndLine,
		"raw_excerpt": r.RawExcerpt,
		"confidence":  r.Confidence,
		"method":      string(r.Method),
	}
	if r.Source.Procedure != "" {
		payload["procedure"] = r.Source.Procedure
	}
	if r.Provider != "" {
		payload["provider"] = r.Provider
	}
	if r.Incomplete {
		payload["incomplete"] = true
	}
	return payload
}

// RecordFromPayload rebuilds a record from a stored payload mapping.
func RecordFromPayload(payload map[string]interface{}) RequirementRecord {
	rec := RequirementRecord{
		ID:         asString(payload["record_id"]),
		Category:   Category(asString(payload["category"])),
		Statement:  asString(payload["statement"]),
		RawExcerpt: asString(payload["raw_excerpt"]),
		Method:     ExtractionMethod(asString(payload["method"])),
		Provider:   asString(payload["provider"]),
		Source: SourceReference{
			File:      asString(payload["source_file"]),
			StartLine: asInt(payload["start_line"]),
			EndLine:   asInt(payload["end_line"]),
			Procedure: asString(payload["procedure"]),
		},
	}
	if v, ok := payload["confidence"].(float64); ok {
		rec.Confidence = v
	}
	if v, ok := payload["incomplete"].(bool); ok {
		rec.Incomplete = v
	}
	return rec
}

func asString(v interface{}) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func asInt(v interface{}) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}
