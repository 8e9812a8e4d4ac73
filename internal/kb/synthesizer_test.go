// File path: internal/kb/synthesizer_test.go
package kb

import (
	"strings"
	"testing"

	"github.com/nicodishanthj/reqlens/internal/kb/cobol"
)

func TestSynthesizeCommentBlock(t *testing.T) {
	synth := NewSynthesizer(nil)
	evt := cobol.Event{
		Kind:      cobol.EventCommentBlock,
		StartLine: 3,
		EndLine:   4,
		Raw:       "* VALIDATE CUSTOMER CREDIT LIMIT BEFORE APPROVAL",
		Fields:    map[string]string{"text": "VALIDATE CUSTOMER CREDIT LIMIT BEFORE APPROVAL"},
	}
	rec, ok := synth.Synthesize("credit.cbl", evt)
	if !ok {
		t.Fatalf("expected record from meaningful comment")
	}
	if rec.Category != CategoryBusinessRule {
		t.Fatalf("expected business_rule, got %s", rec.Category)
	}
	if rec.Statement != "VALIDATE CUSTOMER CREDIT LIMIT BEFORE APPROVAL" {
		t.Fatalf("unexpected statement: %q", rec.Statement)
	}
	if rec.Confidence != patternConfidence {
		t.Fatalf("expected confidence %.2f, got %.2f", patternConfidence, rec.Confidence)
	}
	if rec.Method != MethodPattern {
		t.Fatalf("expected pattern method, got %s", rec.Method)
	}
	if rec.Source.File != "credit.cbl" || rec.Source.StartLine != 3 || rec.Source.EndLine != 4 {
		t.Fatalf("unexpected source reference: %+v", rec.Source)
	}
}

func TestSynthesizeDropsTrivialComments(t *testing.T) {
	synth := NewSynthesizer(nil)
	cases := map[string]string{
		"too short":   "INIT",
		"too few":     "SETUP DONE",
		"boilerplate": "COPYRIGHT 1987 ACME DATA SYSTEMS",
		"divider":     "----------------------------------------",
	}
	for name, text := range cases {
		evt := cobol.Event{Kind: cobol.EventCommentBlock, Fields: map[string]string{"text": text}}
		if _, ok := synth.Synthesize("a.cbl", evt); ok {
			t.Fatalf("%s comment should be dropped: %q", name, text)
		}
	}
}

func TestSynthesizeClassifiesValidationVocabulary(t *testing.T) {
	synth := NewSynthesizer(nil)
	evt := cobol.Event{
		Kind:   cobol.EventConditional,
		Fields: map[string]string{"condition": "WS-ORDER-TOTAL EXCEEDS WS-CREDIT-LIMIT"},
	}
	rec, ok := synth.Synthesize("a.cbl", evt)
	if !ok {
		t.Fatalf("expected record")
	}
	if rec.Category != CategoryValidationLogic {
		t.Fatalf("expected validation_logic, got %s", rec.Category)
	}
	if !strings.HasPrefix(rec.Statement, "Conditional rule: when ") {
		t.Fatalf("unexpected statement: %q", rec.Statement)
	}

	evt.Fields["condition"] = "WS-REGION = 'NORTH'"
	rec, _ = synth.Synthesize("a.cbl", evt)
	if rec.Category != CategoryBusinessRule {
		t.Fatalf("expected business_rule for plain condition, got %s", rec.Category)
	}
}

func TestSynthesizeDataDefinition(t *testing.T) {
	synth := NewSynthesizer(nil)
	evt := cobol.Event{
		Kind:   cobol.EventDataDefinition,
		Fields: map[string]string{"level": "01", "name": "WS-CREDIT-LIMIT", "picture": "S9(5)V99"},
	}
	rec, ok := synth.Synthesize("a.cbl", evt)
	if !ok {
		t.Fatalf("expected record")
	}
	if rec.Category != CategoryDataDefinition {
		t.Fatalf("expected data_definition, got %s", rec.Category)
	}
	want := "Field WS-CREDIT-LIMIT (level 01) is declared as PIC S9(5)V99: signed numeric, 5 integer digits, 2 decimal digits"
	if rec.Statement != want {
		t.Fatalf("unexpected statement:\n got %q\nwant %q", rec.Statement, want)
	}
}

func TestDescribePicture(t *testing.T) {
	cases := map[string]string{
		"S9(5)V99": "signed numeric, 5 integer digits, 2 decimal digits",
		"9(3)":     "unsigned numeric, 3 integer digits",
		"X(30)":    "alphanumeric, length 30",
		"XXX":      "alphanumeric, length 3",
	}
	for pic, want := range cases {
		if got := describePicture(pic); got != want {
			t.Fatalf("describePicture(%q) = %q, want %q", pic, got, want)
		}
	}
}

func TestSynthesizeFileOperation(t *testing.T) {
	synth := NewSynthesizer(nil)
	evt := cobol.Event{
		Kind:   cobol.EventFileOperation,
		Fields: map[string]string{"operation": "OPEN", "mode": "INPUT", "resource": "CUSTOMER-FILE"},
	}
	rec, ok := synth.Synthesize("a.cbl", evt)
	if !ok {
		t.Fatalf("expected record")
	}
	if rec.Category != CategoryFileOperation {
		t.Fatalf("expected file_operation, got %s", rec.Category)
	}
	if rec.Statement != "Program performs OPEN INPUT on file CUSTOMER-FILE" {
		t.Fatalf("unexpected statement: %q", rec.Statement)
	}
}

func TestSynthesizeSkipsProcedureBoundaries(t *testing.T) {
	synth := NewSynthesizer(nil)
	evt := cobol.Event{Kind: cobol.EventProcedureBoundary, Fields: map[string]string{"name": "MAIN-PROCESS"}}
	if _, ok := synth.Synthesize("a.cbl", evt); ok {
		t.Fatalf("procedure boundaries must not emit records")
	}
}

func TestRecordIDDeterministic(t *testing.T) {
	source := SourceReference{File: "credit.cbl", StartLine: 10, EndLine: 12}
	first := RecordID(source, CategoryBusinessRule, "Conditional rule: when X > Y")
	second := RecordID(source, CategoryBusinessRule, "Conditional rule: when X > Y")
	if first != second {
		t.Fatalf("expected identical ids, got %q and %q", first, second)
	}
	moved := source
	moved.StartLine = 11
	if RecordID(moved, CategoryBusinessRule, "Conditional rule: when X > Y") == first {
		t.Fatalf("expected different id for different location")
	}
	if RecordID(source, CategoryValidationLogic, "Conditional rule: when X > Y") == first {
		t.Fatalf("expected different id for different category")
	}
}

func TestPointIDStable(t *testing.T) {
	recordID := RecordID(SourceReference{File: "a.cbl"}, CategoryBusinessRule, "statement")
	first := PointID(recordID)
	second := PointID(recordID)
	if first != second {
		t.Fatalf("expected stable point id, got %q and %q", first, second)
	}
	if len(first) != 36 {
		t.Fatalf("expected canonical UUID form, got %q", first)
	}
}

func TestPayloadRoundTrip(t *testing.T) {
	rec := RequirementRecord{
		ID:         "abc123",
		Category:   CategoryValidationLogic,
		Statement:  "Conditional rule: when WS-TOTAL EXCEEDS WS-LIMIT",
		Source:     SourceReference{File: "credit.cbl", StartLine: 18, EndLine: 20, Procedure: "CHECK-CREDIT"},
		RawExcerpt: "IF WS-TOTAL > WS-LIMIT",
		Confidence: 0.9,
		Method:     MethodPattern,
		Incomplete: true,
	}
	got := RecordFromPayload(rec.Payload())
	if got != rec {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, rec)
	}
}
