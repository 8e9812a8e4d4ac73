// File path: internal/kb/extractor_test.go
package kb

import (
	"context"
	"testing"
)

const extractorSample = `       IDENTIFICATION DIVISION.
       PROGRAM-ID. ORDPROC.
      * ORDERS OVER THE CREDIT LIMIT REQUIRE MANUAL REVIEW
       DATA DIVISION.
       WORKING-STORAGE SECTION.
       01 WS-ORDER-TOTAL PIC S9(7)V99.
       PROCEDURE DIVISION.
       MAIN-PROCESS.
           OPEN INPUT ORDER-FILE
           IF WS-ORDER-TOTAL > WS-CREDIT-LIMIT
               MOVE 'R' TO WS-STATUS
           END-IF
           CLOSE ORDER-FILE.
`

func TestExtractCobolFile(t *testing.T) {
	extractor := NewExtractor(nil)
	extraction, err := extractor.Extract(context.Background(), "orders.cbl", []byte(extractorSample))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if extraction.Encoding != "utf-8" {
		t.Fatalf("expected utf-8, got %q", extraction.Encoding)
	}
	if extraction.Analyzer != "cobol" {
		t.Fatalf("expected cobol analyzer, got %q", extraction.Analyzer)
	}
	if len(extraction.Records) == 0 {
		t.Fatalf("expected records")
	}
	categories := make(map[Category]int)
	for _, rec := range extraction.Records {
		categories[rec.Category]++
		if rec.ID == "" {
			t.Fatalf("record missing id: %+v", rec)
		}
		if rec.Source.File != "orders.cbl" {
			t.Fatalf("unexpected source file: %q", rec.Source.File)
		}
	}
	if categories[CategoryBusinessRule] == 0 {
		t.Fatalf("expected business rule from comment, got %v", categories)
	}
	if categories[CategoryDataDefinition] != 1 {
		t.Fatalf("expected 1 data definition, got %v", categories)
	}
	if categories[CategoryFileOperation] != 2 {
		t.Fatalf("expected 2 file operations, got %v", categories)
	}
	if categories[CategoryValidationLogic] != 1 {
		t.Fatalf("expected 1 validation rule from LIMIT condition, got %v", categories)
	}
}

func TestExtractIsIdempotent(t *testing.T) {
	extractor := NewExtractor(nil)
	first, err := extractor.Extract(context.Background(), "orders.cbl", []byte(extractorSample))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	second, err := extractor.Extract(context.Background(), "orders.cbl", []byte(extractorSample))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(first.Records) != len(second.Records) {
		t.Fatalf("expected same record count, got %d and %d", len(first.Records), len(second.Records))
	}
	for i := range first.Records {
		if first.Records[i].ID != second.Records[i].ID {
			t.Fatalf("record %d id changed between runs", i)
		}
	}
}

func TestExtractUnknownDialect(t *testing.T) {
	extractor := NewExtractor(nil)
	extraction, err := extractor.Extract(context.Background(), "notes.txt", []byte("plain meeting notes, nothing mainframe here"))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if extraction.Analyzer != "" {
		t.Fatalf("expected no analyzer match, got %q", extraction.Analyzer)
	}
	if len(extraction.Records) != 0 {
		t.Fatalf("expected no records, got %d", len(extraction.Records))
	}
}

func TestAnalyzerMatch(t *testing.T) {
	analyzers := defaultAnalyzers(NewSynthesizer(nil))
	cobolAnalyzer := analyzers[0]
	if !cobolAnalyzer.Match("PAYROLL.CBL", "") {
		t.Fatalf("expected extension match")
	}
	if !cobolAnalyzer.Match("payroll.dat", "       IDENTIFICATION DIVISION.") {
		t.Fatalf("expected content match")
	}
	if cobolAnalyzer.Match("readme.md", "plain text") {
		t.Fatalf("unexpected match for plain text")
	}
}
