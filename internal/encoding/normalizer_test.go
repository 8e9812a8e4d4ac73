// File path: internal/encoding/normalizer_test.go
package encoding

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/text/encoding/charmap"
)

func TestNormalizeUTF8(t *testing.T) {
	text, name, err := Normalize([]byte("IDENTIFICATION DIVISION.\n"), nil)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if name != EncodingUTF8 {
		t.Fatalf("expected utf-8, got %q", name)
	}
	if text != "IDENTIFICATION DIVISION.\n" {
		t.Fatalf("unexpected text: %q", text)
	}
}

func TestNormalizeEBCDIC(t *testing.T) {
	source := "IDENTIFICATION DIVISION. PROGRAM-ID. CREDITCHK."
	encoded, err := charmap.CodePage037.NewEncoder().Bytes([]byte(source))
	if err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	text, name, err := Normalize(encoded, nil)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if name != EncodingCP037 {
		t.Fatalf("expected cp037, got %q", name)
	}
	if text != source {
		t.Fatalf("round trip mismatch: %q", text)
	}
}

func TestNormalizeWindows1252(t *testing.T) {
	// 0x93/0x94 are curly quotes in Windows-1252 and invalid as UTF-8.
	data := []byte("CUSTOMER NAME \x93ACME\x94 LTD")
	text, name, err := Normalize(data, nil)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if name != EncodingCP1252 {
		t.Fatalf("expected windows-1252, got %q", name)
	}
	if !strings.Contains(text, "“ACME”") {
		t.Fatalf("expected decoded quotes, got %q", text)
	}
}

func TestNormalizeASCIIOnlyCandidate(t *testing.T) {
	text, name, err := Normalize([]byte("PLAIN TEXT"), []string{EncodingASCII})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if name != EncodingASCII || text != "PLAIN TEXT" {
		t.Fatalf("unexpected result %q %q", name, text)
	}
}

func TestNormalizeDecodeError(t *testing.T) {
	_, _, err := Normalize([]byte{0xff, 0xfe, 0x80}, []string{EncodingUTF8, EncodingASCII})
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
	if len(decodeErr.Tried) != 2 || decodeErr.Tried[0] != EncodingUTF8 || decodeErr.Tried[1] != EncodingASCII {
		t.Fatalf("unexpected tried list: %v", decodeErr.Tried)
	}
}

func TestEBCDICGuardRejectsASCIIText(t *testing.T) {
	if looksEBCDIC([]byte("IDENTIFICATION DIVISION.")) {
		t.Fatalf("ASCII text must not pass the EBCDIC guard")
	}
}

func TestNormalizeIsPure(t *testing.T) {
	data := []byte("STABLE INPUT BYTES")
	first, name1, err1 := Normalize(data, nil)
	second, name2, err2 := Normalize(data, nil)
	if err1 != nil || err2 != nil {
		t.Fatalf("normalize: %v %v", err1, err2)
	}
	if first != second || name1 != name2 {
		t.Fatalf("expected identical results")
	}
}
