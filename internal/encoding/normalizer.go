// File path: internal/encoding/normalizer.go
package encoding

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// DecodeError reports that none of the candidate encodings produced a clean
// decode of the input bytes.
type DecodeError struct {
	Tried []string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("encoding: no candidate decoded input cleanly (tried %s)", strings.Join(e.Tried, ", "))
}

// Candidate names understood by Normalize.
const (
	EncodingUTF8   = "utf-8"
	EncodingCP037  = "cp037"
	EncodingCP1252 = "windows-1252"
	EncodingLatin1 = "iso-8859-1"
	EncodingASCII  = "ascii"
)

// DefaultCandidates is the ordered list tried by Normalize: UTF-8 first, then
// the mainframe code page when the bytes look EBCDIC, then the Windows
// Latin-1 superset, then Latin-1, then strict ASCII.
func DefaultCandidates() []string {
	return []string{EncodingUTF8, EncodingCP037, EncodingCP1252, EncodingLatin1, EncodingASCII}
}

// Normalize decodes raw bytes into text using the first candidate encoding
// that decodes cleanly, returning the text and the encoding name used. It is
// a pure function: no candidate ever substitutes replacement characters.
func Normalize(data []byte, candidates []string) (string, string, error) {
	if len(candidates) == 0 {
		candidates = DefaultCandidates()
	}
	tried := make([]string, 0, len(candidates))
	for _, name := range candidates {
		tried = append(tried, name)
		text, ok := decodeWith(name, data)
		if ok {
			return text, name, nil
		}
	}
	return "", "", &DecodeError{Tried: tried}
}

func decodeWith(name string, data []byte) (string, bool) {
	switch name {
	case EncodingUTF8:
		if utf8.Valid(data) {
			return string(data), true
		}
		return "", false
	case EncodingCP037:
		if !looksEBCDIC(data) {
			return "", false
		}
		decoded, err := charmap.CodePage037.NewDecoder().Bytes(data)
		if err != nil {
			return "", false
		}
		return string(decoded), true
	case EncodingCP1252:
		// Windows-1252 leaves a handful of code points undefined.
		for _, b := range data {
			if r := charmap.Windows1252.DecodeByte(b); r == utf8.RuneError {
				return "", false
			}
		}
		decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
		if err != nil {
			return "", false
		}
		return string(decoded), true
	case EncodingLatin1:
		decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
		if err != nil {
			return "", false
		}
		return string(decoded), true
	case EncodingASCII:
		for _, b := range data {
			if b > 0x7f {
				return "", false
			}
		}
		return string(data), true
	default:
		return "", false
	}
}

// looksEBCDIC guards the CP037 candidate: EBCDIC text is dominated by bytes
// above 0x40 and uses 0x40 for space, while ASCII-compatible text is not.
// Without the guard nearly any byte stream would "decode" as CP037 garbage.
func looksEBCDIC(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	var high, asciiPrintable int
	sample := data
	if len(sample) > 4096 {
		sample = sample[:4096]
	}
	for _, b := range sample {
		if b >= 0x40 {
			high++
		}
		if b >= 0x20 && b < 0x7f {
			asciiPrintable++
		}
	}
	return high*10 > len(sample)*9 && asciiPrintable*2 < len(sample)
}
