// File path: internal/kb/synthesizer.go
package kb

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/nicodishanthj/reqlens/internal/kb/cobol"
)

const patternConfidence = 0.9

// defaultValidationVocabulary marks clauses as validation logic rather than
// generic business flow.
var defaultValidationVocabulary = []string{
	"VALIDATE", "VALID", "INVALID", "CHECK", "VERIFY", "ERROR",
	"LIMIT", "EXCEED", "BALANCE", "MINIMUM", "MAXIMUM", "REQUIRED",
	"REJECT", "APPROV", "AUDIT",
}

var boilerplateRe = regexp.MustCompile(`(?i)\b(copyright|all rights reserved|author|date-written|date written|revision|change history|licensed)\b`)

// SynthesizerOptions tune the comment heuristics and validation vocabulary.
type SynthesizerOptions struct {
	MinCommentTokens     int
	MinCommentLength     int
	ValidationVocabulary []string
}

// Synthesizer maps structural events to requirement records using
// deterministic per-category templates, so identical events always produce
// identical statements and ids.
type Synthesizer struct {
	minTokens  int
	minLength  int
	vocabulary []string
}

func NewSynthesizer(opts *SynthesizerOptions) *Synthesizer {
	s := &Synthesizer{minTokens: 3, minLength: 12, vocabulary: defaultValidationVocabulary}
	if opts == nil {
		return s
	}
	if opts.MinCommentTokens > 0 {
		s.minTokens = opts.MinCommentTokens
	}
	if opts.MinCommentLength > 0 {
		s.minLength = opts.MinCommentLength
	}
	if len(opts.ValidationVocabulary) > 0 {
		s.vocabulary = append([]string(nil), opts.ValidationVocabulary...)
	}
	return s
}

// Synthesize converts one event into zero or one record. Procedure
// boundaries never emit; trivial comments are dropped.
func (s *Synthesizer) Synthesize(sourceFile string, evt cobol.Event) (RequirementRecord, bool) {
	var category Category
	var statement string
	switch evt.Kind {
	case cobol.EventCommentBlock:
		text := evt.Fields["text"]
		if !s.meaningfulComment(text) {
			return RequirementRecord{}, false
		}
		category = CategoryBusinessRule
		statement = text
	case cobol.EventConditional:
		category = s.classifyClause(evt.Fields["condition"])
		statement = fmt.Sprintf("Conditional rule: when %s", evt.Fields["condition"])
	case cobol.EventLoop:
		category = s.classifyClause(evt.Fields["condition"])
		if target := evt.Fields["target"]; target != "" {
			statement = fmt.Sprintf("Iterative process %s repeats until %s", target, evt.Fields["condition"])
		} else {
			statement = fmt.Sprintf("Iterative process repeats until %s", evt.Fields["condition"])
		}
	case cobol.EventComputation:
		category = s.classifyClause(evt.Fields["expression"])
		statement = fmt.Sprintf("Computation: %s %s", evt.Fields["verb"], evt.Fields["expression"])
	case cobol.EventDataDefinition:
		category = CategoryDataDefinition
		statement = fmt.Sprintf(
			"Field %s (level %s) is declared as PIC %s: %s",
			evt.Fields["name"], evt.Fields["level"], evt.Fields["picture"],
			describePicture(evt.Fields["picture"]),
		)
	case cobol.EventFileOperation:
		category = CategoryFileOperation
		if mode := evt.Fields["mode"]; mode != "" {
			statement = fmt.Sprintf("Program performs %s %s on file %s", evt.Fields["operation"], mode, evt.Fields["resource"])
		} else {
			statement = fmt.Sprintf("Program performs %s on file %s", evt.Fields["operation"], evt.Fields["resource"])
		}
	default:
		return RequirementRecord{}, false
	}

	source := SourceReference{
		File:      sourceFile,
		StartLine: evt.StartLine,
		EndLine:   evt.EndLine,
		Procedure: evt.Procedure,
	}
	return RequirementRecord{
		ID:         RecordID(source, category, statement),
		Category:   category,
		Statement:  statement,
		Source:     source,
		RawExcerpt: evt.Raw,
		Confidence: patternConfidence,
		Method:     MethodPattern,
		Incomplete: evt.Incomplete,
	}, true
}

func (s *Synthesizer) classifyClause(clause string) Category {
	upper := strings.ToUpper(clause)
	for _, keyword := range s.vocabulary {
		if strings.Contains(upper, keyword) {
			return CategoryValidationLogic
		}
	}
	return CategoryBusinessRule
}

func (s *Synthesizer) meaningfulComment(text string) bool {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < s.minLength {
		return false
	}
	if len(strings.Fields(trimmed)) < s.minTokens {
		return false
	}
	if boilerplateRe.MatchString(trimmed) {
		return false
	}
	// Divider lines survive the asterisk stripping as punctuation runs.
	if strings.Trim(trimmed, "-=*_ ") == "" {
		return false
	}
	return true
}

var picDigitsRe = regexp.MustCompile(`([9XA])\((\d+)\)|([9XA])`)

// describePicture renders a PIC clause as a plain-language shape description,
// e.g. S9(5)V99 -> "signed numeric, 5 integer digits, 2 decimal digits".
func describePicture(pic string) string {
	upper := strings.ToUpper(pic)
	signed := strings.HasPrefix(upper, "S")
	body := strings.TrimPrefix(upper, "S")
	intPart := body
	decPart := ""
	if idx := strings.Index(body, "V"); idx >= 0 {
		intPart = body[:idx]
		decPart = body[idx+1:]
	}
	numeric := strings.ContainsAny(body, "9")
	alpha := strings.ContainsAny(body, "XA")

	var desc []string
	switch {
	case numeric && !alpha:
		if signed {
			desc = append(desc, "signed numeric")
		} else {
			desc = append(desc, "unsigned numeric")
		}
		if n := picLength(intPart); n > 0 {
			desc = append(desc, fmt.Sprintf("%d integer digits", n))
		}
		if n := picLength(decPart); n > 0 {
			desc = append(desc, fmt.Sprintf("%d decimal digits", n))
		}
	case alpha:
		desc = append(desc, "alphanumeric")
		if n := picLength(body); n > 0 {
			desc = append(desc, fmt.Sprintf("length %d", n))
		}
	default:
		desc = append(desc, "unrecognized shape")
	}
	return strings.Join(desc, ", ")
}

func picLength(segment string) int {
	total := 0
	for _, m := range picDigitsRe.FindAllStringSubmatch(segment, -1) {
		if m[2] != "" {
			var n int
			fmt.Sscanf(m[2], "%d", &n)
			total += n
		} else if m[3] != "" {
			total++
		}
	}
	return total
}
