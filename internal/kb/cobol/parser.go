// File path: internal/kb/cobol/parser.go
package cobol

import (
	"context"
	"path/filepath"
	"regexp"
	"strings"
)

// EventKind identifies the construct a structural event was recognized as.
type EventKind string

const (
	EventCommentBlock      EventKind = "comment_block"
	EventConditional       EventKind = "conditional"
	EventLoop              EventKind = "loop"
	EventComputation       EventKind = "computation"
	EventDataDefinition    EventKind = "data_definition"
	EventFileOperation     EventKind = "file_operation"
	EventProcedureBoundary EventKind = "procedure_boundary"
)

// Event is a typed, located span of source text recognized as one construct.
// Fields carries the matched substrings keyed per kind (condition, level,
// name, picture, operation, mode, resource, target, verb, text).
type Event struct {
	Kind       EventKind         `json:"kind"`
	Procedure  string            `json:"procedure,omitempty"`
	StartLine  int               `json:"start_line"`
	EndLine    int               `json:"end_line"`
	Raw        string            `json:"raw"`
	Fields     map[string]string `json:"fields,omitempty"`
	Incomplete bool              `json:"incomplete,omitempty"`
}

var (
	programIDRe = regexp.MustCompile(`(?i)PROGRAM-ID\.\s*([A-Z0-9-]+)`)
	divisionRe  = regexp.MustCompile(`(?i)^[ \t]*([A-Z-]+)\s+DIVISION\.`)
	sectionRe   = regexp.MustCompile(`(?i)^[ \t]*([A-Z0-9-]+)\s+SECTION\.\s*$`)
	paragraphRe = regexp.MustCompile(`(?i)^[ \t]*([A-Z0-9-]+)\.\s*$`)
	dataItemRe  = regexp.MustCompile(`(?i)^\s*(\d{2})\s+([A-Z0-9-]+)\b.*?\bPIC(?:TURE)?\s+(?:IS\s+)?([SVX9A-Z0-9()]+)`)
	openRe      = regexp.MustCompile(`(?i)^\s*OPEN\s+(INPUT|OUTPUT|I-O|EXTEND)\s+([A-Z0-9-]+)`)
	ioRe        = regexp.MustCompile(`(?i)^\s*(READ|WRITE|REWRITE|CLOSE)\s+([A-Z0-9-]+)`)
	ifRe        = regexp.MustCompile(`(?i)^\s*IF\s+(.+)`)
	loopRe      = regexp.MustCompile(`(?i)^\s*PERFORM\s+(?:([A-Z0-9-]+)\s+)?(?:THRU\s+[A-Z0-9-]+\s+)?UNTIL\s+(.+)`)
	varyingRe   = regexp.MustCompile(`(?i)^\s*PERFORM\s+(?:([A-Z0-9-]+)\s+)?VARYING\s+(.+)`)
	computeRe   = regexp.MustCompile(`(?i)^\s*(COMPUTE|ADD|SUBTRACT|MULTIPLY|DIVIDE|MOVE)\s+(.+)`)
	endIfRe     = regexp.MustCompile(`(?i)\bEND-IF\b`)
	endLoopRe   = regexp.MustCompile(`(?i)\bEND-PERFORM\b`)
	// The IF of END-IF must not count as a nested opener, so a plain \b is
	// not enough: require start of line or a separator that rules out "-IF".
	nestedIfRe = regexp.MustCompile(`(?i)(?:^|[^-A-Z0-9])IF\s`)
)

// Parser scans normalized source text in a single forward pass and emits
// structural events. Recognition is pattern based with first-match-wins
// priority; lines matching no pattern are structurally inert.
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// Program extracts the PROGRAM-ID, falling back to the source file name.
func (p *Parser) Program(source, text string) string {
	if m := programIDRe.FindStringSubmatch(text); len(m) > 1 {
		return strings.ToUpper(strings.TrimSpace(m[1]))
	}
	base := filepath.Base(source)
	return strings.ToUpper(strings.TrimSuffix(base, filepath.Ext(base)))
}

// Parse walks the text line by line and returns the ordered event sequence.
// Re-parsing identical input yields an identical sequence.
func (p *Parser) Parse(ctx context.Context, text string) ([]Event, error) {
	if ctx != nil {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
	}
	s := &scanner{}
	lines := strings.Split(text, "\n")
	for idx, raw := range lines {
		s.line(idx+1, raw)
	}
	s.closeComment(len(lines))
	s.closePending(len(lines), true)
	return s.events, nil
}

type pendingStmt struct {
	kind      EventKind
	start     int
	depth     int
	lines     []string
	fields    map[string]string
	procedure string
}

type scanner struct {
	events       []Event
	procedure    string
	inProcedure  bool
	comment      []string
	commentStart int
	pending      *pendingStmt
}

func (s *scanner) line(no int, raw string) {
	line := strings.TrimRight(raw, "\r")
	trimmed := strings.TrimSpace(line)

	if isCommentLine(line) {
		if len(s.comment) == 0 {
			s.commentStart = no
		}
		s.comment = append(s.comment, commentText(line))
		return
	}
	s.closeComment(no - 1)
	if code, comment, ok := splitInlineComment(trimmed); ok {
		if comment != "" {
			s.events = append(s.events, Event{
				Kind:      EventCommentBlock,
				Procedure: s.procedure,
				StartLine: no,
				EndLine:   no,
				Raw:       trimmed,
				Fields:    map[string]string{"text": comment},
			})
		}
		trimmed = code
	}
	if trimmed == "" {
		return
	}

	if s.pending != nil {
		s.continuePending(no, trimmed)
		return
	}

	if m := divisionRe.FindStringSubmatch(trimmed); len(m) > 1 {
		s.inProcedure = strings.EqualFold(m[1], "PROCEDURE")
		return
	}
	if s.inProcedure {
		if name, ok := procedureName(trimmed); ok {
			s.procedure = name
			s.events = append(s.events, Event{
				Kind:      EventProcedureBoundary,
				Procedure: name,
				StartLine: no,
				EndLine:   no,
				Raw:       trimmed,
				Fields:    map[string]string{"name": name},
			})
			return
		}
	}
	if m := dataItemRe.FindStringSubmatch(trimmed); len(m) > 3 {
		s.emit(no, no, EventDataDefinition, trimmed, map[string]string{
			"level":   m[1],
			"name":    strings.ToUpper(m[2]),
			"picture": strings.ToUpper(m[3]),
		}, false)
		return
	}
	if m := openRe.FindStringSubmatch(trimmed); len(m) > 2 {
		s.emit(no, no, EventFileOperation, trimmed, map[string]string{
			"operation": "OPEN",
			"mode":      strings.ToUpper(m[1]),
			"resource":  strings.ToUpper(m[2]),
		}, false)
		return
	}
	if m := ioRe.FindStringSubmatch(trimmed); len(m) > 2 {
		s.emit(no, no, EventFileOperation, trimmed, map[string]string{
			"operation": strings.ToUpper(m[1]),
			"resource":  strings.ToUpper(m[2]),
		}, false)
		return
	}
	if m := ifRe.FindStringSubmatch(trimmed); len(m) > 1 {
		s.open(no, EventConditional, trimmed, map[string]string{
			"condition": strings.TrimSuffix(strings.TrimSpace(m[1]), "."),
		})
		return
	}
	if m := loopRe.FindStringSubmatch(trimmed); len(m) > 2 {
		fields := map[string]string{"condition": strings.TrimSuffix(strings.TrimSpace(m[2]), ".")}
		if m[1] != "" {
			fields["target"] = strings.ToUpper(m[1])
		}
		s.open(no, EventLoop, trimmed, fields)
		return
	}
	if m := varyingRe.FindStringSubmatch(trimmed); len(m) > 2 {
		fields := map[string]string{"condition": strings.TrimSuffix(strings.TrimSpace(m[2]), ".")}
		if m[1] != "" {
			fields["target"] = strings.ToUpper(m[1])
		}
		s.open(no, EventLoop, trimmed, fields)
		return
	}
	if m := computeRe.FindStringSubmatch(trimmed); len(m) > 2 {
		s.open(no, EventComputation, trimmed, map[string]string{
			"verb":       strings.ToUpper(m[1]),
			"expression": strings.TrimSuffix(strings.TrimSpace(m[2]), "."),
		})
		return
	}
	// Structurally inert.
}

// open starts a statement that may span multiple lines. Single-line
// statements terminated by a period close immediately.
func (s *scanner) open(no int, kind EventKind, line string, fields map[string]string) {
	s.pending = &pendingStmt{
		kind:      kind,
		start:     no,
		depth:     1,
		lines:     []string{line},
		fields:    fields,
		procedure: s.procedure,
	}
	s.advanceDepth(line)
	if s.pending != nil && strings.HasSuffix(line, ".") {
		s.closePending(no, false)
	}
}

func (s *scanner) continuePending(no int, line string) {
	if name, ok := procedureName(line); ok && s.inProcedure {
		// New procedure boundary closes a dangling statement.
		s.closePendingAt(no-1, true)
		s.procedure = name
		s.events = append(s.events, Event{
			Kind:      EventProcedureBoundary,
			Procedure: name,
			StartLine: no,
			EndLine:   no,
			Raw:       line,
			Fields:    map[string]string{"name": name},
		})
		return
	}
	s.pending.lines = append(s.pending.lines, line)
	s.advanceDepth(line)
	if s.pending != nil && strings.HasSuffix(line, ".") {
		s.closePending(no, false)
	}
}

// advanceDepth is the lightweight clause matcher: nested IF opens a scope,
// END-IF / END-PERFORM close one, and closing the outermost scope ends the
// statement.
func (s *scanner) advanceDepth(line string) {
	if s.pending == nil {
		return
	}
	if s.pending.kind == EventConditional && len(s.pending.lines) > 1 {
		s.pending.depth += len(nestedIfRe.FindAllString(line, -1))
	}
	var closers int
	switch s.pending.kind {
	case EventConditional:
		closers = len(endIfRe.FindAllString(line, -1))
	case EventLoop:
		closers = len(endLoopRe.FindAllString(line, -1))
	}
	s.pending.depth -= closers
	if s.pending.depth <= 0 {
		end := s.pendingEnd()
		s.closePending(end, false)
	}
}

func (s *scanner) pendingEnd() int {
	return s.pending.start + len(s.pending.lines) - 1
}

func (s *scanner) closePending(endLine int, incomplete bool) {
	s.closePendingAt(endLine, incomplete)
}

func (s *scanner) closePendingAt(endLine int, incomplete bool) {
	if s.pending == nil {
		return
	}
	p := s.pending
	s.pending = nil
	if endLine < p.start {
		endLine = p.start
	}
	evt := Event{
		Kind:       p.kind,
		Procedure:  p.procedure,
		StartLine:  p.start,
		EndLine:    endLine,
		Raw:        strings.Join(p.lines, "\n"),
		Fields:     p.fields,
		Incomplete: incomplete,
	}
	s.events = append(s.events, evt)
}

func (s *scanner) closeComment(endLine int) {
	if len(s.comment) == 0 {
		return
	}
	text := strings.TrimSpace(strings.Join(s.comment, " "))
	start := s.commentStart
	raw := strings.Join(s.comment, "\n")
	s.comment = nil
	if text == "" {
		return
	}
	s.events = append(s.events, Event{
		Kind:      EventCommentBlock,
		Procedure: s.procedure,
		StartLine: start,
		EndLine:   endLine,
		Raw:       raw,
		Fields:    map[string]string{"text": text},
	})
}

func (s *scanner) emit(start, end int, kind EventKind, raw string, fields map[string]string, incomplete bool) {
	s.events = append(s.events, Event{
		Kind:       kind,
		Procedure:  s.procedure,
		StartLine:  start,
		EndLine:    end,
		Raw:        raw,
		Fields:     fields,
		Incomplete: incomplete,
	})
}

// isCommentLine recognizes fixed-format comments (asterisk in column 7) and
// free-format lines whose first non-blank character is an asterisk.
func isCommentLine(line string) bool {
	if len(line) > 6 && line[6] == '*' {
		return true
	}
	trimmed := strings.TrimSpace(line)
	return strings.HasPrefix(trimmed, "*")
}

func commentText(line string) string {
	if len(line) > 6 && line[6] == '*' {
		return strings.TrimSpace(line[7:])
	}
	trimmed := strings.TrimSpace(line)
	trimmed = strings.TrimPrefix(trimmed, "*>")
	trimmed = strings.TrimLeft(trimmed, "*")
	return strings.TrimSpace(trimmed)
}

func splitInlineComment(line string) (code, comment string, ok bool) {
	idx := strings.Index(line, "*>")
	if idx < 0 {
		return line, "", false
	}
	return strings.TrimSpace(line[:idx]), strings.TrimSpace(line[idx+2:]), true
}

var reservedParagraphNames = map[string]struct{}{
	"EXIT": {}, "STOP": {}, "GOBACK": {}, "END": {},
}

func procedureName(line string) (string, bool) {
	if m := sectionRe.FindStringSubmatch(line); len(m) > 1 {
		return strings.ToUpper(m[1]), true
	}
	m := paragraphRe.FindStringSubmatch(line)
	if len(m) < 2 {
		return "", false
	}
	name := strings.ToUpper(m[1])
	if _, reserved := reservedParagraphNames[name]; reserved {
		return "", false
	}
	return name, true
}
