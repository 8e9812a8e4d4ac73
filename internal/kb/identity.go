// File path: internal/kb/identity.go
package kb

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// recordNamespace seeds deterministic UUIDv5 point ids so the same record id
// always maps to the same vector point.
var recordNamespace = uuid.MustParse("8f2d6f1c-70aa-4c31-9a45-2f7d2a4f9b11")

// RecordID derives a stable identifier from the record's provenance and
// content. Ingesting unchanged source yields the same id; any change to the
// statement or location yields a new one.
func RecordID(source SourceReference, category Category, statement string) string {
	hasher := sha256.New()
	write := func(parts ...string) {
		for _, part := range parts {
			if part == "" {
				continue
			}
			_, _ = hasher.Write([]byte(part))
			_, _ = hasher.Write([]byte{0})
		}
	}
	write(
		strings.TrimSpace(source.File),
		fmt.Sprintf("%d-%d", source.StartLine, source.EndLine),
		string(category),
		strings.TrimSpace(statement),
	)
	return hex.EncodeToString(hasher.Sum(nil))
}

// PointID maps a record id onto the UUID form vector stores require.
func PointID(recordID string) string {
	return uuid.NewSHA1(recordNamespace, []byte(recordID)).String()
}
