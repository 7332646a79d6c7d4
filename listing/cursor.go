package listing

import (
	"encoding/base64"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// Cursor is the decoded form of an opaque page token: either an id alone or a
// (sort value, id) pair.
type Cursor struct {
	Compound bool
	Sort     any
	ID       int64
}

type compoundCursor struct {
	S  any      `json:"s"`
	ID *float64 `json:"id"`
}

// EncodeCursor renders the resume token for the last row of a page.
func EncodeCursor(field Field, sortValue any, id int64) string {
	if field == FieldID {
		return strconv.FormatInt(id, 10)
	}
	if t, ok := sortValue.(time.Time); ok {
		sortValue = t.UTC().Format(time.RFC3339Nano)
	}
	raw, err := json.Marshal(map[string]any{"s": sortValue, "id": id})
	if err != nil {
		// sort values are strings, times or nil; fall back to an id-only token
		return strconv.FormatInt(id, 10)
	}
	return base64.StdEncoding.EncodeToString(raw)
}

// DecodeCursor parses a page token. Anything it cannot understand yields nil, which
// callers treat as "start from the beginning".
func DecodeCursor(raw string) *Cursor {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}
	if isDigits(trimmed) {
		id, err := strconv.ParseInt(trimmed, 10, 64)
		if err != nil {
			return nil
		}
		return &Cursor{ID: id}
	}

	// '+' arrives as ' ' when a caller forgets to escape the query string
	payload, ok := decodeBase64(strings.ReplaceAll(raw, " ", "+"))
	if !ok {
		if payload, ok = decodeBase64(trimmed); !ok {
			return nil
		}
	}
	var c compoundCursor
	if err := json.Unmarshal(payload, &c); err != nil || c.ID == nil {
		return nil
	}
	id := *c.ID
	if math.IsNaN(id) || math.IsInf(id, 0) || id != math.Trunc(id) {
		return nil
	}
	return &Cursor{Compound: true, Sort: c.S, ID: int64(id)}
}

func decodeBase64(raw string) ([]byte, bool) {
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding,
		base64.URLEncoding,
		base64.RawStdEncoding,
		base64.RawURLEncoding,
	} {
		if b, err := enc.DecodeString(raw); err == nil {
			return b, true
		}
	}
	return nil, false
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
