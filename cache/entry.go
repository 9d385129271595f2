package cache

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/tidwall/gjson"
)

var errMalformed = errors.New("cache: malformed entry")

// Entry is the record written to storage for every cached key. Timestamps
// are milliseconds since the Unix epoch.
type Entry struct {
	CreatedAt int64           `json:"createdAt"`
	ExpiresAt int64           `json:"expiresAt"`
	Payload   json.RawMessage `json:"payload"`
}

// Expired reports whether now is strictly past the entry's expiry.
func (e Entry) Expired(now time.Time) bool {
	return now.UnixMilli() > e.ExpiresAt
}

func newEntry(now time.Time, ttl time.Duration, payload json.RawMessage) Entry {
	created := now.UnixMilli()
	return Entry{
		CreatedAt: created,
		ExpiresAt: created + ttl.Milliseconds(),
		Payload:   payload,
	}
}

// decodeEntry parses raw. ExpiresAt is always the value peekExpiry reads.
func decodeEntry(raw string) (Entry, error) {
	expiresAt, ok := peekExpiry(raw)
	if !ok {
		return Entry{}, errMalformed
	}
	var e Entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return Entry{}, errMalformed
	}
	e.ExpiresAt = expiresAt
	return e, nil
}

// peekExpiry extracts expiresAt without decoding the payload. ok is false
// when raw is not an object with a numeric expiresAt and a payload field.
func peekExpiry(raw string) (int64, bool) {
	if !gjson.Valid(raw) {
		return 0, false
	}
	doc := gjson.Parse(raw)
	if !doc.IsObject() {
		return 0, false
	}
	fields := gjson.GetMany(raw, "expiresAt", "payload")
	if fields[0].Type != gjson.Number || !fields[1].Exists() {
		return 0, false
	}
	return fields[0].Int(), true
}
