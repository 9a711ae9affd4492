package pagination

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"net/http"
	"strconv"
	"time"
)

// isoMillis matches the ISO-8601 form used for updatedAt in response bodies.
const isoMillis = "2006-01-02T15:04:05.000Z"

// Fingerprint is the identity of a record as seen by cache validators.
type Fingerprint struct {
	ID        string
	Title     string
	UpdatedAt time.Time
	CreatedAt time.Time
}

// ComputeETag returns a weak validator over the ordered (id, title,
// updatedAt) tuples of items.
func ComputeETag(items []Fingerprint) string {
	h := sha256.New()
	for _, item := range items {
		writeField(h, item.ID)
		writeField(h, item.Title)
		writeField(h, formatISO(item.UpdatedAt))
	}
	return `W/"` + hex.EncodeToString(h.Sum(nil)) + `"`
}

// ComputeLastModified returns the most recent modification time of items as
// an HTTP-date. Items without updatedAt fall back to createdAt and then to
// now. It reports false when items is empty.
func ComputeLastModified(items []Fingerprint, now time.Time) (string, bool) {
	if len(items) == 0 {
		return "", false
	}
	var latest time.Time
	for _, item := range items {
		ts := item.UpdatedAt
		if ts.IsZero() {
			ts = item.CreatedAt
		}
		if ts.IsZero() {
			ts = now
		}
		if ts.After(latest) {
			latest = ts
		}
	}
	return latest.UTC().Format(http.TimeFormat), true
}

// writeField length-prefixes s so adjacent fields cannot run together.
func writeField(h hash.Hash, s string) {
	h.Write([]byte(strconv.Itoa(len(s))))
	h.Write([]byte{':'})
	h.Write([]byte(s))
	h.Write([]byte{'|'})
}

func formatISO(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(isoMillis)
}
