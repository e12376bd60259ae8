// Package pagination encodes opaque keyset cursors for newest-first listings.
package pagination

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	cursorSeparator = ","
	timeFormat      = time.RFC3339Nano
)

// Cursor points just past the last row of a page ordered by (At, ID) descending.
type Cursor struct {
	At time.Time
	ID int64
}

// Encode returns the opaque form of c.
func (c Cursor) Encode() string {
	key := c.At.UTC().Format(timeFormat) + cursorSeparator + strconv.FormatInt(c.ID, 10)
	return base64.RawURLEncoding.EncodeToString([]byte(key))
}

// Decode parses a cursor produced by Encode.
func Decode(encoded string) (Cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(encoded, "="))
	if err != nil {
		return Cursor{}, fmt.Errorf("invalid cursor encoding: %w", err)
	}

	at, idStr, ok := strings.Cut(string(raw), cursorSeparator)
	if !ok {
		return Cursor{}, fmt.Errorf("invalid cursor format")
	}
	ts, err := time.Parse(timeFormat, at)
	if err != nil {
		return Cursor{}, fmt.Errorf("invalid timestamp in cursor: %w", err)
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		return Cursor{}, fmt.Errorf("invalid id in cursor")
	}
	return Cursor{At: ts.UTC(), ID: id}, nil
}
