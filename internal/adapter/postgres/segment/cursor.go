package segment

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/mediagrid/timestore/internal/domain"
)

// cursor is the keyset position of the last row returned by a range page.
// It mirrors the listing order: start bound (open starts first), inclusive
// bounds before exclusive, then id as the tiebreaker.
type cursor struct {
	HasStart bool
	Start    string // decimal seconds, "0" when the start is open
	InclRank int    // 0 inclusive, 1 exclusive
	ID       uuid.UUID
}

func cursorFromSegment(s domain.Segment) cursor {
	c := cursor{Start: "0", ID: s.ID}
	if s.Range.Start != nil {
		c.HasStart = true
		c.Start = s.Range.Start.Decimal()
	}
	if !s.Range.StartInclusive {
		c.InclRank = 1
	}
	return c
}

// Encode serializes the cursor as an opaque page token.
func (c cursor) Encode() string {
	h := "0"
	if c.HasStart {
		h = "1"
	}
	raw := fmt.Sprintf("%s|%s|%d|%s", h, c.Start, c.InclRank, c.ID)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func decodeCursor(token string) (cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return cursor{}, fmt.Errorf("decode cursor: %w", domain.ErrValidation)
	}

	parts := strings.Split(string(raw), "|")
	if len(parts) != 4 {
		return cursor{}, fmt.Errorf("decode cursor: %w", domain.ErrValidation)
	}

	var c cursor
	c.HasStart = parts[0] == "1"
	c.Start = parts[1]
	switch parts[2] {
	case "0":
		c.InclRank = 0
	case "1":
		c.InclRank = 1
	default:
		return cursor{}, fmt.Errorf("decode cursor: %w", domain.ErrValidation)
	}
	if c.ID, err = uuid.Parse(parts[3]); err != nil {
		return cursor{}, fmt.Errorf("decode cursor: %w", domain.ErrValidation)
	}

	return c, nil
}
