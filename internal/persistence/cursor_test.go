package persistence

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/Sugavanesh17/UniConnect/internal/domain"
)

func TestCursorRoundTrip(t *testing.T) {
	in := &domain.Cursor{
		CreatedAt: time.Date(2025, time.May, 1, 9, 30, 0, 123456789, time.UTC),
		ID:        "0196a1f2-0000-7000-8000-000000000001",
	}
	out, err := DecodeCursor(EncodeCursor(in))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !out.CreatedAt.Equal(in.CreatedAt) || out.ID != in.ID {
		t.Fatalf("round trip mismatch: %+v vs %+v", out, in)
	}
}

func TestDecodeCursorEmptyAndInvalid(t *testing.T) {
	if c, err := DecodeCursor("  "); err != nil || c != nil {
		t.Fatalf("expected nil cursor for blank token, got %v %v", c, err)
	}
	if _, err := DecodeCursor("not-base64!"); err == nil {
		t.Fatalf("expected error for malformed token")
	}
	if _, err := DecodeCursor(EncodeCursor(nil)); err != nil {
		t.Fatalf("nil cursor should encode to blank token: %v", err)
	}
}

func TestDecodeCursorRejectsNonUUIDIDs(t *testing.T) {
	for _, raw := range []string{
		"2024-01-01T00:00:00Z|x",
		"2024-01-01T00:00:00Z|0196a1f2-0000-7000-8000",
		"2024-01-01T00:00:00Z|",
	} {
		token := base64.URLEncoding.EncodeToString([]byte(raw))
		if c, err := DecodeCursor(token); err == nil {
			t.Fatalf("expected %q to be rejected, got %+v", raw, c)
		}
	}
}
