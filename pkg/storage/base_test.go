package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetentionWindow(t *testing.T) {
	tests := []struct {
		retention string
		want      time.Duration
	}{
		{RetentionSession, 24 * time.Hour},
		{RetentionShortTerm, 7 * 24 * time.Hour},
		{RetentionLongTerm, 30 * 24 * time.Hour},
		{RetentionPermanent, 365 * 24 * time.Hour},
		{"unknown", 30 * 24 * time.Hour},
		{"", 30 * 24 * time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.retention, func(t *testing.T) {
			assert.Equal(t, tt.want, RetentionWindow(tt.retention))
		})
	}
}

func TestStampNew(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("fills zero timestamps", func(t *testing.T) {
		m := &Memory{Interaction: InteractionData{Retention: RetentionSession}}
		StampNew(m, now)

		assert.Equal(t, now, m.CreatedAt)
		assert.Equal(t, now, m.UpdatedAt)
		assert.Equal(t, now.Add(24*time.Hour), m.ExpiresAt)
	})

	t.Run("keeps caller-set timestamps", func(t *testing.T) {
		created := now.Add(-time.Hour)
		expires := now.Add(time.Hour)
		m := &Memory{
			CreatedAt: created,
			UpdatedAt: created,
			ExpiresAt: expires,
		}
		StampNew(m, now)

		assert.Equal(t, created, m.CreatedAt)
		assert.Equal(t, created, m.UpdatedAt)
		assert.Equal(t, expires, m.ExpiresAt)
	})

	t.Run("expiry derived from created at", func(t *testing.T) {
		created := now.Add(-48 * time.Hour)
		m := &Memory{
			CreatedAt:   created,
			Interaction: InteractionData{Retention: RetentionPermanent},
		}
		StampNew(m, now)

		assert.Equal(t, created.Add(365*24*time.Hour), m.ExpiresAt)
	})
}
