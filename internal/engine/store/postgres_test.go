//go:build integration

package store

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatolykoptev/go_highlight/internal/engine"
)

func TestIntegration_PostgresRoundTrip(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	db, err := OpenPostgres(ctx, url)
	require.NoError(t, err)
	defer db.Close()

	id := uuid.NewString()
	sess := sampleSession(id)
	require.NoError(t, db.SaveSession(ctx, sess))
	require.NoError(t, db.SaveHighlights(ctx, id, "aaaaaaaaaaa", []engine.Highlight{
		{ID: "aaaaaaaaaaa-0", VideoID: "aaaaaaaaaaa", StartTime: 1, EndTime: 20, Duration: 19,
			Type: engine.HighlightAction, Confidence: 0.5, Keywords: []string{"k"}},
	}))
	require.NoError(t, db.FinishSession(ctx, id, engine.SessionCompleted, engine.ViewHighlights))

	got, err := db.GetSession(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, engine.SessionCompleted, got.State)
	require.Len(t, got.Videos, 2)
	require.Len(t, got.Highlights, 1)
	assert.Equal(t, []string{"k"}, got.Highlights[0].Keywords)

	require.NoError(t, db.SetSecret(ctx, "it_"+id, "v"))
	v, err := db.GetSecret(ctx, "it_"+id)
	require.NoError(t, err)
	assert.Equal(t, "v", v)
}
