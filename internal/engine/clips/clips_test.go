package clips

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSharer struct {
	available bool
	err       error
	calls     []shareCall
}

type shareCall struct{ path, mime, title string }

func (r *recordingSharer) Available() bool { return r.available }

func (r *recordingSharer) Share(_ context.Context, path, mime, title string) error {
	r.calls = append(r.calls, shareCall{path, mime, title})
	return r.err
}

func TestDownloadClipShares(t *testing.T) {
	dir := t.TempDir()
	sh := &recordingSharer{available: true}
	e := NewExporter(dir, sh)

	ok, path, err := e.DownloadClip(context.Background(), Options{
		VideoID: "aaaaaaaaaaa", Start: 12.5, End: 45, Title: "Best Moment! (Live)",
	})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "Best_Moment___Live__12.5-45.mp4"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Video clip: Best Moment! (Live)\nStart: 12.5s\nEnd: 45s", string(data))

	require.Len(t, sh.calls, 1)
	assert.Equal(t, shareCall{path, "video/mp4", "Share Best Moment! (Live)"}, sh.calls[0])
}

func TestDownloadClipWithoutSharer(t *testing.T) {
	e := NewExporter(filepath.Join(t.TempDir(), "sub"), nil)
	ok, path, err := e.DownloadClip(context.Background(), Options{VideoID: "v", Start: 0, End: 30, Title: "x"})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.FileExists(t, path)
}

func TestDownloadClipShareError(t *testing.T) {
	e := NewExporter(t.TempDir(), &recordingSharer{available: true, err: errors.New("denied")})
	ok, path, err := e.DownloadClip(context.Background(), Options{Title: "x", End: 15})
	assert.Error(t, err)
	assert.False(t, ok)
	assert.NotEmpty(t, path)
}

func TestGenerateClipURL(t *testing.T) {
	assert.Equal(t, "https://www.youtube.com/watch?v=abc&t=42s", GenerateClipURL("abc", 42.9, 90))
	assert.Equal(t, "https://www.youtube.com/watch?v=abc&t=0s", GenerateClipURL("abc", 0, 30))
}

func TestExportClipMetadata(t *testing.T) {
	dir := t.TempDir()
	e := NewExporter(dir, nil)
	e.now = func() time.Time { return time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC) }

	path, err := e.ExportClipMetadata(context.Background(),
		Options{VideoID: "vid", Start: 10, End: 40, Title: "My Clip"}, "a summary")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "My_Clip_metadata.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  \"videoId\": \"vid\",")

	var got Metadata
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, Metadata{
		VideoID: "vid", StartTime: 10, EndTime: 40, Duration: 30,
		Title: "My Clip", Summary: "a summary", ExportedAt: "2026-03-01T10:30:00.000Z",
	}, got)
}

func TestExportClipMetadataShares(t *testing.T) {
	sh := &recordingSharer{available: true, err: errors.New("ignored")}
	e := NewExporter(t.TempDir(), sh)
	path, err := e.ExportClipMetadata(context.Background(), Options{VideoID: "v", Title: "t"}, "")
	require.NoError(t, err)
	require.Len(t, sh.calls, 1)
	assert.Equal(t, shareCall{path, "application/json", "Share Clip Metadata"}, sh.calls[0])
}

func TestOpenSharer(t *testing.T) {
	found := func(string) (string, error) { return "/usr/bin/x", nil }
	missing := func(string) (string, error) { return "", exec.ErrNotFound }

	assert.True(t, (&OpenSharer{goos: "linux", lookPath: found}).Available())
	assert.False(t, (&OpenSharer{goos: "linux", lookPath: missing}).Available())
	assert.False(t, (&OpenSharer{goos: "plan9", lookPath: found}).Available())

	var gotName string
	var gotArgs []string
	s := &OpenSharer{goos: "android", lookPath: found,
		command: func(ctx context.Context, name string, args ...string) *exec.Cmd {
			gotName, gotArgs = name, args
			return exec.CommandContext(ctx, "true")
		}}
	if _, err := exec.LookPath("true"); err != nil {
		t.Skip("true not on PATH")
	}
	require.NoError(t, s.Share(context.Background(), "/tmp/c.mp4", "video/mp4", "Share c"))
	assert.Equal(t, "am", gotName)
	assert.Equal(t, []string{"start", "-a", "android.intent.action.VIEW", "-d", "file:///tmp/c.mp4"}, gotArgs)
}
