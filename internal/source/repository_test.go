package source

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/vitals/internal/errors"
	"github.com/rileyhilliard/vitals/internal/logger"
)

func TestRepositoryStreamReplaysSegmentsLexically(t *testing.T) {
	dir := t.TempDir()
	// Written out of order on purpose; replay order is by filename.
	writeRecording(t, dir, "chunk-2.vrec", `{"kind":"OldGC"}`)
	writeRecording(t, dir, "chunk-1.vrec", `{"kind":"YoungGC"}`)
	writeRecording(t, dir, "notes.txt", `ignored`)

	s := NewRepositoryStream(dir, logger.Noop())
	assert.True(t, s.Live(), "a repository backs a running process and should reconnect")

	ch, err := s.Events(context.Background())
	require.NoError(t, err)

	events := collectEvents(t, ch)
	require.Len(t, events, 2)
	assert.Equal(t, KindYoungGC, events[0].Kind)
	assert.Equal(t, KindOldGC, events[1].Kind)
}

func TestRepositoryStreamLogsSegmentList(t *testing.T) {
	dir := t.TempDir()
	writeRecording(t, dir, "chunk-1.vrec", `{"kind":"YoungGC"}`)
	writeRecording(t, dir, "chunk-2.vrec", `{"kind":"OldGC"}`)

	log := logger.NewBufferLogger()
	s := NewRepositoryStream(dir, log)
	ch, err := s.Events(context.Background())
	require.NoError(t, err)
	collectEvents(t, ch)

	logged := false
	for _, m := range log.Messages {
		if strings.Contains(m.Message, "chunk-1.vrec, chunk-2.vrec") {
			logged = true
		}
	}
	assert.True(t, logged, "the replayed segments are listed in the debug log")
}

func TestRepositoryStreamHonorsManifestOrder(t *testing.T) {
	dir := t.TempDir()
	writeRecording(t, dir, "a.vrec", `{"kind":"YoungGC"}`)
	writeRecording(t, dir, "b.vrec", `{"kind":"OldGC"}`)
	manifest := "segments:\n  - b.vrec\n  - a.vrec\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ManifestFileName), []byte(manifest), 0o644))

	s := NewRepositoryStream(dir, logger.Noop())
	ch, err := s.Events(context.Background())
	require.NoError(t, err)

	events := collectEvents(t, ch)
	require.Len(t, events, 2)
	assert.Equal(t, KindOldGC, events[0].Kind, "the manifest overrides filename order")
	assert.Equal(t, KindYoungGC, events[1].Kind)
}

func TestRepositoryStreamInvalidManifest(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ManifestFileName), []byte("segments: [unclosed"), 0o644))

	s := NewRepositoryStream(dir, logger.Noop())
	_, err := s.Events(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConnect))
}

func TestRepositoryStreamEmptyDirectory(t *testing.T) {
	s := NewRepositoryStream(t.TempDir(), logger.Noop())

	_, err := s.Events(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConnect))
}

func TestRepositoryStreamSkipsUnreadableSegment(t *testing.T) {
	dir := t.TempDir()
	writeRecording(t, dir, "a.vrec", `{"kind":"Flush"}`)
	manifest := "segments:\n  - missing.vrec\n  - a.vrec\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ManifestFileName), []byte(manifest), 0o644))

	log := logger.NewBufferLogger()
	s := NewRepositoryStream(dir, log)
	ch, err := s.Events(context.Background())
	require.NoError(t, err)

	events := collectEvents(t, ch)
	require.Len(t, events, 1)
	assert.Equal(t, KindFlush, events[0].Kind)
}

func TestRepositoryStreamCloseIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	writeRecording(t, dir, "a.vrec", `{"kind":"Flush"}`)

	s := NewRepositoryStream(dir, logger.Noop())
	ch, err := s.Events(context.Background())
	require.NoError(t, err)
	collectEvents(t, ch)

	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close())
}
