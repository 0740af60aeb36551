package source

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/vitals/internal/errors"
	"github.com/rileyhilliard/vitals/internal/logger"
)

func TestResolveEmptyTarget(t *testing.T) {
	_, err := Resolve("", logger.Noop())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
}

func TestResolveSelf(t *testing.T) {
	s, err := Resolve("self", logger.Noop())
	require.NoError(t, err)
	defer s.Close()

	assert.IsType(t, &SelfStream{}, s)
	assert.True(t, s.Live())
}

func TestResolveFile(t *testing.T) {
	path := writeRecording(t, t.TempDir(), "run.vrec", `{"kind":"Flush"}`)

	s, err := Resolve(path, logger.Noop())
	require.NoError(t, err)
	defer s.Close()

	assert.IsType(t, &ReplayStream{}, s)
	assert.False(t, s.Live())
}

func TestResolveDirectory(t *testing.T) {
	dir := t.TempDir()
	writeRecording(t, dir, "a.vrec", `{"kind":"Flush"}`)

	s, err := Resolve(dir, logger.Noop())
	require.NoError(t, err)
	defer s.Close()

	assert.IsType(t, &RepositoryStream{}, s)
	assert.True(t, s.Live(), "repositories reconnect like any other live source")
}

func TestResolveHostPort(t *testing.T) {
	s, err := Resolve("localhost:9404", logger.Noop())
	require.NoError(t, err)
	defer s.Close()

	assert.IsType(t, &NetworkStream{}, s)
	assert.True(t, s.Live())
}

func TestResolveUnknownTarget(t *testing.T) {
	_, err := Resolve("no-such-process-zzz", logger.Noop())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrResolve))
}

func TestResolveExistingPathWinsOverHostPort(t *testing.T) {
	// A file whose name parses as host:port still resolves as a file.
	dir := t.TempDir()
	path := writeRecording(t, dir, "localhost:1234", `{"kind":"Flush"}`)

	s, err := Resolve(path, logger.Noop())
	require.NoError(t, err)
	defer s.Close()

	assert.IsType(t, &ReplayStream{}, s)
}

func TestRepositoryDirPicksNewestSubdirectory(t *testing.T) {
	root := t.TempDir()
	older := filepath.Join(root, "2026_08_29_10_00_00_1")
	newer := filepath.Join(root, "2026_08_29_11_00_00_1")
	require.NoError(t, os.Mkdir(older, 0o755))
	require.NoError(t, os.Mkdir(newer, 0o755))

	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(older, old, old))

	assert.Equal(t, newer, repositoryDir(root))
}

func TestRepositoryDirWithoutSubdirectories(t *testing.T) {
	root := t.TempDir()
	writeRecording(t, root, "a.vrec", `{"kind":"Flush"}`)

	assert.Equal(t, root, repositoryDir(root))
}

func TestProcessString(t *testing.T) {
	plain := Process{PID: 42, Name: "worker"}
	assert.Equal(t, "42          worker", plain.String())

	rec := Process{PID: 4711, Name: "petclinic", Repository: "/tmp/vitals-4711"}
	assert.Equal(t, "4711  [REC] petclinic", rec.String())
}

func TestFindRepositoryNoMatch(t *testing.T) {
	_, err := FindRepository("definitely-not-a-process-name-xyz")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrResolve))
	assert.Contains(t, err.Error(), "Could not open")
}
