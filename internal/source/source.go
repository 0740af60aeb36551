package source

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/rileyhilliard/vitals/internal/errors"
	"github.com/rileyhilliard/vitals/internal/logger"
)

// Stream is the feed the supervisor consumes. One Events call starts one
// connection: a single delivery goroutine sends events in arrival order and
// closes the channel at end of stream. Close is idempotent and unblocks the
// delivery goroutine promptly.
type Stream interface {
	Events(ctx context.Context) (<-chan Event, error)
	Close() error
	// Live reports whether the stream is a live source. Live sources are
	// reconnected after a timeout; only file replays are finite.
	Live() bool
}

// Resolve maps a source specifier to a stream. Precedence, first match wins:
// the literal "self" is the loopback source; an existing filesystem path is
// a repository (directory) or a replay file; a host:port pair is a network
// source; anything else is matched against running instrumented processes
// by pid or display-name suffix.
func Resolve(target string, log logger.Logger) (Stream, error) {
	if target == "" {
		return nil, errors.New(errors.ErrConfig,
			"No source specified",
			"Pass a pid, process name, host:port, recording file, or 'self'")
	}
	if log == nil {
		log = logger.Noop()
	}

	if target == "self" {
		return NewSelfStream(time.Second, log), nil
	}

	if info, err := os.Stat(target); err == nil {
		if info.IsDir() {
			return NewRepositoryStream(repositoryDir(target), log), nil
		}
		return NewReplayStream(target, log), nil
	}

	if host, port, err := net.SplitHostPort(target); err == nil && host != "" && port != "" {
		return NewNetworkStream(target, log), nil
	}

	repo, err := FindRepository(target)
	if err != nil {
		return nil, err
	}
	return NewRepositoryStream(repo, log), nil
}

// repositoryDir selects the directory to stream for a repository path: the
// most recently modified subdirectory when one exists, otherwise the
// directory itself.
func repositoryDir(path string) string {
	entries, err := os.ReadDir(path)
	if err != nil {
		return path
	}
	var latest string
	var latestMod time.Time
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if latest == "" || info.ModTime().After(latestMod) {
			latest = filepath.Join(path, entry.Name())
			latestMod = info.ModTime()
		}
	}
	if latest == "" {
		return path
	}
	return latest
}
