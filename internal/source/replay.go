package source

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"

	"github.com/rileyhilliard/vitals/internal/errors"
	"github.com/rileyhilliard/vitals/internal/logger"
)

// maxEventLine bounds a single recorded event line. Execution samples with
// deep stacks stay well below this.
const maxEventLine = 1 << 20

// ReplayStream re-delivers the events of a single recording file. Recordings
// are JSON lines, one event per line.
type ReplayStream struct {
	path      string
	log       logger.Logger
	mu        sync.Mutex
	file      *os.File
	closeOnce sync.Once
}

// NewReplayStream creates a replay stream for the given recording file.
func NewReplayStream(path string, log logger.Logger) *ReplayStream {
	return &ReplayStream{path: path, log: log}
}

// Live returns false: replays terminate instead of reconnecting.
func (s *ReplayStream) Live() bool { return false }

// Events opens the recording and starts delivery. The channel closes at end
// of file or when the stream is closed.
func (s *ReplayStream) Events(ctx context.Context) (<-chan Event, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConnect,
			"Could not open recording "+s.path,
			"Check the file exists and is readable")
	}
	s.mu.Lock()
	s.file = f
	s.mu.Unlock()

	ch := make(chan Event)
	go func() {
		defer close(ch)
		defer s.Close()
		deliverLines(ctx, f, ch, s.log)
	}()
	return ch, nil
}

// Close releases the recording file. Safe to call more than once; closing
// unblocks the delivery goroutine.
func (s *ReplayStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.file != nil {
			err = s.file.Close()
		}
	})
	return err
}

// deliverLines decodes JSON-line events from r onto ch until EOF, read
// error, or context cancellation. Malformed lines are skipped with a debug
// log; a corrupt byte must not kill a replay.
func deliverLines(ctx context.Context, r io.Reader, ch chan<- Event, log logger.Logger) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxEventLine)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var ev Event
		if err := json.Unmarshal(line, &ev); err != nil {
			log.Debug("skipping malformed event line: %v", err)
			continue
		}
		select {
		case ch <- ev:
		case <-ctx.Done():
			return
		}
	}
	if err := scanner.Err(); err != nil {
		log.Debug("event stream ended: %v", err)
	}
}
