package source

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/rileyhilliard/vitals/internal/errors"
	"github.com/rileyhilliard/vitals/internal/logger"
	"github.com/rileyhilliard/vitals/internal/util"
)

// ManifestFileName is the optional segment manifest inside a repository.
const ManifestFileName = "manifest.yaml"

// SegmentSuffix is the recording segment file extension.
const SegmentSuffix = ".vrec"

// manifest fixes the segment replay order for a repository. Without one,
// segments replay in lexical filename order.
type manifest struct {
	Segments []string `yaml:"segments"`
}

// RepositoryStream replays the chronological capture segments of a
// repository directory as one connection.
type RepositoryStream struct {
	dir       string
	log       logger.Logger
	mu        sync.Mutex
	current   *os.File
	closed    bool
	closeOnce sync.Once
}

// NewRepositoryStream creates a stream over the repository directory.
func NewRepositoryStream(dir string, log logger.Logger) *RepositoryStream {
	return &RepositoryStream{dir: dir, log: log}
}

// Live returns true: a repository is fed by a running process, so an
// exhausted segment list means we should reconnect and pick up new data.
func (s *RepositoryStream) Live() bool { return true }

// Events starts delivery over all segments in order. The channel closes
// after the final segment.
func (s *RepositoryStream) Events(ctx context.Context) (<-chan Event, error) {
	segments, err := s.segments()
	if err != nil {
		return nil, err
	}
	if len(segments) == 0 {
		return nil, errors.New(errors.ErrConnect,
			"No recording segments in "+s.dir,
			"Expected "+ManifestFileName+" or *"+SegmentSuffix+" files")
	}
	names := make([]string, 0, len(segments))
	for _, segment := range segments {
		names = append(names, filepath.Base(segment))
	}
	s.log.Debug("replaying segments: %s", util.JoinOrNone(names))

	ch := make(chan Event)
	go func() {
		defer close(ch)
		for _, segment := range segments {
			if s.isClosed() || ctx.Err() != nil {
				return
			}
			f, err := os.Open(segment)
			if err != nil {
				s.log.Debug("skipping unreadable segment %s: %v", segment, err)
				continue
			}
			s.setCurrent(f)
			deliverLines(ctx, f, ch, s.log)
			s.setCurrent(nil)
			f.Close()
		}
	}()
	return ch, nil
}

// Close stops delivery after the in-flight segment read. Idempotent.
func (s *RepositoryStream) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.closed = true
		if s.current != nil {
			s.current.Close()
			s.current = nil
		}
	})
	return nil
}

func (s *RepositoryStream) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *RepositoryStream) setCurrent(f *os.File) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = f
}

// segments resolves the ordered segment paths: the manifest when present,
// otherwise every *.vrec file in lexical order.
func (s *RepositoryStream) segments() ([]string, error) {
	manifestPath := filepath.Join(s.dir, ManifestFileName)
	if data, err := os.ReadFile(manifestPath); err == nil {
		var m manifest
		if err := yaml.Unmarshal(data, &m); err != nil {
			return nil, errors.WrapWithCode(err, errors.ErrConnect,
				"Invalid repository manifest "+manifestPath,
				"Check the YAML syntax, or remove the manifest to use filename order")
		}
		paths := make([]string, 0, len(m.Segments))
		for _, name := range m.Segments {
			paths = append(paths, filepath.Join(s.dir, name))
		}
		return paths, nil
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConnect,
			"Could not read repository "+s.dir,
			"Check the directory exists and is readable")
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != SegmentSuffix {
			continue
		}
		paths = append(paths, filepath.Join(s.dir, entry.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}
