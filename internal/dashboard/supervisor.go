package dashboard

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rileyhilliard/vitals/internal/config"
	"github.com/rileyhilliard/vitals/internal/errors"
	"github.com/rileyhilliard/vitals/internal/logger"
	"github.com/rileyhilliard/vitals/internal/report"
	"github.com/rileyhilliard/vitals/internal/source"
	"github.com/rileyhilliard/vitals/internal/ui"
)

// attemptsPerRound is how many connection attempts are made before the
// waiting message repeats.
const attemptsPerRound = 78

// Supervisor runs the connect/stream/reconnect loop for one target. Live
// sources are reconnected forever after a heartbeat timeout or stream end;
// recordings are replayed once and finish the run.
type Supervisor struct {
	log  logger.Logger
	out  io.Writer
	mode report.Mode

	timeout     time.Duration
	replaySpeed int

	// Injection points for tests.
	resolve  func(target string, log logger.Logger) (source.Stream, error)
	nap      func(d time.Duration)
	poll     time.Duration
	attempts int
}

// NewSupervisor creates a supervisor writing report blocks to out.
func NewSupervisor(settings *config.Settings, out io.Writer, log logger.Logger) *Supervisor {
	if log == nil {
		log = logger.Noop()
	}
	return &Supervisor{
		log:         log,
		out:         out,
		mode:        report.DetectMode(settings.Scroll),
		timeout:     time.Duration(settings.Timeout) * time.Second,
		replaySpeed: settings.ReplaySpeed,
		resolve:     source.Resolve,
		nap:         time.Sleep,
		poll:        time.Second,
		attempts:    attemptsPerRound,
	}
}

// Run streams the target until a recording is exhausted or the context is
// canceled. Live targets never return success; they reconnect until canceled
// or a non-retryable error surfaces.
func (s *Supervisor) Run(ctx context.Context, target string) error {
	for {
		finished, err := s.round(ctx, target)
		if err != nil {
			return err
		}
		if finished {
			fmt.Fprintln(s.out, ui.StyleStatus.Render(ui.SymbolComplete+" Replay finished"))
			return nil
		}
	}
}

// round makes one batch of connection attempts, printing a dot per failed
// attempt. It reports finished=true when a recording was fully replayed.
func (s *Supervisor) round(ctx context.Context, target string) (bool, error) {
	for attempt := 0; attempt < s.attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		finished, err := s.streamOnce(ctx, target)
		if err == nil {
			if finished {
				return true, nil
			}
			// A live connection was established and then lost. Start a
			// fresh round immediately.
			fmt.Fprintln(s.out, ui.StyleStatus.Render("Time out! Retrying."))
			return false, nil
		}
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		if !errors.Retryable(err) {
			return false, err
		}
		s.log.Debug("connection attempt %d failed: %v", attempt+1, err)
		fmt.Fprint(s.out, ui.SymbolRetry)
		s.nap(s.poll)
	}
	fmt.Fprintln(s.out)
	fmt.Fprintln(s.out, ui.StyleMuted.Render("Could not connect to "+target+", retrying"))
	return false, nil
}

// streamOnce resolves the target and consumes one connection. A fresh
// dashboard and screen are built per connection so a reconnect starts from
// an empty report.
func (s *Supervisor) streamOnce(ctx context.Context, target string) (bool, error) {
	stream, err := s.resolve(target, s.log)
	if err != nil {
		return false, err
	}
	var once sync.Once
	closeStream := func() {
		once.Do(func() {
			if err := stream.Close(); err != nil {
				s.log.Debug("stream close: %v", err)
			}
		})
	}
	defer closeStream()

	events, err := stream.Events(ctx)
	if err != nil {
		return false, err
	}

	board := New(s.log)
	screen := report.NewScreen(s.out, s.mode)

	if !stream.Live() {
		return true, s.replay(ctx, events, board, screen)
	}
	return false, s.watch(ctx, events, board, screen, closeStream)
}

// replay consumes a recording synchronously, rendering at every flush and
// napping between flushes to pace the playback.
func (s *Supervisor) replay(ctx context.Context, events <-chan source.Event, board *Dashboard, screen *report.Screen) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			board.Handle(ev)
			if ev.Kind == source.KindFlush {
				s.render(board, screen)
				if s.replaySpeed > 0 {
					s.nap(time.Second / time.Duration(s.replaySpeed))
				}
			}
		}
	}
}

// expired reports whether a heartbeat age has reached the configured
// timeout. Reaching the timeout exactly counts as quiet.
func (s *Supervisor) expired(age time.Duration) bool {
	return age >= s.timeout
}

// watch consumes a live connection. Events are dispatched on one goroutine;
// this goroutine polls the flush heartbeat and drops the connection when the
// target goes quiet for the timeout or longer.
func (s *Supervisor) watch(ctx context.Context, events <-chan source.Event, board *Dashboard, screen *report.Screen, closeStream func()) error {
	var heartbeat atomic.Int64
	heartbeat.Store(time.Now().UnixNano())

	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range events {
			board.Handle(ev)
			if ev.Kind == source.KindFlush {
				s.render(board, screen)
				heartbeat.Store(time.Now().UnixNano())
			}
		}
	}()

	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			closeStream()
			<-done
			return ctx.Err()
		case <-done:
			return nil
		case <-ticker.C:
			age := time.Since(time.Unix(0, heartbeat.Load()))
			if s.expired(age) {
				s.log.Debug("no flush for %s, dropping connection", age.Round(time.Millisecond))
				closeStream()
				<-done
				return nil
			}
		}
	}
}

// render prints the current report block. A failed render skips the pass;
// the previous block stays on screen.
func (s *Supervisor) render(board *Dashboard, screen *report.Screen) {
	block, err := board.Render()
	if err != nil {
		s.log.Error("render failed: %v", err)
		return
	}
	if err := screen.Print(block); err != nil {
		s.log.Debug("print failed: %v", err)
	}
}
