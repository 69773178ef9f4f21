package syncmon

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func fixedNow() time.Time {
	return time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
}

func newTestMonitor(notes *[]string) *Monitor {
	m := New(func(s string) { *notes = append(*notes, s) })
	m.now = fixedNow
	m.PollInterval = time.Millisecond
	return m
}

func TestWatchStreamDoneReindexing(t *testing.T) {
	var notes []string
	m := newTestMonitor(&notes)

	in := strings.NewReader(strings.Join([]string{
		"2026-08-25T11:00:00 p2p:listener accepted connection",
		"1234567ms th_a  object_database.cpp:100 reindexing chain state",
		"1234568ms th_a  object_database.cpp:120 Done reindexing, elapsed time: 120s",
	}, "\n"))

	if err := m.WatchStream(context.Background(), in); err != nil {
		t.Fatalf("watch: %v", err)
	}
	joined := strings.Join(notes, "\n")
	if !strings.Contains(joined, "Reindexing complete") {
		t.Fatalf("missing completion note:\n%s", joined)
	}
	if strings.Contains(joined, "accepted connection") {
		t.Fatalf("noise forwarded:\n%s", joined)
	}
}

func TestWatchStreamFreshBlock(t *testing.T) {
	var notes []string
	m := newTestMonitor(&notes)

	stale := "1ms th_a application.cpp:512 handle_block ] Got block: #100 time: 2026-08-20T00:00:00 latency: 5 ms"
	fresh := "2ms th_a application.cpp:512 handle_block ] Got block: #200 time: 2026-08-25T11:58:30 latency: 5 ms"

	err := m.WatchStream(context.Background(), strings.NewReader(stale+"\n"+fresh+"\n"))
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	joined := strings.Join(notes, "\n")
	if !strings.Contains(joined, "Node is synced") {
		t.Fatalf("missing synced note:\n%s", joined)
	}
}

func TestWatchStreamSkipsMalformedBlockTime(t *testing.T) {
	var notes []string
	m := newTestMonitor(&notes)

	garbled := "1ms th_a application.cpp:512 handle_block ] Got block: #100 time: not-a-date latency: 5 ms"
	fresh := "2ms th_a application.cpp:512 handle_block ] Got block: #200 time: 2026-08-25T11:58:30 latency: 5 ms"

	// A block line whose timestamp cannot be parsed is skipped, not fatal.
	err := m.WatchStream(context.Background(), strings.NewReader(garbled+"\n"+fresh+"\n"))
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	if !strings.Contains(strings.Join(notes, "\n"), "Node is synced") {
		t.Fatalf("missing synced note: %v", notes)
	}

	// A stream of only garbled timestamps never declares sync.
	notes = nil
	err = m.WatchStream(context.Background(), strings.NewReader(garbled+"\n"))
	if !errors.Is(err, ErrStreamEnded) {
		t.Fatalf("got %v, want ErrStreamEnded", err)
	}
}

func TestWatchStreamStaleBlockDoesNotFinish(t *testing.T) {
	var notes []string
	m := newTestMonitor(&notes)

	stale := "1ms th_a application.cpp:512 handle_block ] Got block: #100 time: 2026-08-20T00:00:00 latency: 5 ms"
	err := m.WatchStream(context.Background(), strings.NewReader(stale+"\n"))
	if !errors.Is(err, ErrStreamEnded) {
		t.Fatalf("got %v, want ErrStreamEnded", err)
	}
}

func TestWatchStreamContextCancel(t *testing.T) {
	m := New(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	pr, pw := newBlockedReader()
	defer pw()
	if err := m.WatchStream(ctx, pr); !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
}

// newBlockedReader returns a reader that never produces data and a
// release func.
func newBlockedReader() (interface{ Read([]byte) (int, error) }, func()) {
	ch := make(chan struct{})
	return blockedReader{ch}, func() { close(ch) }
}

type blockedReader struct{ ch chan struct{} }

func (b blockedReader) Read([]byte) (int, error) {
	<-b.ch
	return 0, fmt.Errorf("released")
}

type scriptedHeadTimer struct {
	times []time.Time
	errs  []error
	i     int
}

func (s *scriptedHeadTimer) HeadBlockTime(context.Context) (time.Time, error) {
	idx := s.i
	if idx >= len(s.times) {
		idx = len(s.times) - 1
	}
	s.i++
	if s.errs != nil && s.errs[idx] != nil {
		return time.Time{}, s.errs[idx]
	}
	return s.times[idx], nil
}

func TestPollSucceedsWhenInsideWindow(t *testing.T) {
	var notes []string
	m := newTestMonitor(&notes)

	ht := &scriptedHeadTimer{times: []time.Time{
		fixedNow().Add(-time.Hour),
		fixedNow().Add(-10 * time.Minute),
		fixedNow().Add(-time.Minute),
	}}
	if err := m.Poll(context.Background(), ht); err != nil {
		t.Fatalf("poll: %v", err)
	}
	if ht.i != 3 {
		t.Fatalf("probes = %d, want 3", ht.i)
	}
}

func TestPollToleratesRPCErrors(t *testing.T) {
	var notes []string
	m := newTestMonitor(&notes)

	ht := &scriptedHeadTimer{
		times: []time.Time{{}, fixedNow()},
		errs:  []error{errors.New("connection refused"), nil},
	}
	if err := m.Poll(context.Background(), ht); err != nil {
		t.Fatalf("poll: %v", err)
	}
}

func TestPollSoftTimeout(t *testing.T) {
	var notes []string
	m := newTestMonitor(&notes)
	m.PollAttempts = 4

	ht := &scriptedHeadTimer{times: []time.Time{fixedNow().Add(-24 * time.Hour)}}
	err := m.Poll(context.Background(), ht)
	if !errors.Is(err, ErrSyncTimeout) {
		t.Fatalf("got %v, want ErrSyncTimeout", err)
	}
	if ht.i != 4 {
		t.Fatalf("probes = %d, want 4", ht.i)
	}
	if !strings.Contains(strings.Join(notes, "\n"), "timed out") {
		t.Fatalf("missing timeout note: %v", notes)
	}
}
