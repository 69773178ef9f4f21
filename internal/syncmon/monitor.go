// Package syncmon watches the witness node catch up with the chain. Two
// strategies exist: streaming the node's log output (docker logs or a
// tailed native log file) and polling head_block_time over the wallet.
// Both declare the node synced once the head block is within the
// freshness window of wall-clock time.
package syncmon

import (
	"bufio"
	"context"
	"errors"
	"io"
	"regexp"
	"strings"
	"time"
)

// Window is how close to now the head block must be to count as synced.
const Window = 300 * time.Second

const (
	// Polling cadence and cap. Exhausting the attempts is a soft
	// timeout; rotation proceeds anyway.
	DefaultPollInterval = 60 * time.Second
	DefaultPollAttempts = 120

	blockTimeLayout = "2006-01-02T15:04:05"
)

// ErrSyncTimeout is returned when monitoring gives up without observing
// a synced node. Callers treat it as advisory, not fatal.
var ErrSyncTimeout = errors.New("sync monitoring timed out")

// ErrStreamEnded is returned when the log stream closes before the node
// reports being synced.
var ErrStreamEnded = errors.New("log stream ended before sync completed")

var (
	gotBlockRe = regexp.MustCompile(`handle_block.*Got block: #\d+.*time: (\S+)`)
)

// HeadTimer reports the chain head timestamp. The wallet client
// satisfies this.
type HeadTimer interface {
	HeadBlockTime(ctx context.Context) (time.Time, error)
}

// Monitor drives sync watching and reports progress through notify.
type Monitor struct {
	notify func(string)
	now    func() time.Time

	PollInterval time.Duration
	PollAttempts int
}

// New returns a monitor publishing progress lines through notify, which
// may be nil.
func New(notify func(string)) *Monitor {
	if notify == nil {
		notify = func(string) {}
	}
	return &Monitor{
		notify:       notify,
		now:          time.Now,
		PollInterval: DefaultPollInterval,
		PollAttempts: DefaultPollAttempts,
	}
}

// WatchStream consumes node log lines until one of the sync markers
// appears: an explicit "Done reindexing", or a handled block whose
// timestamp is inside the freshness window. Only reindex and block
// lines are forwarded to the progress feed; the node is chatty and the
// rest is noise.
func (m *Monitor) WatchStream(ctx context.Context, r io.Reader) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- sc.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					if err != nil {
						return err
					}
				default:
				}
				return ErrStreamEnded
			}
			if synced := m.handleLine(line); synced {
				return nil
			}
		}
	}
}

// handleLine forwards interesting lines and reports whether the line
// proves the node is synced.
func (m *Monitor) handleLine(line string) bool {
	interesting := strings.Contains(line, "reindex") || strings.Contains(line, "Got block")
	if interesting {
		m.notify(strings.TrimSpace(line))
	}
	if strings.Contains(line, "Done reindexing") {
		m.notify("Reindexing complete. Node is synced.")
		return true
	}
	if mt := gotBlockRe.FindStringSubmatch(line); mt != nil {
		ts, err := time.Parse(blockTimeLayout, strings.TrimRight(mt[1], ","))
		if err != nil {
			return false
		}
		diff := m.now().UTC().Sub(ts.UTC())
		if diff < 0 {
			diff = -diff
		}
		if diff < Window {
			m.notify("Node is synced. Latest block time: " + mt[1])
			return true
		}
	}
	return false
}

// Poll queries head_block_time until the node is inside the freshness
// window or the attempt budget is spent. RPC errors are tolerated; a
// node mid-replay refuses connections for a long time.
func (m *Monitor) Poll(ctx context.Context, ht HeadTimer) error {
	for attempt := 1; attempt <= m.PollAttempts; attempt++ {
		bt, err := ht.HeadBlockTime(ctx)
		if err == nil {
			diff := m.now().UTC().Sub(bt.UTC())
			if diff < 0 {
				diff = -diff
			}
			m.notify("Latest block time: " + bt.Format(blockTimeLayout) + " (behind " + diff.Round(time.Second).String() + ")")
			if diff < Window {
				m.notify("Node is synced.")
				return nil
			}
		} else {
			m.notify("Node RPC not answering yet, still waiting...")
		}
		if attempt == m.PollAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.PollInterval):
		}
	}
	m.notify("Sync monitoring timed out, continuing anyway.")
	return ErrSyncTimeout
}
