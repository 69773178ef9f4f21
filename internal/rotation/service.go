package rotation

import (
	"context"
	"errors"
	"sync"

	"github.com/rsquared-project/witness-manager/internal/node"
	"github.com/rsquared-project/witness-manager/internal/progress"
)

// ErrRunActive is returned when a rotation is requested while another
// one is still in flight.
var ErrRunActive = errors.New("a rotation is already running")

// Service serializes rotation runs: at most one active run, with the
// current feed and the last result available to observers. The web
// server and the CLI share this wrapper.
type Service struct {
	newWallet func() WalletOps
	ctrl      node.Controller

	// PreFlight, when set, runs before the rotation itself with the
	// run's feed: node launch, sync wait, readiness. A preflight error
	// fails the run without touching the wallet.
	PreFlight func(ctx context.Context, feed *progress.Feed) error
	// ConfigureOrch tweaks each run's orchestrator before it starts.
	ConfigureOrch func(*Orchestrator)

	mu      sync.Mutex
	active  bool
	current *Orchestrator
	last    *Result
}

// NewService wires a service. newWallet is called once per run so each
// run gets a fresh wallet client.
func NewService(newWallet func() WalletOps, ctrl node.Controller) *Service {
	return &Service{newWallet: newWallet, ctrl: ctrl}
}

// Start launches a rotation in the background. It fails fast with
// ErrRunActive when one is already running.
func (s *Service) Start(ctx context.Context, req Request) (*progress.Feed, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		return nil, ErrRunActive
	}
	orch := New(s.newWallet(), s.ctrl, nil)
	if s.ConfigureOrch != nil {
		s.ConfigureOrch(orch)
	}
	s.active = true
	s.current = orch

	go func() {
		res := s.execute(ctx, orch, req)
		s.mu.Lock()
		s.active = false
		s.last = &res
		s.mu.Unlock()
	}()
	return orch.Feed(), nil
}

func (s *Service) execute(ctx context.Context, orch *Orchestrator, req Request) Result {
	if s.PreFlight != nil {
		if err := s.PreFlight(ctx, orch.Feed()); err != nil {
			orch.Feed().Publish("Preflight failed: " + err.Error())
			orch.Feed().Close(false)
			return Result{State: StateFailed, Reason: ReasonNodeNotReady, Err: err}
		}
	}
	return orch.Run(ctx, req)
}

// Run executes a rotation synchronously, holding the single-run slot for
// its duration.
func (s *Service) Run(ctx context.Context, req Request) (Result, error) {
	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		return Result{}, ErrRunActive
	}
	orch := New(s.newWallet(), s.ctrl, nil)
	if s.ConfigureOrch != nil {
		s.ConfigureOrch(orch)
	}
	s.active = true
	s.current = orch
	s.mu.Unlock()

	res := s.execute(ctx, orch, req)

	s.mu.Lock()
	s.active = false
	s.last = &res
	s.mu.Unlock()
	return res, nil
}

// Active reports whether a run is in flight.
func (s *Service) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Feed returns the current (or most recent) run's feed, or nil if no
// run has ever started.
func (s *Service) Feed() *progress.Feed {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	return s.current.Feed()
}

// Last returns the most recent completed result, or nil.
func (s *Service) Last() *Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}
