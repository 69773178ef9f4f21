// Package rotation implements the witness key rotation workflow: verify
// the current key, mint a new signing keypair, authorize it on chain and
// relaunch the local node signing with it.
package rotation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rsquared-project/witness-manager/internal/config"
	"github.com/rsquared-project/witness-manager/internal/node"
	"github.com/rsquared-project/witness-manager/internal/progress"
	"github.com/rsquared-project/witness-manager/internal/wallet"
)

// State is the orchestrator's position in the workflow. Transitions are
// strictly forward; any state can jump to StateFailed.
type State string

const (
	StateIdle          State = "idle"
	StateVerifyingKey  State = "verifying_key"
	StateGeneratingKey State = "generating_key"
	StateAuthorizing   State = "authorizing"
	StateRelaunching   State = "relaunching"
	StateSucceeded     State = "succeeded"
	StateFailed        State = "failed"
)

// FailureReason classifies why a rotation failed.
type FailureReason string

const (
	ReasonNone            FailureReason = ""
	ReasonConfiguration   FailureReason = "configuration_error"
	ReasonNodeNotReady    FailureReason = "node_not_ready"
	ReasonInvalidKey      FailureReason = "invalid_key"
	ReasonWitnessNotFound FailureReason = "witness_not_found"
	ReasonGeneration      FailureReason = "generation_error"
	ReasonTxRejected      FailureReason = "tx_rejected"
	ReasonRelaunch        FailureReason = "relaunch_error"
)

// Request carries the inputs for one rotation run.
type Request struct {
	AccountName string
	URL         string
	// WIF is the currently active signing key. Never logged.
	WIF string
}

// Result reports the outcome. Keys are populated on success and on
// relaunch failure: by then the chain already accepted the new key, so
// losing it would strand the witness.
type Result struct {
	State     State
	Reason    FailureReason
	WitnessID string
	Keys      wallet.Keypair
	Err       error
}

// Succeeded reports whether the full workflow completed.
func (r Result) Succeeded() bool { return r.State == StateSucceeded }

// KeysIssued reports whether new keys exist and must be preserved even
// though the run may have failed.
func (r Result) KeysIssued() bool { return r.Keys.PublicKey != "" }

// WalletOps is the wallet surface the orchestrator needs.
type WalletOps interface {
	VerifyKey(ctx context.Context, account, wif string) (string, error)
	GenerateKeypair(ctx context.Context) (wallet.Keypair, error)
	Authorize(ctx context.Context, account, url, wif, newPublicKey string) error
}

// Orchestrator runs rotations. One orchestrator runs at most one
// rotation at a time; Run is not reentrant.
type Orchestrator struct {
	wallet WalletOps
	ctrl   node.Controller
	feed   *progress.Feed
	state  State

	// Readiness probing before the workflow touches the wallet.
	ReadyRetries int
	ReadyDelay   time.Duration
	SkipReady    bool
}

// New returns an orchestrator publishing to feed. feed may be nil, in
// which case a private one is created.
func New(w WalletOps, ctrl node.Controller, feed *progress.Feed) *Orchestrator {
	if feed == nil {
		feed = progress.NewFeed()
	}
	return &Orchestrator{
		wallet:       w,
		ctrl:         ctrl,
		feed:         feed,
		state:        StateIdle,
		ReadyRetries: 5,
		ReadyDelay:   5 * time.Second,
	}
}

// Feed exposes the progress feed for subscribers.
func (o *Orchestrator) Feed() *progress.Feed { return o.feed }

// State returns the current workflow state.
func (o *Orchestrator) State() State { return o.state }

func (o *Orchestrator) enter(s State, msg string) {
	o.state = s
	o.feed.Publish(msg)
}

func (o *Orchestrator) fail(reason FailureReason, err error, msg string) Result {
	o.state = StateFailed
	o.feed.Publish(msg)
	o.feed.Close(false)
	return Result{State: StateFailed, Reason: reason, Err: err}
}

// Run executes the full rotation workflow. It never retries a failed
// step; operators rerun the whole workflow after fixing the cause.
func (o *Orchestrator) Run(ctx context.Context, req Request) Result {
	if req.AccountName == "" || req.WIF == "" {
		return o.fail(ReasonConfiguration, errors.New("account name and WIF are required"),
			"Rotation aborted: incomplete configuration.")
	}

	if !o.SkipReady {
		o.feed.Publish("Checking that the node's RPC endpoint is ready...")
		if !o.ctrl.IsReady(ctx, o.ReadyRetries, o.ReadyDelay) {
			return o.fail(ReasonNodeNotReady, errors.New("node RPC did not become responsive"),
				"Node RPC did not become responsive, aborting rotation.")
		}
		o.feed.Publish("Node RPC is responsive.")
	}

	o.enter(StateVerifyingKey, fmt.Sprintf("Verifying WIF key and fetching witness id for %q...", req.AccountName))
	witnessID, err := o.wallet.VerifyKey(ctx, req.AccountName, req.WIF)
	if err != nil {
		switch {
		case errors.Is(err, wallet.ErrInvalidKey):
			return o.fail(ReasonInvalidKey, err, "The provided WIF key is invalid.")
		case errors.Is(err, wallet.ErrWitnessNotFound):
			return o.fail(ReasonWitnessNotFound, err, "Could not find a witness id in the node's output.")
		default:
			return o.fail(ReasonConfiguration, err, "Wallet invocation failed: "+err.Error())
		}
	}
	o.feed.Publish("Key is valid. Witness id resolved.")

	o.enter(StateGeneratingKey, "Generating new signing key pair...")
	keys, err := o.wallet.GenerateKeypair(ctx)
	if err != nil {
		return o.fail(ReasonGeneration, err, "Failed to generate a new key pair.")
	}
	o.feed.Publish("New key pair generated.")

	o.enter(StateAuthorizing, "Authorizing new key on the blockchain...")
	if err := o.wallet.Authorize(ctx, req.AccountName, req.URL, req.WIF, keys.PublicKey); err != nil {
		res := o.fail(ReasonTxRejected, err,
			"The blockchain rejected the key update transaction. "+
				"The WIF provided may not be the currently active signing key.")
		return res
	}
	o.feed.Publish("Transaction accepted by the blockchain.")

	o.enter(StateRelaunching, "Relaunching local witness node with the new signing key...")
	if err := o.relaunch(ctx, witnessID, keys); err != nil {
		o.state = StateFailed
		o.feed.Publish("Node relaunch failed: " + err.Error())
		o.feed.Publish("The new key IS active on chain; save it and relaunch the node manually.")
		o.feed.Close(false)
		return Result{State: StateFailed, Reason: ReasonRelaunch, WitnessID: witnessID, Keys: keys, Err: err}
	}

	o.state = StateSucceeded
	o.feed.Publish("Key rotation complete. The witness node is running with the new key.")
	o.feed.Close(true)
	return Result{State: StateSucceeded, WitnessID: witnessID, Keys: keys}
}

func (o *Orchestrator) relaunch(ctx context.Context, witnessID string, keys wallet.Keypair) error {
	if err := o.ctrl.Stop(ctx); err != nil {
		return fmt.Errorf("stop node: %w", err)
	}
	opts := node.StartOpts{
		Mode:          config.ModeWitness,
		WitnessID:     witnessID,
		PublicKey:     keys.PublicKey,
		PrivateKeyWIF: keys.PrivateKeyWIF,
	}
	if err := o.ctrl.Start(ctx, opts); err != nil {
		return fmt.Errorf("start node: %w", err)
	}
	return nil
}
