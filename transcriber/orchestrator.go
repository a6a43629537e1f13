package transcriber

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"voxnote/log"
	"voxnote/process"
)

// ErrBusy rejects a submission while a previous one is still in flight.
var ErrBusy = errors.New("transcription already in flight")

// Outcome is what a submission resolves to. Seq echoes the request's
// sequence number so a consumer can discard results from a cleared
// session.
type Outcome struct {
	Seq     uint64
	Result  *Result
	Payload *process.Payload
	Elapsed time.Duration
	Err     error
}

// Request carries one session's audio to submit. Chain holds the
// primary attempt first, the optional fallback second.
type Request struct {
	Seq         uint64
	Segments    [][]byte
	Instruction string
	Chain       []Attempt
}

type Options struct {
	Timeout    time.Duration // per attempt
	Failover   bool
	Preprocess process.Config
	NewClient  func(Attempt) (Client, error) // nil uses NewClient
}

// Orchestrator runs at most one submission at a time. Preprocessing and
// network attempts happen on its own goroutine; outcomes arrive on
// Results. Cancel aborts the in-flight submission and suppresses its
// outcome.
type Orchestrator struct {
	newClient  func(Attempt) (Client, error)
	timeout    time.Duration
	failover   bool
	preprocess process.Config

	busy    atomic.Bool
	results chan Outcome

	mu     sync.Mutex
	cancel context.CancelFunc

	clientMu sync.Mutex
	clients  map[Attempt]Client
}

func New(opts Options) *Orchestrator {
	newFn := opts.NewClient
	if newFn == nil {
		newFn = NewClient
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Orchestrator{
		newClient:  newFn,
		timeout:    timeout,
		failover:   opts.Failover,
		preprocess: opts.Preprocess,
		results:    make(chan Outcome, 1),
		clients:    make(map[Attempt]Client),
	}
}

// client returns the cached client for an attempt, building it on
// first use. One client per attempt lives for the orchestrator's
// lifetime so its transport keeps connections warm across submissions.
func (o *Orchestrator) client(att Attempt) (Client, error) {
	o.clientMu.Lock()
	defer o.clientMu.Unlock()
	if c, ok := o.clients[att]; ok {
		return c, nil
	}
	c, err := o.newClient(att)
	if err != nil {
		return nil, err
	}
	o.clients[att] = c
	return c, nil
}

// Prime builds the chain's clients ahead of the first submission and
// warms their connections in the background, keeping the TLS handshake
// out of the first transcription wait.
func (o *Orchestrator) Prime(chain []Attempt) {
	for _, att := range chain {
		c, err := o.client(att)
		if err != nil {
			log.Warnf("prime %s: %v", att.Provider, err)
			continue
		}
		if w, ok := c.(interface{ Warm() time.Duration }); ok {
			go w.Warm()
		}
	}
}

func (o *Orchestrator) Results() <-chan Outcome { return o.results }

func (o *Orchestrator) Busy() bool { return o.busy.Load() }

// Submit starts a submission. Returns ErrBusy without touching the
// in-flight one if a previous submission has not resolved yet.
func (o *Orchestrator) Submit(req Request) error {
	if len(req.Chain) == 0 {
		return errors.New("submit: empty attempt chain")
	}
	if !o.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	ctx, cancel := context.WithCancel(context.Background())
	o.setCancel(cancel)
	go o.run(ctx, req)
	return nil
}

// Cancel aborts the in-flight submission, if any. Its outcome is
// dropped rather than delivered.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cancel != nil {
		o.cancel()
	}
}

func (o *Orchestrator) setCancel(fn context.CancelFunc) {
	o.mu.Lock()
	o.cancel = fn
	o.mu.Unlock()
}

func (o *Orchestrator) run(ctx context.Context, req Request) {
	defer func() {
		o.setCancel(nil)
		o.busy.Store(false)
	}()
	start := time.Now()

	payload, err := process.Run(req.Segments, o.preprocess)
	if err != nil {
		o.deliver(ctx, Outcome{Seq: req.Seq, Err: err, Elapsed: time.Since(start)})
		return
	}

	chain := req.Chain
	if !o.failover {
		chain = chain[:1]
	} else if len(chain) > 2 {
		chain = chain[:2]
	}

	var lastErr error
	for i, att := range chain {
		if ctx.Err() != nil {
			return
		}
		log.Attempt(att.Provider, att.Model, i > 0)
		res, err := o.attempt(ctx, att, payload.WAV, req.Instruction)
		if err == nil {
			o.deliver(ctx, Outcome{
				Seq:     req.Seq,
				Result:  res,
				Payload: payload,
				Elapsed: time.Since(start),
			})
			return
		}
		if ctx.Err() != nil {
			return
		}
		log.Warnf("attempt failed: %v", err)
		lastErr = err
	}

	o.deliver(ctx, Outcome{Seq: req.Seq, Payload: payload, Err: lastErr, Elapsed: time.Since(start)})
}

func (o *Orchestrator) attempt(ctx context.Context, att Attempt, wav []byte, instruction string) (*Result, error) {
	client, err := o.client(att)
	if err != nil {
		return nil, &Failure{Kind: FailureAuth, Provider: att.Provider, Model: att.Model, Err: err}
	}
	actx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	return client.Transcribe(actx, wav, instruction)
}

func (o *Orchestrator) deliver(ctx context.Context, out Outcome) {
	select {
	case <-ctx.Done():
	case o.results <- out:
	}
}
