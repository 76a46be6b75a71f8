package sandbox

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultTimeout bounds a single script execution.
const DefaultTimeout = 2 * time.Second

// ErrTimeout reports a script that did not return in time. The instance is
// discarded whole; there is no finer-grained cancellation.
var ErrTimeout = errors.New("sandbox: script execution timed out")

// Host owns sandbox instances and is the only party that ever sees their
// results. Execution is serialized: one script at a time per host, matching
// the engine's single-writer model.
type Host struct {
	mu      sync.Mutex
	inst    *instance
	state   string
	timeout time.Duration
	log     *zap.Logger
}

// NewHost returns a host with no live instance; the first execution
// initializes one lazily.
func NewHost(log *zap.Logger, timeout time.Duration) *Host {
	if log == nil {
		log = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Host{state: StateUninitialized, timeout: timeout, log: log}
}

// State reports the lifecycle state of the current instance.
func (h *Host) State() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Close discards the current instance, if any.
func (h *Host) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.discardLocked()
}

func (h *Host) discardLocked() {
	if h.inst != nil {
		h.inst.close()
		h.inst = nil
	}
	h.state = StateUninitialized
}

// Exec validates and runs plain script text, returning harvested operations
// and logs. On any failure the result carries zero operations: "script
// failed" always means "no state changes occurred".
func (h *Host) Exec(ctx context.Context, code string) (*ExecResult, error) {
	if err := ValidateScript(code); err != nil {
		return &ExecResult{}, err
	}
	return h.send(ctx, Request{Type: ReqEval, ID: uuid.NewString(), Code: code})
}

// ExecModule runs an entry module against a module map. Every module source
// is statically validated before the VM sees any of them.
func (h *Host) ExecModule(ctx context.Context, entry string, modules map[string]string) (*ExecResult, error) {
	for name, src := range modules {
		if err := ValidateModule(src); err != nil {
			return &ExecResult{}, fmt.Errorf("module %s: %w", name, err)
		}
	}
	if _, ok := modules[entry]; !ok {
		return &ExecResult{}, fmt.Errorf("unknown entry module: %s", entry)
	}
	return h.send(ctx, Request{
		Type: ReqEvalModule, ID: uuid.NewString(), Entry: entry, Modules: modules,
	})
}

func (h *Host) send(ctx context.Context, req Request) (*ExecResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.ensureInstanceLocked(); err != nil {
		return &ExecResult{}, err
	}

	execCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	h.state = StateExecuting
	respCh := make(chan Response, 1)
	h.inst.reqCh <- instanceReq{req: req, ctx: execCtx, resp: respCh}

	select {
	case resp := <-respCh:
		if resp.Type == RespError {
			h.state = StateIdle
			return &ExecResult{Logs: resp.Logs}, errors.New(resp.Error)
		}
		h.state = StateIdle
		return resp.Result, nil
	case <-execCtx.Done():
		// The VM aborts via its context; the instance is unusable mid-run,
		// so the whole thing is discarded. Host state stays intact because
		// the sandbox never held a reference to it.
		h.log.Warn("sandbox execution timed out, discarding instance",
			zap.String("id", req.ID))
		go drain(respCh)
		h.discardLocked()
		return &ExecResult{}, ErrTimeout
	}
}

func (h *Host) ensureInstanceLocked() error {
	if h.inst != nil {
		return nil
	}
	h.state = StateInitializing
	inst, err := newInstance(h.log)
	if err != nil {
		h.state = StateError
		return fmt.Errorf("sandbox init: %w", err)
	}

	// Handshake: the instance answers init with ready before any eval.
	respCh := make(chan Response, 1)
	inst.reqCh <- instanceReq{req: Request{Type: ReqInit}, ctx: context.Background(), resp: respCh}
	resp := <-respCh
	if resp.Type != RespReady {
		inst.close()
		h.state = StateError
		return fmt.Errorf("sandbox init: unexpected response %q", resp.Type)
	}

	h.inst = inst
	h.state = StateReady
	return nil
}

// drain lets a timed-out worker deliver its late response and shut down.
func drain(ch chan Response) {
	<-ch
}
