package htmlprint

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// Command actions.
const (
	ActionPrint    = "print"
	ActionDownload = "download"
)

// Acknowledgment statuses.
const (
	AckCompleted = "completed"
	AckError     = "error"
)

// Request is one external command. The exact raw payload is the
// deduplication key: a resend of the same bytes is the same request.
type Request struct {
	ID     string `json:"id"`
	Action string `json:"action"`

	raw string
}

// Ack is the one-per-request acknowledgment.
type Ack struct {
	ID        string `json:"id"`
	Action    string `json:"action,omitempty"`
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// printTrigger runs the synchronous print path.
type printTrigger interface {
	Print(ctx context.Context) error
}

// CommanderOption configures a Commander.
type CommanderOption func(*Commander)

// WithAckFunc registers the acknowledgment sink. Acks may arrive on the
// executing goroutine; f must not call back into the Commander.
func WithAckFunc(f func(Ack)) CommanderOption {
	return func(c *Commander) {
		c.ack = f
	}
}

// Commander serializes external print/download commands against the
// pipeline. For any raw payload it executes at most once and acknowledges
// exactly once, no matter how many times the payload is redelivered.
//
// State lives in explicit fields with fixed transition rules: a request is
// queued on arrival (unless it resends the last queued payload), waits while
// the surface is not ready or a download is in flight, executes once, and is
// remembered as completed so a late redelivery is dropped silently.
type Commander struct {
	surface renderSurface
	dl      downloader
	printer printTrigger
	ack     func(Ack)

	mu            sync.Mutex
	queued        *Request
	lastQueuedRaw string
	executingRaw  string
	completedRaw  string
}

// NewCommander wires the state machine to its collaborators. Wire the
// surface's OnChange to Notify so queued requests retry on readiness
// changes.
func NewCommander(surface renderSurface, dl downloader, printer printTrigger, opts ...CommanderOption) *Commander {
	c := &Commander{surface: surface, dl: dl, printer: printer}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Submit delivers one raw command payload. Redelivery of the exact payload
// last taken is ignored; a malformed payload is acknowledged with a
// validation error and never queued.
func (c *Commander) Submit(ctx context.Context, raw []byte) {
	key := string(raw)

	c.mu.Lock()
	if key == c.lastQueuedRaw {
		c.mu.Unlock()
		return
	}
	c.lastQueuedRaw = key
	c.mu.Unlock()

	req, err := parseRequest(raw)
	if err != nil {
		c.emit(Ack{ID: req.ID, Action: req.Action, Status: AckError, Message: err.Error()})
		return
	}

	c.mu.Lock()
	c.queued = req
	c.mu.Unlock()
	c.pump(ctx)
}

// Notify re-evaluates the queued request. Call it after a readiness or
// downloading-flag change.
func (c *Commander) Notify(ctx context.Context) {
	c.pump(ctx)
}

// pump advances the queued request as far as current preconditions allow.
func (c *Commander) pump(ctx context.Context) {
	c.mu.Lock()
	req := c.queued
	if req == nil {
		c.mu.Unlock()
		return
	}
	if req.raw == c.executingRaw {
		// Already running; the execution's completion re-pumps.
		c.mu.Unlock()
		return
	}
	if req.raw == c.completedRaw {
		// Already handled; no second acknowledgment.
		c.queued = nil
		c.mu.Unlock()
		return
	}
	if c.surface.Source().HTML == "" {
		c.queued = nil
		c.mu.Unlock()
		c.emit(Ack{ID: req.ID, Action: req.Action, Status: AckError, Message: ErrContentMissing.Error()})
		return
	}
	if !c.surface.Ready() || c.dl.InFlight() {
		// Stay queued; retried on the next Notify.
		c.mu.Unlock()
		return
	}
	c.queued = nil
	c.executingRaw = req.raw
	c.mu.Unlock()

	go c.execute(ctx, req)
}

// execute dispatches the request, records completion, emits the single
// acknowledgment, and re-pumps in case a new request queued meanwhile.
func (c *Commander) execute(ctx context.Context, req *Request) {
	var err error
	switch req.Action {
	case ActionPrint:
		err = c.printer.Print(ctx)
	case ActionDownload:
		err = c.dl.Download(ctx)
	}

	c.mu.Lock()
	c.executingRaw = ""
	c.completedRaw = req.raw
	c.mu.Unlock()

	ack := Ack{ID: req.ID, Action: req.Action, Status: AckCompleted}
	if err != nil {
		ack.Status = AckError
		ack.Message = err.Error()
	}
	c.emit(ack)
	c.pump(ctx)
}

func (c *Commander) emit(ack Ack) {
	ack.Timestamp = time.Now().UnixMilli()
	if c.ack != nil {
		c.ack(ack)
	}
}

// parseRequest validates the inbound payload shape. On failure the returned
// request still carries whatever id and action could be read, so the error
// acknowledgment can correlate.
func parseRequest(raw []byte) (*Request, error) {
	req := &Request{raw: string(raw)}
	if err := json.Unmarshal(raw, req); err != nil {
		return req, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if req.ID == "" {
		return req, fmt.Errorf("%w: id is required", ErrValidation)
	}
	switch req.Action {
	case ActionPrint, ActionDownload:
	default:
		return req, fmt.Errorf("%w: action must be %q or %q", ErrValidation, ActionPrint, ActionDownload)
	}
	return req, nil
}
