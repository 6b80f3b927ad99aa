// Package widget holds the server-side state of one mounted chat widget.
//
// A Widget is the explicit state object {isOpen, transcript, inputBuffer,
// pending}. It is mutated only through ToggleOpen, SetInput, Send/Submit and
// Close; readers get copies via Snapshot or Subscribe.
package widget

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/zhouzirui/healthcare-site/backend/internal/model/chat"
	"github.com/zhouzirui/healthcare-site/backend/internal/service/ai"
)

// State is a render snapshot of a widget.
type State struct {
	ID         string         `json:"id"`
	IsOpen     bool           `json:"isOpen"`
	Transcript []chat.Message `json:"transcript"`
	Input      string         `json:"input"`
	Pending    bool           `json:"pending"`
	Version    uint64         `json:"version"`
}

// Widget mediates one visitor's chat against a provider. Safe for concurrent use.
type Widget struct {
	id       string
	provider ai.Provider
	logger   *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	isOpen     bool
	transcript []chat.Message
	input      string
	pending    bool
	closed     bool
	settled    chan struct{}
	version    uint64
	lastActive time.Time
	subs       map[int]chan State
	nextSub    int
}

// New returns an empty widget with the panel hidden.
func New(id string, provider ai.Provider, logger *zap.Logger) *Widget {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Widget{
		id:         id,
		provider:   provider,
		logger:     logger.With(zap.String("widget", id)),
		ctx:        ctx,
		cancel:     cancel,
		transcript: make([]chat.Message, 0, 8),
		lastActive: time.Now(),
		subs:       make(map[int]chan State),
	}
}

// ID returns the widget identifier.
func (w *Widget) ID() string {
	return w.id
}

// ToggleOpen flips the visibility flag and returns the new value.
func (w *Widget) ToggleOpen() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return w.isOpen
	}
	w.isOpen = !w.isOpen
	w.changedLocked()
	return w.isOpen
}

// SetInput replaces the input buffer. Ignored while a send is pending,
// mirroring the disabled text field.
func (w *Widget) SetInput(text string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed || w.pending {
		return false
	}
	w.input = text
	w.changedLocked()
	return true
}

// Submit sends the current input buffer.
func (w *Widget) Submit() bool {
	w.mu.Lock()
	text := w.input
	w.mu.Unlock()
	return w.Send(text)
}

// Send appends text as a user turn and starts the provider call.
//
// Empty or whitespace-only text, a send already pending, or a closed widget
// make Send a silent no-op that returns false. The provider receives text
// verbatim; the transcript is never forwarded.
func (w *Widget) Send(text string) bool {
	w.mu.Lock()
	if w.closed || w.pending || strings.TrimSpace(text) == "" {
		w.mu.Unlock()
		return false
	}

	w.transcript = append(w.transcript, chat.UserMessage(text))
	w.input = ""
	w.pending = true
	settled := make(chan struct{})
	w.settled = settled
	w.changedLocked()
	w.mu.Unlock()

	go w.complete(text, settled)
	return true
}

// complete runs the provider call and settles the pending send exactly once.
func (w *Widget) complete(text string, settled chan struct{}) {
	defer close(settled)

	reply := w.callProvider(text)

	w.mu.Lock()
	defer w.mu.Unlock()

	// pending is cleared on every path, including a widget closed mid-call.
	defer func() {
		w.pending = false
		w.changedLocked()
	}()

	if w.closed {
		w.logger.Debug("dropping reply for closed widget")
		return
	}
	w.transcript = append(w.transcript, chat.AssistantMessage(reply))
}

func (w *Widget) callProvider(text string) (reply string) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("error communicating with chatbot",
				zap.String("provider", w.provider.Name()),
				zap.Error(fmt.Errorf("%w: panic: %v", ai.ErrProviderCallFailed, r)),
			)
			reply = ai.FallbackReply
		}
	}()

	reply, _ = ai.ReplyOrFallback(w.ctx, w.provider, text, w.logger)
	return reply
}

// Snapshot returns a copy of the current state.
func (w *Widget) Snapshot() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshotLocked()
}

// Pending reports whether a send is in flight.
func (w *Widget) Pending() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pending
}

// LastActive returns the time of the last state change.
func (w *Widget) LastActive() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastActive
}

// Subscribe delivers the latest snapshot after every change. Slow readers
// only see the newest state. The channel is closed by Close or by the
// returned cancel func.
func (w *Widget) Subscribe() (<-chan State, func()) {
	w.mu.Lock()
	defer w.mu.Unlock()

	ch := make(chan State, 1)
	if w.closed {
		close(ch)
		return ch, func() {}
	}

	id := w.nextSub
	w.nextSub++
	w.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			w.mu.Lock()
			defer w.mu.Unlock()
			if sub, ok := w.subs[id]; ok {
				delete(w.subs, id)
				close(sub)
			}
		})
	}
}

// Close unmounts the widget: the in-flight provider call is cancelled, its
// late result is discarded, and every later operation is a no-op.
func (w *Widget) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	for id, ch := range w.subs {
		close(ch)
		delete(w.subs, id)
	}
	w.mu.Unlock()

	w.cancel()
}

// Closed reports whether Close has been called.
func (w *Widget) Closed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

// Wait blocks until the latest send has settled or ctx is done.
func (w *Widget) Wait(ctx context.Context) error {
	w.mu.Lock()
	settled := w.settled
	w.mu.Unlock()

	if settled == nil {
		return nil
	}

	select {
	case <-settled:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Widget) changedLocked() {
	w.version++
	w.lastActive = time.Now()

	state := w.snapshotLocked()
	for _, ch := range w.subs {
		select {
		case ch <- state:
		default:
			// replace the stale snapshot
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- state:
			default:
			}
		}
	}
}

func (w *Widget) snapshotLocked() State {
	transcript := make([]chat.Message, len(w.transcript))
	copy(transcript, w.transcript)
	return State{
		ID:         w.id,
		IsOpen:     w.isOpen,
		Transcript: transcript,
		Input:      w.input,
		Pending:    w.pending,
		Version:    w.version,
	}
}
