package approval

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/codefionn/workspaced/internal/apperr"
	"github.com/codefionn/workspaced/internal/consts"
	"github.com/codefionn/workspaced/internal/logger"
)

// Envelope is the typed message broadcast to approval listeners.
type Envelope struct {
	Type       string                 `json:"type"`
	ApprovalID string                 `json:"approvalId"`
	ToolName   string                 `json:"toolName"`
	Input      map[string]interface{} `json:"input"`
	Timestamp  time.Time              `json:"timestamp"`
}

// EnvelopeTypeRequest is the server-to-client request frame type.
const EnvelopeTypeRequest = "tool-approval-request"

// pendingApproval tracks one decision in flight. The decision channel
// is buffered so resolving never blocks; it settles exactly once.
type pendingApproval struct {
	id        string
	toolName  string
	input     map[string]interface{}
	createdAt time.Time
	decision  chan bool
}

// Subscriber receives approval request envelopes over a bounded channel.
type Subscriber struct {
	C chan Envelope
}

// Broker owns the pending approvals and the subscriber set. Each
// request is broadcast immediately; there is no queueing or ordering
// between concurrent requests.
type Broker struct {
	mu          sync.Mutex
	pending     map[string]*pendingApproval
	subscribers map[*Subscriber]bool
	counter     int
	timeout     time.Duration
	shutdown    chan struct{}
	stopOnce    sync.Once
}

// NewBroker creates a Broker with the default decision timeout.
func NewBroker() *Broker {
	return NewBrokerWithTimeout(consts.ApprovalTimeout)
}

// NewBrokerWithTimeout creates a Broker with a custom decision window.
func NewBrokerWithTimeout(timeout time.Duration) *Broker {
	return &Broker{
		pending:     make(map[string]*pendingApproval),
		subscribers: make(map[*Subscriber]bool),
		timeout:     timeout,
		shutdown:    make(chan struct{}),
	}
}

// Request blocks until a listener decides, the window elapses (denied
// with a timeout error), the context ends, or the broker shuts down. A
// listener disconnecting does not settle the decision; the request stays
// pending for other listeners until the timer fires.
func (b *Broker) Request(ctx context.Context, toolName string, input map[string]interface{}) (bool, error) {
	b.mu.Lock()
	select {
	case <-b.shutdown:
		b.mu.Unlock()
		return false, apperr.New(apperr.KindInternal, "approval broker is shut down")
	default:
	}

	b.counter++
	p := &pendingApproval{
		id:        fmt.Sprintf("approval-%d-%d", time.Now().Unix(), b.counter),
		toolName:  toolName,
		input:     input,
		createdAt: time.Now(),
		decision:  make(chan bool, 1),
	}
	b.pending[p.id] = p
	b.broadcastLocked(envelopeFor(p))
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.pending, p.id)
		b.mu.Unlock()
	}()

	logger.Debug("Approval requested for tool %s (id: %s)", toolName, p.id)

	timer := time.NewTimer(b.timeout)
	defer timer.Stop()

	select {
	case approved := <-p.decision:
		logger.Debug("Approval %s resolved: %v", p.id, approved)
		return approved, nil
	case <-timer.C:
		logger.Warn("Approval %s timed out, denying %s", p.id, toolName)
		return false, apperr.Newf(apperr.KindTimeout, "approval for %s timed out", toolName)
	case <-ctx.Done():
		return false, ctx.Err()
	case <-b.shutdown:
		return false, apperr.New(apperr.KindInternal, "approval broker is shut down")
	}
}

// Resolve settles a pending approval. The buffered decision channel
// makes a second resolve for the same id a no-op at the waiter; the
// registry entry is already gone by then anyway.
func (b *Broker) Resolve(approvalID string, approved bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	p, ok := b.pending[approvalID]
	if !ok {
		return apperr.Newf(apperr.KindNotFound, "no pending approval with id %s", approvalID)
	}
	select {
	case p.decision <- approved:
	default:
	}
	return nil
}

// Subscribe registers a listener and replays every currently pending
// request so a late joiner can still act on outstanding decisions.
func (b *Broker) Subscribe() *Subscriber {
	sub := &Subscriber{C: make(chan Envelope, 64)}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[sub] = true
	for _, p := range b.pending {
		select {
		case sub.C <- envelopeFor(p):
		default:
		}
	}
	logger.Debug("Approval listener subscribed (total: %d)", len(b.subscribers))
	return sub
}

// Unsubscribe detaches a listener. Pending approvals are untouched.
func (b *Broker) Unsubscribe(sub *Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subscribers[sub] {
		delete(b.subscribers, sub)
		close(sub.C)
	}
}

// SubscriberCount returns the number of attached listeners.
func (b *Broker) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers)
}

// PendingCount returns the number of undecided approvals.
func (b *Broker) PendingCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// Shutdown denies all in-flight requests and drops every subscriber.
func (b *Broker) Shutdown() {
	b.stopOnce.Do(func() {
		close(b.shutdown)
		b.mu.Lock()
		defer b.mu.Unlock()
		for sub := range b.subscribers {
			delete(b.subscribers, sub)
			close(sub.C)
		}
	})
}

// broadcastLocked sends the envelope to every subscriber. A listener
// with a full buffer is evicted as dead. Caller holds the mutex.
func (b *Broker) broadcastLocked(env Envelope) {
	for sub := range b.subscribers {
		select {
		case sub.C <- env:
		default:
			logger.Warn("Approval listener buffer full, dropping listener")
			delete(b.subscribers, sub)
			close(sub.C)
		}
	}
}

func envelopeFor(p *pendingApproval) Envelope {
	return Envelope{
		Type:       EnvelopeTypeRequest,
		ApprovalID: p.id,
		ToolName:   p.toolName,
		Input:      p.input,
		Timestamp:  p.createdAt,
	}
}
