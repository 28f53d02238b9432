package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// Topics of the in-process mutation channel between the agent session
// controller and the tree-mutation boundary.
const (
	TopicEditRequest = "document.edit.request"
	TopicEditApplied = "document.edit.applied"
)

// ErrAckTimeout signals that no acknowledgment arrived within the bound;
// processing proceeds optimistically.
var ErrAckTimeout = errors.New("edit acknowledgment timeout")

// EditRequest is one mutation request against a live document.
type EditRequest struct {
	RequestID     string `json:"request_id"`
	DocumentID    string `json:"document_id"`
	BlockID       string `json:"block_id"`
	Action        string `json:"action"`
	ReplaceWith   string `json:"replace_with,omitempty"`
	TargetBlockID string `json:"target_block_id,omitempty"`
}

// EditApplied is the acknowledgment for one EditRequest.
type EditApplied struct {
	RequestID  string `json:"request_id"`
	DocumentID string `json:"document_id"`
	BlockID    string `json:"block_id"`
	Applied    bool   `json:"applied"`
	Error      string `json:"error,omitempty"`
}

// Dispatcher publishes edit requests and correlates acknowledgments back to
// the waiting caller. One dispatch at a time per session is the contract;
// the dispatcher itself is safe for concurrent sessions.
type Dispatcher struct {
	pubSub  *gochannel.GoChannel
	timeout time.Duration

	mu      sync.Mutex
	waiters map[string]chan EditApplied
}

// NewDispatcher creates a dispatcher over the shared in-process pub/sub.
func NewDispatcher(pubSub *gochannel.GoChannel, ackTimeout time.Duration) *Dispatcher {
	return &Dispatcher{
		pubSub:  pubSub,
		timeout: ackTimeout,
		waiters: make(map[string]chan EditApplied),
	}
}

// Start subscribes to the acknowledgment topic and routes results to
// waiting dispatches. Must be called once before any Dispatch.
func (d *Dispatcher) Start(ctx context.Context) error {
	messages, err := d.pubSub.Subscribe(ctx, TopicEditApplied)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			var ack EditApplied
			if err := json.Unmarshal(msg.Payload, &ack); err != nil {
				msg.Ack()
				continue
			}
			msg.Ack()

			d.mu.Lock()
			waiter, ok := d.waiters[ack.RequestID]
			d.mu.Unlock()
			if ok {
				select {
				case waiter <- ack:
				default:
				}
			}
		}
	}()

	return nil
}

// Dispatch publishes one edit request and waits for its acknowledgment,
// bounded by the ack timeout. On timeout the wait is abandoned and
// ErrAckTimeout returned so the caller can proceed with the next edit.
func (d *Dispatcher) Dispatch(ctx context.Context, req EditRequest) (EditApplied, error) {
	waiter := make(chan EditApplied, 1)
	d.mu.Lock()
	d.waiters[req.RequestID] = waiter
	d.mu.Unlock()
	defer func() {
		d.mu.Lock()
		delete(d.waiters, req.RequestID)
		d.mu.Unlock()
	}()

	payload, err := json.Marshal(req)
	if err != nil {
		return EditApplied{}, fmt.Errorf("marshal edit request: %w", err)
	}
	if err := d.pubSub.Publish(TopicEditRequest, message.NewMessage(watermill.NewUUID(), payload)); err != nil {
		return EditApplied{}, fmt.Errorf("publish edit request: %w", err)
	}

	select {
	case ack := <-waiter:
		return ack, nil
	case <-time.After(d.timeout):
		return EditApplied{}, ErrAckTimeout
	case <-ctx.Done():
		return EditApplied{}, ctx.Err()
	}
}
