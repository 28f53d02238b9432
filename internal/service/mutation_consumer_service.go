package service

import (
	"context"
	"encoding/json"
	"log"

	"ai-docagent-be/internal/pkg/logger"
	"ai-docagent-be/internal/websocket"
	"ai-docagent-be/pkg/bus"
	"ai-docagent-be/pkg/document"
	"ai-docagent-be/pkg/events"
	"ai-docagent-be/pkg/lexical"
	pkgNats "ai-docagent-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// IMutationConsumerService is the single tree-mutation boundary: every edit
// request, agent- or user-issued, settles here one at a time per document.
type IMutationConsumerService interface {
	Consume(ctx context.Context) error
}

type mutationConsumerService struct {
	pubSub   *gochannel.GoChannel
	docStore *document.Store
	applier  *document.Applier
	hub      *websocket.Hub
	natsPub  *pkgNats.Publisher
	logger   logger.ILogger
}

func NewMutationConsumerService(
	pubSub *gochannel.GoChannel,
	docStore *document.Store,
	hub *websocket.Hub,
	natsPub *pkgNats.Publisher,
	sysLogger logger.ILogger,
) IMutationConsumerService {
	return &mutationConsumerService{
		pubSub:   pubSub,
		docStore: docStore,
		applier:  document.NewApplier(),
		hub:      hub,
		natsPub:  natsPub,
		logger:   sysLogger,
	}
}

func (cs *mutationConsumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, bus.TopicEditRequest)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *mutationConsumerService) processMessage(ctx context.Context, msg *message.Message) {
	var req bus.EditRequest
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		log.Printf("[ERROR] Failed to unmarshal edit request: %v", err)
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	ack := bus.EditApplied{
		RequestID:  req.RequestID,
		DocumentID: req.DocumentID,
		BlockID:    req.BlockID,
	}

	err := cs.docStore.Mutate(req.DocumentID, func(root *lexical.Node) error {
		return cs.applier.Apply(root, document.EditCommand{
			BlockID:       req.BlockID,
			Action:        document.EditAction(req.Action),
			ReplaceWith:   req.ReplaceWith,
			TargetBlockID: req.TargetBlockID,
		})
	})
	if err != nil {
		// The edit never partially applies: the working copy is discarded
		// and the ack carries the reason.
		ack.Error = err.Error()
		cs.logger.Warn("Mutation", "Edit rejected", map[string]interface{}{
			"document_id": req.DocumentID,
			"block_id":    req.BlockID,
			"action":      req.Action,
			"error":       err.Error(),
		})
	} else {
		ack.Applied = true
		cs.logger.Info("Mutation", "Edit applied", map[string]interface{}{
			"document_id": req.DocumentID,
			"block_id":    req.BlockID,
			"action":      req.Action,
		})
	}

	cs.publishAck(ack)

	if cs.hub != nil {
		cs.hub.Publish(req.DocumentID, "edit_applied", ack)
	}
	if ack.Applied && cs.natsPub != nil {
		event := events.NewDocumentEditAppliedEvent(req.DocumentID, req.BlockID, req.Action)
		if err := cs.natsPub.Publish(ctx, event); err != nil {
			log.Printf("[WARN] Failed to publish event %s: %v", event.EventType(), err)
		}
	}

	// Outcome is reported through the ack payload; the message itself is
	// consumed either way.
	msg.Ack()
}

func (cs *mutationConsumerService) publishAck(ack bus.EditApplied) {
	payload, err := json.Marshal(ack)
	if err != nil {
		log.Printf("[ERROR] Failed to marshal edit ack: %v", err)
		return
	}
	if err := cs.pubSub.Publish(bus.TopicEditApplied, message.NewMessage(watermill.NewUUID(), payload)); err != nil {
		log.Printf("[ERROR] Failed to publish edit ack: %v", err)
	}
}
