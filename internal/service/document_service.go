package service

import (
	"context"
	"errors"
	"log"

	"ai-docagent-be/internal/dto"
	"ai-docagent-be/internal/mapper"
	"ai-docagent-be/pkg/bus"
	"ai-docagent-be/pkg/document"
	"ai-docagent-be/pkg/events"
	pkgNats "ai-docagent-be/pkg/nats"

	"github.com/google/uuid"
)

type IDocumentService interface {
	Create(ctx context.Context, req *dto.CreateDocumentRequest) (*dto.CreateDocumentResponse, error)
	Show(ctx context.Context, id string) (*dto.GetDocumentResponse, error)
	Update(ctx context.Context, req *dto.UpdateDocumentRequest) error
	Segment(ctx context.Context, id string) (*dto.SegmentDocumentResponse, error)
	ApplyEdit(ctx context.Context, id string, req *dto.ApplyEditRequest) (*dto.ApplyEditResponse, error)
	Delete(ctx context.Context, id string) error
}

type documentService struct {
	docStore   *document.Store
	segmenter  *document.Segmenter
	dispatcher *bus.Dispatcher
	natsPub    *pkgNats.Publisher
	docMapper  *mapper.DocumentMapper
}

func NewDocumentService(
	docStore *document.Store,
	dispatcher *bus.Dispatcher,
	natsPub *pkgNats.Publisher,
) IDocumentService {
	return &documentService{
		docStore:   docStore,
		segmenter:  document.NewSegmenter(),
		dispatcher: dispatcher,
		natsPub:    natsPub,
		docMapper:  mapper.NewDocumentMapper(),
	}
}

func (s *documentService) Create(ctx context.Context, req *dto.CreateDocumentRequest) (*dto.CreateDocumentResponse, error) {
	id := req.Id
	if id == "" {
		id = uuid.NewString()
	}

	if err := s.docStore.Register(id, req.Content); err != nil {
		return nil, err
	}

	// Segmenting here both reports the block count and verifies the tree
	// settled with full identity coverage.
	seg, err := s.docStore.Segment(id, s.segmenter)
	if err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.NewDocumentCreatedEvent(id))

	return &dto.CreateDocumentResponse{
		Id:     id,
		Blocks: len(seg.Blocks),
	}, nil
}

func (s *documentService) Show(ctx context.Context, id string) (*dto.GetDocumentResponse, error) {
	content, err := s.docStore.Snapshot(id)
	if err != nil {
		return nil, err
	}
	markdown, err := s.docStore.Text(id)
	if err != nil {
		return nil, err
	}

	return &dto.GetDocumentResponse{
		Id:       id,
		Content:  content,
		Markdown: markdown,
	}, nil
}

// Update is the collaborator write path: the editor pushes a full new tree
// (remote merge included) and identity repair runs on the way in.
func (s *documentService) Update(ctx context.Context, req *dto.UpdateDocumentRequest) error {
	return s.docStore.Replace(req.Id, req.Content)
}

func (s *documentService) Segment(ctx context.Context, id string) (*dto.SegmentDocumentResponse, error) {
	seg, err := s.docStore.Segment(id, s.segmenter)
	if err != nil {
		return nil, err
	}
	res := s.docMapper.SegmentationToDTO(seg)
	return &res, nil
}

// ApplyEdit routes a user-issued edit through the same mutation channel the
// agent uses, so every mutation settles at one boundary.
func (s *documentService) ApplyEdit(ctx context.Context, id string, req *dto.ApplyEditRequest) (*dto.ApplyEditResponse, error) {
	if !s.docStore.Exists(id) {
		return nil, document.ErrDocumentNotFound
	}

	ack, err := s.dispatcher.Dispatch(ctx, bus.EditRequest{
		RequestID:     uuid.NewString(),
		DocumentID:    id,
		BlockID:       req.BlockId,
		Action:        req.Action,
		ReplaceWith:   req.ReplaceWith,
		TargetBlockID: req.TargetBlockId,
	})
	if err != nil {
		if errors.Is(err, bus.ErrAckTimeout) {
			return &dto.ApplyEditResponse{Applied: false, Error: err.Error()}, nil
		}
		return nil, err
	}

	return &dto.ApplyEditResponse{Applied: ack.Applied, Error: ack.Error}, nil
}

func (s *documentService) Delete(ctx context.Context, id string) error {
	if !s.docStore.Exists(id) {
		return document.ErrDocumentNotFound
	}
	s.docStore.Remove(id)
	return nil
}

func (s *documentService) publishEvent(ctx context.Context, event events.Event) {
	if s.natsPub == nil {
		return
	}
	if err := s.natsPub.Publish(ctx, event); err != nil {
		log.Printf("[WARN] Failed to publish event %s: %v", event.EventType(), err)
	}
}
