package document

import (
	"fmt"
	"sync"

	"ai-docagent-be/pkg/lexical"
)

// Store holds the live trees of open documents. It stands in for the
// real-time sync layer's mutation-observable handle: collaborators and the
// agent both mutate through it, and every mutation settles with the
// identity invariant restored.
type Store struct {
	mu       sync.RWMutex
	docs     map[string]*lexical.Node
	assigner *IdentityAssigner
	parser   *lexical.Parser
}

// NewStore creates an empty document store
func NewStore() *Store {
	return &Store{
		docs:     make(map[string]*lexical.Node),
		assigner: NewIdentityAssigner(),
		parser:   lexical.NewParser(),
	}
}

// Register decodes and installs a document tree under the given id,
// assigning block identities on the way in.
func (s *Store) Register(docID string, jsonContent string) error {
	root, err := lexical.Decode(jsonContent)
	if err != nil {
		return err
	}
	s.assigner.EnsureBlockIDs(root)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[docID] = root
	return nil
}

// Replace installs a new tree for an existing document. This is the
// collaborator write path: remote merges may reintroduce duplicate or
// missing ids, which the assigner repairs before the write settles.
func (s *Store) Replace(docID string, jsonContent string) error {
	root, err := lexical.Decode(jsonContent)
	if err != nil {
		return err
	}
	s.assigner.EnsureBlockIDs(root)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[docID]; !ok {
		return fmt.Errorf("%w: %s", ErrDocumentNotFound, docID)
	}
	s.docs[docID] = root
	return nil
}

// Exists reports whether a live tree is registered for the id.
func (s *Store) Exists(docID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.docs[docID]
	return ok
}

// Remove drops the live tree.
func (s *Store) Remove(docID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, docID)
}

// Snapshot returns the serialized current tree.
func (s *Store) Snapshot(docID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	root, ok := s.docs[docID]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrDocumentNotFound, docID)
	}
	return lexical.Encode(root)
}

// Text returns the markdown rendering of the current tree, used for the
// end-of-session diff.
func (s *Store) Text(docID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	root, ok := s.docs[docID]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrDocumentNotFound, docID)
	}
	return s.parser.Parse(mustEncode(root))
}

// Segment runs the identity pass and segments the current tree in one
// critical section, so the addresses the model sees are fresh and unique.
func (s *Store) Segment(docID string, segmenter *Segmenter) (*Segmentation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	root, ok := s.docs[docID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, docID)
	}
	s.assigner.EnsureBlockIDs(root)
	return segmenter.Segment(root), nil
}

// Mutate runs fn as a transaction against a working copy of the tree and
// swaps it in only on success. A failed edit therefore never partially
// applies, and readers always observe a settled tree.
func (s *Store) Mutate(docID string, fn func(root *lexical.Node) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	root, ok := s.docs[docID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrDocumentNotFound, docID)
	}

	working, err := cloneTree(root)
	if err != nil {
		return err
	}
	if err := fn(working); err != nil {
		return err
	}

	s.assigner.EnsureBlockIDs(working)
	s.docs[docID] = working
	return nil
}

// cloneTree deep-copies a tree via its JSON form. Trees are document-sized,
// so the round trip is cheap relative to a model turn.
func cloneTree(root *lexical.Node) (*lexical.Node, error) {
	encoded, err := lexical.Encode(root)
	if err != nil {
		return nil, err
	}
	return lexical.Decode(encoded)
}

func mustEncode(root *lexical.Node) string {
	encoded, _ := lexical.Encode(root)
	return encoded
}
