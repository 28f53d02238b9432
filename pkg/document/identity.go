package document

import (
	"strconv"
	"strings"
	"time"

	"ai-docagent-be/pkg/lexical"

	"github.com/google/uuid"
)

// BlockIDPrefix makes block addresses recognizable during address parsing.
// The rest of the identifier is opaque to callers.
const BlockIDPrefix = "blk_"

// addressableTypes is the closed set of block kinds that carry an identity.
var addressableTypes = map[string]bool{
	lexical.TypeParagraph:      true,
	lexical.TypeHeading:        true,
	lexical.TypeQuote:          true,
	lexical.TypeList:           true,
	lexical.TypeCode:           true,
	lexical.TypeTable:          true,
	lexical.TypeImage:          true,
	lexical.TypeEquation:       true,
	lexical.TypeHorizontalRule: true,
	lexical.TypeTOC:            true,
	lexical.TypeAttachment:     true,
}

// editableTypes are the addressable kinds whose content the model may
// rewrite. Everything else is represented by description only and accepts
// delete/moveAfter exclusively.
var editableTypes = map[string]bool{
	lexical.TypeParagraph: true,
	lexical.TypeHeading:   true,
	lexical.TypeQuote:     true,
	lexical.TypeList:      true,
	lexical.TypeCode:      true,
}

// IsAddressable reports whether nodes of this type carry a blockId.
func IsAddressable(nodeType string) bool {
	return addressableTypes[nodeType]
}

// IsEditable reports whether content rewrites are allowed for this type.
func IsEditable(nodeType string) bool {
	return editableTypes[nodeType]
}

// GenerateBlockID produces a fresh block identifier: a recognizable prefix,
// a monotonic time component, and a random suffix so that collision across
// independent documents is negligible.
func GenerateBlockID() string {
	millis := strconv.FormatInt(time.Now().UnixMilli(), 36)
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return BlockIDPrefix + millis + suffix
}

// IdentityAssigner maintains the invariant that every addressable block in
// the tree carries a unique blockId. It is purely corrective and cannot fail.
type IdentityAssigner struct{}

// NewIdentityAssigner creates a new assigner
func NewIdentityAssigner() *IdentityAssigner {
	return &IdentityAssigner{}
}

// EnsureBlockIDs repairs missing and duplicated identifiers in strict
// document order, so a single duplicate source (copy/paste, undo/redo,
// remote merge) produces at most one uncorrected copy before repair.
// Returns the number of identifiers assigned.
func (a *IdentityAssigner) EnsureBlockIDs(root *lexical.Node) int {
	if root == nil {
		return 0
	}

	seen := make(map[string]bool)
	repaired := 0

	for _, block := range root.Children {
		if !IsAddressable(block.Type) {
			continue
		}
		if block.ID == "" || seen[block.ID] {
			block.ID = GenerateBlockID()
			repaired++
		}
		seen[block.ID] = true
	}

	return repaired
}
