package document

import (
	"fmt"

	"ai-docagent-be/pkg/lexical"
)

// EditAction is the closed set of mutations the agent may request.
type EditAction string

const (
	ActionReplace     EditAction = "replace"
	ActionDelete      EditAction = "delete"
	ActionInsertAfter EditAction = "insertAfter"
	ActionMoveAfter   EditAction = "moveAfter"
)

// ValidAction reports whether the action string is one of the supported set.
func ValidAction(action string) bool {
	switch EditAction(action) {
	case ActionReplace, ActionDelete, ActionInsertAfter, ActionMoveAfter:
		return true
	}
	return false
}

// EditCommand is one fully validated mutation request against the live tree.
type EditCommand struct {
	BlockID       string
	Action        EditAction
	ReplaceWith   string
	TargetBlockID string
}

// Applier maps a block address to a live position in the current tree and
// performs exactly the requested mutation, or fails with a specific reason.
// All resolution happens before any mutation, so a failed edit never leaves
// a partially applied state.
type Applier struct {
	builder *lexical.Builder
}

// NewApplier creates a new applier
func NewApplier() *Applier {
	return &Applier{builder: lexical.NewBuilder()}
}

// resolved is a live position: either a top-level block, or one item inside
// a top-level list block.
type resolved struct {
	blockIndex int
	block      *lexical.Node
	item       *lexical.Node // nil for top-level targets
	itemIndex  int
}

func (r resolved) isItem() bool { return r.item != nil }

// node returns the node the edit operates on.
func (r resolved) node() *lexical.Node {
	if r.item != nil {
		return r.item
	}
	return r.block
}

func (a *Applier) resolve(root *lexical.Node, address string) (resolved, error) {
	parentID, itemIdx, isItem := ParseAddress(address)

	for i, block := range root.Children {
		if !IsAddressable(block.Type) || block.ID != parentID {
			continue
		}
		if !isItem {
			return resolved{blockIndex: i, block: block}, nil
		}
		items := listItems(block)
		if itemIdx >= len(items) {
			return resolved{}, fmt.Errorf("%w: %s", ErrListItemNotFound, address)
		}
		return resolved{blockIndex: i, block: block, item: items[itemIdx], itemIndex: itemIdx}, nil
	}

	return resolved{}, fmt.Errorf("%w: %s", ErrBlockNotFound, parentID)
}

// Apply performs one edit against the current tree. The tree passed in is
// the live one at application time, not the snapshot the request was built
// from, so concurrently deleted targets fail cleanly with ErrBlockNotFound.
func (a *Applier) Apply(root *lexical.Node, cmd EditCommand) error {
	if root == nil {
		return ErrDocumentNotFound
	}
	if !ValidAction(string(cmd.Action)) {
		return fmt.Errorf("%w: %q", ErrUnknownAction, cmd.Action)
	}

	src, err := a.resolve(root, cmd.BlockID)
	if err != nil {
		return err
	}

	// Content of non-editable blocks may never be rewritten; they can only
	// be deleted or relocated.
	if cmd.Action == ActionReplace || cmd.Action == ActionInsertAfter {
		if !src.isItem() && !IsEditable(src.block.Type) {
			return fmt.Errorf("%w: %s (%s)", ErrNotEditable, cmd.BlockID, src.block.Type)
		}
		if src.isItem() && soleNonEditableChild(src.item) != nil && cmd.Action == ActionReplace {
			return fmt.Errorf("%w: %s", ErrNotEditable, cmd.BlockID)
		}
	}

	switch cmd.Action {
	case ActionDelete:
		return a.applyDelete(root, src)
	case ActionInsertAfter:
		return a.applyInsertAfter(root, src, cmd.ReplaceWith)
	case ActionReplace:
		return a.applyReplace(root, src, cmd.ReplaceWith)
	case ActionMoveAfter:
		return a.applyMoveAfter(root, src, cmd.TargetBlockID)
	}
	return fmt.Errorf("%w: %q", ErrUnknownAction, cmd.Action)
}

func (a *Applier) applyDelete(root *lexical.Node, src resolved) error {
	if src.isItem() {
		removeChild(src.block, src.item)
		renumberItems(src.block)
		return nil
	}
	root.Children = removeAt(root.Children, src.blockIndex)
	return nil
}

func (a *Applier) applyInsertAfter(root *lexical.Node, src resolved, content string) error {
	if src.isItem() {
		// Construct the new item with list-type-appropriate attributes
		// (e.g. unchecked checkbox) instead of trusting the model to emit
		// list syntax.
		item := a.builder.BuildListItem(src.block.ListType, content)
		if len(item.Children) == 0 {
			return fmt.Errorf("%w: insertAfter %s", ErrEmptyReplacement, ListItemAddress(src.block.ID, src.itemIndex))
		}
		insertChildAfter(src.block, src.item, item)
		renumberItems(src.block)
		return nil
	}

	blocks := a.builder.BuildBlocks(content)
	if len(blocks) == 0 {
		return fmt.Errorf("%w: insertAfter %s", ErrEmptyReplacement, src.block.ID)
	}
	root.Children = insertAt(root.Children, src.blockIndex+1, blocks...)
	return nil
}

func (a *Applier) applyReplace(root *lexical.Node, src resolved, content string) error {
	if src.isItem() {
		// Replace only the inner content, preserving the item's own
		// attributes (checked state, value). Strip any list marker the
		// model echoed back to avoid double-marking.
		inline := a.builder.BuildInline(lexical.StripListMarker(content))
		if len(inline) == 0 {
			return fmt.Errorf("%w: replace %s", ErrEmptyReplacement, ListItemAddress(src.block.ID, src.itemIndex))
		}
		src.item.Children = append(inline, nestedLists(src.item)...)
		return nil
	}

	blocks := a.builder.BuildBlocks(content)
	if len(blocks) == 0 {
		return fmt.Errorf("%w: replace %s", ErrEmptyReplacement, src.block.ID)
	}
	// The replaced span keeps its identity: the first new block inherits the
	// old blockId, any extra blocks get fresh ids from the assigner pass.
	blocks[0].ID = src.block.ID
	root.Children = replaceAt(root.Children, src.blockIndex, blocks...)
	return nil
}

func (a *Applier) applyMoveAfter(root *lexical.Node, src resolved, targetAddress string) error {
	if targetAddress == "" {
		return fmt.Errorf("%w: moveAfter requires a target", ErrBlockNotFound)
	}

	tgt, err := a.resolve(root, targetAddress)
	if err != nil {
		return err
	}
	if src.node() == tgt.node() {
		return nil
	}

	switch {
	case src.isItem() && tgt.isItem():
		removeChild(src.block, src.item)
		insertChildAfter(tgt.block, tgt.item, src.item)
		renumberItems(src.block)
		if tgt.block != src.block {
			renumberItems(tgt.block)
		}

	case src.isItem() && !tgt.isItem():
		// Lifted out of the list: the item's inline content becomes a
		// paragraph following the target block.
		para := &lexical.Node{Type: lexical.TypeParagraph, Version: 1, Children: inlineChildren(src.item)}
		removeChild(src.block, src.item)
		renumberItems(src.block)
		idx := indexOfChild(root, tgt.block)
		if idx < 0 {
			return fmt.Errorf("%w: %s", ErrBlockNotFound, targetAddress)
		}
		root.Children = insertAt(root.Children, idx+1, para)

	default:
		// Top-level source. When the target is a list item, a block cannot
		// live inside the list; the nearest legal position is immediately
		// after the target's parent list.
		anchor := tgt.block
		if anchor == src.block {
			// Degenerate self-move (a list after its own item)
			return nil
		}
		if indexOfChild(root, anchor) < 0 {
			return fmt.Errorf("%w: %s", ErrBlockNotFound, targetAddress)
		}
		moved := src.block
		root.Children = removeAt(root.Children, src.blockIndex)
		root.Children = insertAt(root.Children, indexOfChild(root, anchor)+1, moved)
	}

	return nil
}

// --- slice helpers over child spans ---

func removeAt(children []*lexical.Node, i int) []*lexical.Node {
	return append(children[:i], children[i+1:]...)
}

func insertAt(children []*lexical.Node, i int, nodes ...*lexical.Node) []*lexical.Node {
	out := make([]*lexical.Node, 0, len(children)+len(nodes))
	out = append(out, children[:i]...)
	out = append(out, nodes...)
	out = append(out, children[i:]...)
	return out
}

func replaceAt(children []*lexical.Node, i int, nodes ...*lexical.Node) []*lexical.Node {
	out := make([]*lexical.Node, 0, len(children)-1+len(nodes))
	out = append(out, children[:i]...)
	out = append(out, nodes...)
	out = append(out, children[i+1:]...)
	return out
}

func indexOfChild(parent *lexical.Node, child *lexical.Node) int {
	for i, c := range parent.Children {
		if c == child {
			return i
		}
	}
	return -1
}

func removeChild(parent *lexical.Node, child *lexical.Node) {
	if i := indexOfChild(parent, child); i >= 0 {
		parent.Children = removeAt(parent.Children, i)
	}
}

func insertChildAfter(parent *lexical.Node, after *lexical.Node, node *lexical.Node) {
	i := indexOfChild(parent, after)
	if i < 0 {
		parent.Children = append(parent.Children, node)
		return
	}
	parent.Children = insertAt(parent.Children, i+1, node)
}

// renumberItems keeps listitem ordinal values consistent after structural
// changes.
func renumberItems(list *lexical.Node) {
	value := 1
	for _, child := range list.Children {
		if child.Type == lexical.TypeListItem {
			child.Value = value
			value++
		}
	}
}

func nestedLists(item *lexical.Node) []*lexical.Node {
	var lists []*lexical.Node
	for _, child := range item.Children {
		if child.Type == lexical.TypeList {
			lists = append(lists, child)
		}
	}
	return lists
}

func inlineChildren(item *lexical.Node) []*lexical.Node {
	var inline []*lexical.Node
	for _, child := range item.Children {
		if child.Type != lexical.TypeList {
			inline = append(inline, child)
		}
	}
	return inline
}
