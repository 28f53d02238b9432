package document

import (
	"errors"
	"testing"

	"ai-docagent-be/pkg/lexical"
)

func testRoot(blocks ...*lexical.Node) *lexical.Node {
	return &lexical.Node{Type: lexical.TypeRoot, Children: blocks}
}

func blockIDs(root *lexical.Node) []string {
	ids := make([]string, len(root.Children))
	for i, b := range root.Children {
		ids[i] = b.ID
	}
	return ids
}

func itemTexts(list *lexical.Node) []string {
	p := lexical.NewParser()
	var texts []string
	for _, child := range list.Children {
		if child.Type == lexical.TypeListItem {
			texts = append(texts, p.RenderInline(child))
		}
	}
	return texts
}

func TestApplyReplaceKeepsIdentity(t *testing.T) {
	root := testRoot(para("blk_a", "old text"), para("blk_b", "untouched"))
	a := NewApplier()

	err := a.Apply(root, EditCommand{BlockID: "blk_a", Action: ActionReplace, ReplaceWith: "new text"})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if root.Children[0].ID != "blk_a" {
		t.Errorf("replaced block lost its id: %q", root.Children[0].ID)
	}
	if got := lexical.NewParser().RenderBlock(root.Children[0]); got != "new text" {
		t.Errorf("content = %q", got)
	}
}

func TestApplyReplaceSplitsIntoMultipleBlocks(t *testing.T) {
	root := testRoot(para("blk_a", "one"), para("blk_b", "two"))
	a := NewApplier()

	err := a.Apply(root, EditCommand{
		BlockID:     "blk_a",
		Action:      ActionReplace,
		ReplaceWith: "# Heading\n\nBody paragraph",
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(root.Children) != 3 {
		t.Fatalf("got %d blocks, want 3", len(root.Children))
	}
	// First new block inherits the old identity; the extra one waits for the
	// assigner pass.
	if root.Children[0].ID != "blk_a" {
		t.Errorf("first block id = %q", root.Children[0].ID)
	}
	if root.Children[1].ID != "" {
		t.Errorf("extra block id = %q, want unassigned", root.Children[1].ID)
	}
	if root.Children[2].ID != "blk_b" {
		t.Errorf("trailing block id = %q", root.Children[2].ID)
	}
}

func TestApplyReplaceEmptyContent(t *testing.T) {
	root := testRoot(para("blk_a", "text"))
	err := NewApplier().Apply(root, EditCommand{BlockID: "blk_a", Action: ActionReplace, ReplaceWith: "  \n "})
	if !errors.Is(err, ErrEmptyReplacement) {
		t.Errorf("err = %v, want ErrEmptyReplacement", err)
	}
}

func TestApplyDeleteBlock(t *testing.T) {
	root := testRoot(para("blk_a", "one"), para("blk_b", "two"), para("blk_c", "three"))
	err := NewApplier().Apply(root, EditCommand{BlockID: "blk_b", Action: ActionDelete})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	ids := blockIDs(root)
	if len(ids) != 2 || ids[0] != "blk_a" || ids[1] != "blk_c" {
		t.Errorf("ids = %v", ids)
	}
}

func TestApplyInsertAfterBlock(t *testing.T) {
	root := testRoot(para("blk_a", "one"), para("blk_b", "two"))
	err := NewApplier().Apply(root, EditCommand{BlockID: "blk_a", Action: ActionInsertAfter, ReplaceWith: "between"})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(root.Children) != 3 {
		t.Fatalf("got %d blocks", len(root.Children))
	}
	if got := lexical.NewParser().RenderBlock(root.Children[1]); got != "between" {
		t.Errorf("inserted content = %q", got)
	}
	if root.Children[2].ID != "blk_b" {
		t.Errorf("following block = %q", root.Children[2].ID)
	}
}

func TestApplyNonEditableGuards(t *testing.T) {
	img := &lexical.Node{Type: lexical.TypeImage, ID: "blk_img", AltText: "pic", Src: "s"}
	a := NewApplier()

	for _, action := range []EditAction{ActionReplace, ActionInsertAfter} {
		root := testRoot(para("blk_a", "text"), img)
		err := a.Apply(root, EditCommand{BlockID: "blk_img", Action: action, ReplaceWith: "x"})
		if !errors.Is(err, ErrNotEditable) {
			t.Errorf("%s: err = %v, want ErrNotEditable", action, err)
		}
	}

	// Delete and moveAfter remain allowed.
	root := testRoot(para("blk_a", "text"), img)
	if err := a.Apply(root, EditCommand{BlockID: "blk_img", Action: ActionMoveAfter, TargetBlockID: "blk_a"}); err != nil {
		t.Errorf("moveAfter on non-editable: %v", err)
	}
	root = testRoot(para("blk_a", "text"), img)
	if err := a.Apply(root, EditCommand{BlockID: "blk_img", Action: ActionDelete}); err != nil {
		t.Errorf("delete on non-editable: %v", err)
	}
	if len(root.Children) != 1 {
		t.Errorf("image not deleted")
	}
}

func TestApplyItemReplacePreservesAttributes(t *testing.T) {
	nested := listBlock("", "bullet", listItem("sub", false))
	item := &lexical.Node{Type: lexical.TypeListItem, Version: 1, Checked: true, Value: 1, Children: []*lexical.Node{
		{Type: lexical.TypeText, Version: 1, Text: "old"},
		nested,
	}}
	root := testRoot(listBlock("blk_l", "check", item))

	err := NewApplier().Apply(root, EditCommand{
		BlockID:     "blk_l_item0",
		Action:      ActionReplace,
		ReplaceWith: "- [ ] new content",
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !item.Checked {
		t.Error("checked state lost on replace")
	}
	if got := lexical.NewParser().RenderInline(item); got != "new content" {
		t.Errorf("content = %q (marker must be stripped)", got)
	}
	found := false
	for _, child := range item.Children {
		if child == nested {
			found = true
		}
	}
	if !found {
		t.Error("nested list dropped on replace")
	}
}

func TestApplyItemDeleteRenumbers(t *testing.T) {
	root := testRoot(listBlock("blk_l", "number",
		listItem("one", false), listItem("two", false), listItem("three", false)))

	err := NewApplier().Apply(root, EditCommand{BlockID: "blk_l_item1", Action: ActionDelete})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	list := root.Children[0]
	if got := itemTexts(list); len(got) != 2 || got[0] != "one" || got[1] != "three" {
		t.Errorf("items = %v", got)
	}
	for i, child := range list.Children {
		if child.Value != i+1 {
			t.Errorf("item %d value = %d", i, child.Value)
		}
	}
}

func TestApplyItemInsertAfter(t *testing.T) {
	root := testRoot(listBlock("blk_l", "check", listItem("first", true)))

	err := NewApplier().Apply(root, EditCommand{
		BlockID:     "blk_l_item0",
		Action:      ActionInsertAfter,
		ReplaceWith: "second",
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	list := root.Children[0]
	if got := itemTexts(list); len(got) != 2 || got[1] != "second" {
		t.Errorf("items = %v", got)
	}
	if list.Children[1].Checked {
		t.Error("inserted checklist item must start unchecked")
	}
}

func TestApplyMoveAfterBlockToBlock(t *testing.T) {
	root := testRoot(para("blk_a", "one"), para("blk_b", "two"), para("blk_c", "three"))

	err := NewApplier().Apply(root, EditCommand{BlockID: "blk_a", Action: ActionMoveAfter, TargetBlockID: "blk_c"})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if ids := blockIDs(root); ids[0] != "blk_b" || ids[1] != "blk_c" || ids[2] != "blk_a" {
		t.Errorf("order = %v", blockIDs(root))
	}
}

func TestApplyMoveAfterItemToItem(t *testing.T) {
	root := testRoot(
		listBlock("blk_l1", "bullet", listItem("a", false), listItem("b", false)),
		listBlock("blk_l2", "bullet", listItem("x", false)),
	)

	err := NewApplier().Apply(root, EditCommand{
		BlockID:       "blk_l1_item0",
		Action:        ActionMoveAfter,
		TargetBlockID: "blk_l2_item0",
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got := itemTexts(root.Children[0]); len(got) != 1 || got[0] != "b" {
		t.Errorf("source list = %v", got)
	}
	if got := itemTexts(root.Children[1]); len(got) != 2 || got[1] != "a" {
		t.Errorf("target list = %v", got)
	}
}

func TestApplyMoveAfterItemToBlockLiftsToParagraph(t *testing.T) {
	root := testRoot(
		listBlock("blk_l", "bullet", listItem("lifted", false), listItem("stays", false)),
		para("blk_p", "anchor"),
	)

	err := NewApplier().Apply(root, EditCommand{
		BlockID:       "blk_l_item0",
		Action:        ActionMoveAfter,
		TargetBlockID: "blk_p",
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(root.Children) != 3 {
		t.Fatalf("got %d blocks", len(root.Children))
	}
	moved := root.Children[2]
	if moved.Type != lexical.TypeParagraph {
		t.Errorf("lifted item type = %q, want paragraph", moved.Type)
	}
	if got := lexical.NewParser().RenderBlock(moved); got != "lifted" {
		t.Errorf("lifted content = %q", got)
	}
	if got := itemTexts(root.Children[0]); len(got) != 1 || got[0] != "stays" {
		t.Errorf("source list = %v", got)
	}
}

func TestApplyMoveAfterBlockToItemAnchorsAfterParentList(t *testing.T) {
	root := testRoot(
		para("blk_p", "moved"),
		listBlock("blk_l", "bullet", listItem("a", false), listItem("b", false)),
		para("blk_q", "tail"),
	)

	err := NewApplier().Apply(root, EditCommand{
		BlockID:       "blk_p",
		Action:        ActionMoveAfter,
		TargetBlockID: "blk_l_item0",
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if ids := blockIDs(root); ids[0] != "blk_l" || ids[1] != "blk_p" || ids[2] != "blk_q" {
		t.Errorf("order = %v", blockIDs(root))
	}
}

func TestApplyMoveAfterSelfIsNoOp(t *testing.T) {
	root := testRoot(para("blk_a", "one"), para("blk_b", "two"))
	err := NewApplier().Apply(root, EditCommand{BlockID: "blk_a", Action: ActionMoveAfter, TargetBlockID: "blk_a"})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if ids := blockIDs(root); ids[0] != "blk_a" || ids[1] != "blk_b" {
		t.Errorf("order changed: %v", blockIDs(root))
	}
}

func TestApplyErrorCases(t *testing.T) {
	a := NewApplier()

	tests := []struct {
		name    string
		cmd     EditCommand
		wantErr error
	}{
		{"unknown block", EditCommand{BlockID: "blk_missing", Action: ActionDelete}, ErrBlockNotFound},
		{"item out of range", EditCommand{BlockID: "blk_l_item9", Action: ActionDelete}, ErrListItemNotFound},
		{"unknown action", EditCommand{BlockID: "blk_a", Action: "merge"}, ErrUnknownAction},
		{"move without target", EditCommand{BlockID: "blk_a", Action: ActionMoveAfter}, ErrBlockNotFound},
		{"move to unknown target", EditCommand{BlockID: "blk_a", Action: ActionMoveAfter, TargetBlockID: "blk_gone"}, ErrBlockNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := testRoot(para("blk_a", "text"), listBlock("blk_l", "bullet", listItem("only", false)))
			err := a.Apply(root, tt.cmd)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if err := a.Apply(nil, EditCommand{BlockID: "blk_a", Action: ActionDelete}); !errors.Is(err, ErrDocumentNotFound) {
		t.Errorf("nil root err = %v", err)
	}
}

func TestValidAction(t *testing.T) {
	for _, action := range []string{"replace", "delete", "insertAfter", "moveAfter"} {
		if !ValidAction(action) {
			t.Errorf("%q must be valid", action)
		}
	}
	for _, action := range []string{"", "merge", "Replace", "INSERTAFTER"} {
		if ValidAction(action) {
			t.Errorf("%q must be invalid", action)
		}
	}
}
