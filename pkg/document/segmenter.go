package document

import (
	"fmt"
	"strings"

	"ai-docagent-be/pkg/lexical"
)

// BlockDescriptor describes one addressable top-level block at segmentation
// time. Index is the transient position among top-level blocks; it is
// informational only, never a stable address.
type BlockDescriptor struct {
	BlockID  string               `json:"blockId"`
	Type     string               `json:"type"`
	Editable bool                 `json:"editable"`
	Content  string               `json:"content"`
	Index    int                  `json:"index"`
	ListType string               `json:"listType,omitempty"`
	Items    []ListItemDescriptor `json:"items,omitempty"`
}

// ListItemDescriptor describes one item of a list block. Its address is
// positional per segmentation, not permanently bound to the item.
type ListItemDescriptor struct {
	Address       string `json:"address"`
	ParentBlockID string `json:"parentBlockId"`
	ItemIndex     int    `json:"itemIndex"`
	ListType      string `json:"listType"`
	Checked       bool   `json:"checked,omitempty"`
	Editable      bool   `json:"editable"`
	Content       string `json:"content"`
}

// Segmentation is the result of one segmentation pass: ordered descriptors
// plus a single address-annotated blob suitable as model input.
type Segmentation struct {
	Blocks    []BlockDescriptor `json:"blocks"`
	Annotated string            `json:"annotated"`
}

// Segmenter walks the tree and produces the model-facing view of the
// document. It is read-only; identity repair (IdentityAssigner) must run
// immediately before so addresses are fresh and unique at the moment the
// model sees them.
type Segmenter struct {
	parser *lexical.Parser
}

// NewSegmenter creates a new segmenter
func NewSegmenter() *Segmenter {
	return &Segmenter{parser: lexical.NewParser()}
}

// Segment produces descriptors and the annotated blob for the given tree.
func (s *Segmenter) Segment(root *lexical.Node) *Segmentation {
	seg := &Segmentation{}
	if root == nil {
		return seg
	}

	var sb strings.Builder
	index := 0

	for _, block := range root.Children {
		if !IsAddressable(block.Type) {
			continue
		}

		if block.Type == lexical.TypeList {
			desc := s.segmentList(block, index, &sb)
			seg.Blocks = append(seg.Blocks, desc)
		} else {
			desc := s.segmentBlock(block, index, &sb)
			seg.Blocks = append(seg.Blocks, desc)
		}
		index++
	}

	seg.Annotated = strings.TrimRight(sb.String(), "\n")
	return seg
}

func (s *Segmenter) segmentBlock(block *lexical.Node, index int, sb *strings.Builder) BlockDescriptor {
	editable := IsEditable(block.Type)

	var content string
	if editable {
		content = s.parser.RenderBlock(block)
		sb.WriteString(fmt.Sprintf("[ID:%s] %s\n", block.ID, flattenForContext(content)))
	} else {
		content = Describe(block)
		sb.WriteString(fmt.Sprintf("[ID:%s] [NON-EDITABLE:%s] %s\n", block.ID, block.Type, content))
	}

	return BlockDescriptor{
		BlockID:  block.ID,
		Type:     block.Type,
		Editable: editable,
		Content:  content,
		Index:    index,
	}
}

func (s *Segmenter) segmentList(list *lexical.Node, index int, sb *strings.Builder) BlockDescriptor {
	desc := BlockDescriptor{
		BlockID:  list.ID,
		Type:     list.Type,
		Editable: true,
		ListType: list.ListType,
		Index:    index,
	}

	items := listItems(list)
	sb.WriteString(fmt.Sprintf("[LIST:%s] (%s list with %d items)\n", list.ID, list.ListType, len(items)))

	ordinal := 1
	if list.Start > 0 {
		ordinal = list.Start
	}

	for k, item := range items {
		address := ListItemAddress(list.ID, k)
		marker := lexical.ListItemMarker(list.ListType, ordinal, item.Checked)
		if list.ListType == "number" {
			ordinal++
		}

		content := s.parser.RenderInline(item)
		editable := true
		if child := soleNonEditableChild(item); child != nil {
			// The item wraps an embed; identity still lets the model delete
			// or relocate it, but never rewrite its content.
			content = Describe(child)
			editable = false
		}

		sb.WriteString(fmt.Sprintf("[ITEM:%s] %s%s\n", address, marker, content))
		desc.Items = append(desc.Items, ListItemDescriptor{
			Address:       address,
			ParentBlockID: list.ID,
			ItemIndex:     k,
			ListType:      list.ListType,
			Checked:       item.Checked,
			Editable:      editable,
			Content:       content,
		})
	}

	desc.Content = strings.Join(itemContents(desc.Items), "\n")
	return desc
}

// Describe produces a short human summary for non-editable content. The
// model sees these instead of raw content so it never attempts a rewrite.
func Describe(block *lexical.Node) string {
	switch block.Type {
	case lexical.TypeImage:
		alt := block.AltText
		if alt == "" {
			alt = "untitled"
		}
		return fmt.Sprintf("[Image: %s]", alt)
	case lexical.TypeTable:
		rows := 0
		for _, child := range block.Children {
			if child.Type == lexical.TypeTableRow {
				rows++
			}
		}
		return fmt.Sprintf("[Table with %d rows]", rows)
	case lexical.TypeEquation:
		return fmt.Sprintf("[Equation: %s]", block.Equation)
	case lexical.TypeHorizontalRule:
		return "[Horizontal rule]"
	case lexical.TypeTOC:
		return "[Table of contents]"
	case lexical.TypeAttachment:
		name := block.Title
		if name == "" {
			name = block.Src
		}
		return fmt.Sprintf("[Attachment: %s]", name)
	default:
		return fmt.Sprintf("[%s]", block.Type)
	}
}

// listItems returns the listitem children of a list node.
func listItems(list *lexical.Node) []*lexical.Node {
	var items []*lexical.Node
	for _, child := range list.Children {
		if child.Type == lexical.TypeListItem {
			items = append(items, child)
		}
	}
	return items
}

// soleNonEditableChild detects items wrapping a single embed node.
func soleNonEditableChild(item *lexical.Node) *lexical.Node {
	if len(item.Children) != 1 {
		return nil
	}
	child := item.Children[0]
	if IsAddressable(child.Type) && !IsEditable(child.Type) {
		return child
	}
	return nil
}

func itemContents(items []ListItemDescriptor) []string {
	contents := make([]string, len(items))
	for i, it := range items {
		contents[i] = it.Content
	}
	return contents
}

// flattenForContext keeps one block on one annotated line; multi-line
// blocks (code, quotes) are folded with visible newline escapes.
func flattenForContext(content string) string {
	if !strings.Contains(content, "\n") {
		return content
	}
	return strings.ReplaceAll(content, "\n", "\\n")
}
