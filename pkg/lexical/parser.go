package lexical

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Parser handles Lexical tree to Markdown conversion
type Parser struct{}

// NewParser creates a new parser instance
func NewParser() *Parser {
	return &Parser{}
}

// Parse converts a Lexical JSON string to Semantic Markdown
func (p *Parser) Parse(jsonContent string) (string, error) {
	root, err := Decode(jsonContent)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	p.walkNode(root, &sb, 0)
	return sb.String(), nil
}

// Decode unmarshals a Lexical JSON document and returns its root node.
func Decode(jsonContent string) (*Node, error) {
	var root LexicalRoot
	if err := json.Unmarshal([]byte(jsonContent), &root); err != nil {
		return nil, fmt.Errorf("failed to parse lexical json: %w", err)
	}
	if root.Root == nil {
		return nil, fmt.Errorf("lexical json has no root node")
	}
	return root.Root, nil
}

// Encode serializes a root node back to the editor's JSON envelope.
func Encode(root *Node) (string, error) {
	data, err := json.Marshal(LexicalRoot{Root: root})
	if err != nil {
		return "", fmt.Errorf("failed to encode lexical tree: %w", err)
	}
	return string(data), nil
}

// ParseContent is a convenience function to parse a raw string.
// It attempts to parse as Lexical JSON; if it fails (not JSON or error), it returns the original string
func ParseContent(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, `{"root":`) {
		return content
	}

	p := NewParser()
	md, err := p.Parse(trimmed)
	if err != nil {
		return content
	}
	return md
}

// RenderBlock renders a single block-level node as markdown, without the
// trailing blank line separating sibling blocks.
func (p *Parser) RenderBlock(node *Node) string {
	var sb strings.Builder
	p.walkNode(node, &sb, 0)
	return strings.TrimRight(sb.String(), "\n")
}

// RenderInline renders only the inline content of an element node (text,
// links, formatting), skipping nested block children such as sublists.
func (p *Parser) RenderInline(node *Node) string {
	var sb strings.Builder
	for _, child := range node.Children {
		if child.Type == TypeList {
			continue
		}
		p.walkNode(child, &sb, 0)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// walkNode traverses the tree and writes markdown
func (p *Parser) walkNode(node *Node, sb *strings.Builder, depth int) {
	if node == nil {
		return
	}

	switch node.Type {
	case TypeRoot:
		for _, child := range node.Children {
			p.walkNode(child, sb, depth)
			sb.WriteString("\n")
		}

	case TypeParagraph:
		p.handleParagraph(node, sb, depth)

	case TypeHeading:
		p.handleHeading(node, sb, depth)

	case TypeQuote:
		for _, child := range node.Children {
			sb.WriteString("> ")
			p.walkNode(child, sb, depth)
		}
		sb.WriteString("\n")

	case TypeText:
		p.handleText(node, sb)

	case TypeList:
		p.handleList(node, sb, depth)

	// ListItems are handled by handleList to ensure correct marking (bullet/number/check)
	case TypeListItem:
		// Fallback if encountered loose
		for _, child := range node.Children {
			p.walkNode(child, sb, depth)
		}

	case TypeCode:
		p.handleCode(node, sb)

	case TypeTable:
		p.handleTable(node, sb)

	case TypeLink:
		p.handleLink(node, sb)

	case TypeImage:
		sb.WriteString(fmt.Sprintf("![%s](%s)\n", node.AltText, node.Src))

	case TypeEquation:
		sb.WriteString(fmt.Sprintf("$%s$", node.Equation))

	case TypeHorizontalRule:
		sb.WriteString("---\n")

	default:
		// Generic recursion
		for _, child := range node.Children {
			p.walkNode(child, sb, depth)
		}
	}
}

func (p *Parser) handleParagraph(node *Node, sb *strings.Builder, depth int) {
	align := ""
	if a := node.Alignment(); a != "" && a != "left" {
		align = a
	}

	if align != "" {
		sb.WriteString(fmt.Sprintf("<div align=\"%s\">", align))
	}

	for _, child := range node.Children {
		p.walkNode(child, sb, depth)
	}

	if align != "" {
		sb.WriteString("</div>")
	}
	sb.WriteString("\n")
}

func (p *Parser) handleHeading(node *Node, sb *strings.Builder, depth int) {
	level := 1
	if len(node.Tag) == 2 && node.Tag[0] == 'h' {
		level = int(node.Tag[1] - '0')
		if level < 1 || level > 6 {
			level = 1
		}
	}
	sb.WriteString(strings.Repeat("#", level))
	sb.WriteString(" ")
	for _, child := range node.Children {
		p.walkNode(child, sb, depth)
	}
	sb.WriteString("\n")
}

func (p *Parser) handleCode(node *Node, sb *strings.Builder) {
	sb.WriteString("```")
	sb.WriteString(node.Language)
	sb.WriteString("\n")
	for _, child := range node.Children {
		// Code children are plain text / linebreak nodes; render raw
		if child.Type == TypeText {
			sb.WriteString(child.Text)
		} else if child.Type == "linebreak" {
			sb.WriteString("\n")
		}
	}
	sb.WriteString("\n```\n")
}

func (p *Parser) handleText(node *Node, sb *strings.Builder) {
	text := node.Text

	// Annotations
	styleStyles := ParseStyle(node.Style)
	openTag := styleStyles.BuildAnnotatedOpenTag()
	if openTag != "" {
		sb.WriteString(openTag)
	}

	fmtInt := node.FormatBits()

	isBold := (fmtInt & FormatBold) != 0
	isItalic := (fmtInt & FormatItalic) != 0
	isUnderline := (fmtInt & FormatUnderline) != 0
	isCode := (fmtInt & FormatCode) != 0
	isStrike := (fmtInt & FormatStrikethrough) != 0

	// Apply wrappers (Code > Bold > Italic > Underline > Strike)
	// Markdown doesn't support underline natively everywhere, using HTML <u>
	if isCode {
		sb.WriteString("`")
	}
	if isBold {
		sb.WriteString("**")
	}
	if isItalic {
		sb.WriteString("_")
	}
	if isUnderline {
		sb.WriteString("<u>")
	}
	if isStrike {
		sb.WriteString("~~")
	}

	sb.WriteString(text)

	if isStrike {
		sb.WriteString("~~")
	}
	if isUnderline {
		sb.WriteString("</u>")
	}
	if isItalic {
		sb.WriteString("_")
	}
	if isBold {
		sb.WriteString("**")
	}
	if isCode {
		sb.WriteString("`")
	}

	if openTag != "" {
		sb.WriteString("</span>")
	}
}

func (p *Parser) handleLink(node *Node, sb *strings.Builder) {
	// Standard MD link: [text](url)
	sb.WriteString("[")
	for _, child := range node.Children {
		p.walkNode(child, sb, 0) // depth 0 for inline
	}
	sb.WriteString(fmt.Sprintf("](%s)", node.URL))
}

func (p *Parser) handleList(node *Node, sb *strings.Builder, depth int) {
	listType := node.ListType
	index := 1
	if node.Start > 0 {
		index = node.Start
	}

	for _, child := range node.Children {
		// Only process listitems
		if child.Type != TypeListItem {
			continue
		}

		// Indentation for nested lists (2 spaces per depth level)
		sb.WriteString(strings.Repeat("  ", depth))
		sb.WriteString(ListItemMarker(listType, index, child.Checked))
		if listType == "number" {
			index++
		}

		// List Item Content
		// Recursively walk children of list item
		// Note: a NESTED LIST appears as a child of the listitem
		for _, grandChild := range child.Children {
			if grandChild.Type == TypeList {
				sb.WriteString("\n")
				p.handleList(grandChild, sb, depth+1)
			} else {
				p.walkNode(grandChild, sb, depth)
			}
		}
		sb.WriteString("\n")
	}
	// Extra newline after list
	if depth == 0 {
		sb.WriteString("\n")
	}
}

// ListItemMarker reproduces the visual marker for one list item.
// The same marker text is stripped back out of model replacements on apply.
func ListItemMarker(listType string, ordinal int, checked bool) string {
	switch listType {
	case "number":
		return fmt.Sprintf("%d. ", ordinal)
	case "check":
		if checked {
			return "- [x] "
		}
		return "- [ ] "
	default:
		return "- "
	}
}

func (p *Parser) handleTable(node *Node, sb *strings.Builder) {
	// 1. Extract grid data
	var rows [][]string
	maxCols := 0

	for _, row := range node.Children {
		if row.Type != TypeTableRow {
			continue
		}

		var rowData []string
		for _, cell := range row.Children {
			// Render cell content to string
			var cellSb strings.Builder
			for _, content := range cell.Children {
				p.walkNode(content, &cellSb, 0)
			}
			// Clean newlines in cells as they break MD tables
			cleanContent := strings.ReplaceAll(cellSb.String(), "\n", " ")
			rowData = append(rowData, cleanContent)
		}
		rows = append(rows, rowData)
		if len(rowData) > maxCols {
			maxCols = len(rowData)
		}
	}

	if len(rows) == 0 {
		return
	}

	// 2. Render Markdown Table
	// Header
	sb.WriteString("|")
	for i := 0; i < maxCols; i++ {
		if i < len(rows[0]) {
			sb.WriteString(" " + rows[0][i] + " |")
		} else {
			sb.WriteString("  |")
		}
	}
	sb.WriteString("\n")

	// Separator
	sb.WriteString("|")
	for i := 0; i < maxCols; i++ {
		sb.WriteString("---|")
	}
	sb.WriteString("\n")

	// Body (skip row 0 as it's used as header)
	for i := 1; i < len(rows); i++ {
		sb.WriteString("|")
		for j := 0; j < maxCols; j++ {
			if j < len(rows[i]) {
				sb.WriteString(" " + rows[i][j] + " |")
			} else {
				sb.WriteString("  |")
			}
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
}
