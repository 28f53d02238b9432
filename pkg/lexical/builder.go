package lexical

import (
	"strconv"
	"strings"
)

// Builder converts markdown-ish text (as produced by the model) back into
// Lexical nodes. It intentionally covers the same grammar the Parser emits;
// anything it does not recognize becomes a plain paragraph.
type Builder struct{}

// NewBuilder creates a new builder instance
func NewBuilder() *Builder {
	return &Builder{}
}

// BuildBlocks parses markdown into a sequence of block-level nodes.
func (b *Builder) BuildBlocks(markdown string) []*Node {
	lines := strings.Split(strings.ReplaceAll(markdown, "\r\n", "\n"), "\n")
	var blocks []*Node

	for i := 0; i < len(lines); i++ {
		line := lines[i]
		trimmed := strings.TrimSpace(line)

		if trimmed == "" {
			continue
		}

		// Code fence
		if strings.HasPrefix(trimmed, "```") {
			lang := strings.TrimPrefix(trimmed, "```")
			var codeLines []string
			i++
			for i < len(lines) && !strings.HasPrefix(strings.TrimSpace(lines[i]), "```") {
				codeLines = append(codeLines, lines[i])
				i++
			}
			blocks = append(blocks, b.buildCode(lang, codeLines))
			continue
		}

		// Horizontal rule
		if trimmed == "---" || trimmed == "***" {
			blocks = append(blocks, &Node{Type: TypeHorizontalRule, Version: 1})
			continue
		}

		// Heading
		if level := headingLevel(trimmed); level > 0 {
			blocks = append(blocks, &Node{
				Type:     TypeHeading,
				Version:  1,
				Tag:      "h" + strconv.Itoa(level),
				Children: b.BuildInline(strings.TrimSpace(trimmed[level+1:])),
			})
			continue
		}

		// Quote
		if strings.HasPrefix(trimmed, "> ") {
			blocks = append(blocks, &Node{
				Type:     TypeQuote,
				Version:  1,
				Children: b.BuildInline(strings.TrimPrefix(trimmed, "> ")),
			})
			continue
		}

		// Image
		if strings.HasPrefix(trimmed, "![") {
			if img := parseImageLine(trimmed); img != nil {
				blocks = append(blocks, img)
				continue
			}
		}

		// List: group consecutive items of the same list kind
		if listType, _, _ := parseListLine(trimmed); listType != "" {
			list := &Node{Type: TypeList, Version: 1, ListType: listType, Start: 1}
			for i < len(lines) {
				lt, content, checked := parseListLine(strings.TrimSpace(lines[i]))
				if lt != listType {
					break
				}
				item := &Node{
					Type:     TypeListItem,
					Version:  1,
					Checked:  checked,
					Value:    len(list.Children) + 1,
					Children: b.BuildInline(content),
				}
				list.Children = append(list.Children, item)
				i++
			}
			i--
			blocks = append(blocks, list)
			continue
		}

		// Default: paragraph
		blocks = append(blocks, &Node{
			Type:     TypeParagraph,
			Version:  1,
			Children: b.BuildInline(trimmed),
		})
	}

	return blocks
}

// BuildListItem constructs a list item node for the given list type, parsing
// the content as inline markdown. Checkbox items start unchecked.
func (b *Builder) BuildListItem(listType, content string) *Node {
	return &Node{
		Type:     TypeListItem,
		Version:  1,
		Children: b.BuildInline(StripListMarker(content)),
	}
}

// StripListMarker removes a leading list marker ("- ", "3. ", "- [ ] ",
// "- [x] ") the model may have echoed back into item content.
func StripListMarker(s string) string {
	trimmed := strings.TrimLeft(s, " \t")
	for _, prefix := range []string{"- [ ] ", "- [x] ", "- [X] ", "- ", "* "} {
		if strings.HasPrefix(trimmed, prefix) {
			return trimmed[len(prefix):]
		}
	}
	// Ordered marker: digits followed by ". "
	i := 0
	for i < len(trimmed) && trimmed[i] >= '0' && trimmed[i] <= '9' {
		i++
	}
	if i > 0 && i+1 < len(trimmed) && trimmed[i] == '.' && trimmed[i+1] == ' ' {
		return trimmed[i+2:]
	}
	return trimmed
}

func (b *Builder) buildCode(lang string, codeLines []string) *Node {
	code := &Node{Type: TypeCode, Version: 1, Language: strings.TrimSpace(lang)}
	for i, line := range codeLines {
		if i > 0 {
			code.Children = append(code.Children, &Node{Type: "linebreak", Version: 1})
		}
		code.Children = append(code.Children, &Node{Type: TypeText, Version: 1, Text: line})
	}
	return code
}

// BuildInline parses inline markdown (bold, italic, code, strikethrough,
// links) into text and link nodes.
func (b *Builder) BuildInline(text string) []*Node {
	return buildInline(text, 0)
}

func buildInline(text string, format int) []*Node {
	var nodes []*Node
	var plain strings.Builder

	flush := func() {
		if plain.Len() > 0 {
			nodes = append(nodes, textNode(plain.String(), format))
			plain.Reset()
		}
	}

	i := 0
	for i < len(text) {
		// Link: [label](url)
		if text[i] == '[' {
			if label, url, consumed := parseLink(text[i:]); consumed > 0 {
				flush()
				nodes = append(nodes, &Node{
					Type:     TypeLink,
					Version:  1,
					URL:      url,
					Children: buildInline(label, format),
				})
				i += consumed
				continue
			}
		}

		matched := false
		for _, d := range inlineDelims {
			if !strings.HasPrefix(text[i:], d.open) {
				continue
			}
			end := strings.Index(text[i+len(d.open):], d.open)
			if end < 0 {
				continue
			}
			inner := text[i+len(d.open) : i+len(d.open)+end]
			flush()
			if d.bit == FormatCode {
				// Code spans are literal
				nodes = append(nodes, textNode(inner, format|FormatCode))
			} else {
				nodes = append(nodes, buildInline(inner, format|d.bit)...)
			}
			i += 2*len(d.open) + end
			matched = true
			break
		}
		if matched {
			continue
		}

		plain.WriteByte(text[i])
		i++
	}
	flush()
	return nodes
}

// Ordering matters: longer delimiters are tried first so "**" is not
// consumed as two italics.
var inlineDelims = []struct {
	open string
	bit  int
}{
	{"**", FormatBold},
	{"~~", FormatStrikethrough},
	{"`", FormatCode},
	{"_", FormatItalic},
	{"*", FormatItalic},
}

func textNode(text string, format int) *Node {
	n := &Node{Type: TypeText, Version: 1, Text: text}
	if format != 0 {
		n.Format = format
	}
	return n
}

func headingLevel(line string) int {
	level := 0
	for level < len(line) && line[level] == '#' {
		level++
	}
	if level >= 1 && level <= 6 && level < len(line) && line[level] == ' ' {
		return level
	}
	return 0
}

// parseListLine returns (listType, content, checked) or ("", "", false).
func parseListLine(line string) (string, string, bool) {
	switch {
	case strings.HasPrefix(line, "- [ ] "):
		return "check", line[6:], false
	case strings.HasPrefix(line, "- [x] "), strings.HasPrefix(line, "- [X] "):
		return "check", line[6:], true
	case strings.HasPrefix(line, "- "):
		return "bullet", line[2:], false
	case strings.HasPrefix(line, "* "):
		return "bullet", line[2:], false
	}
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i > 0 && i+1 < len(line) && line[i] == '.' && line[i+1] == ' ' {
		return "number", line[i+2:], false
	}
	return "", "", false
}

// parseLink parses "[label](url)" at the start of s, returning the label,
// url and total bytes consumed (0 when s is not a link).
func parseLink(s string) (string, string, int) {
	closeBracket := strings.Index(s, "](")
	if closeBracket < 0 {
		return "", "", 0
	}
	closeParen := strings.Index(s[closeBracket:], ")")
	if closeParen < 0 {
		return "", "", 0
	}
	label := s[1:closeBracket]
	url := s[closeBracket+2 : closeBracket+closeParen]
	return label, url, closeBracket + closeParen + 1
}

func parseImageLine(line string) *Node {
	// ![alt](src)
	if !strings.HasPrefix(line, "![") {
		return nil
	}
	closeBracket := strings.Index(line, "](")
	if closeBracket < 0 || !strings.HasSuffix(line, ")") {
		return nil
	}
	return &Node{
		Type:    TypeImage,
		Version: 1,
		AltText: line[2:closeBracket],
		Src:     line[closeBracket+2 : len(line)-1],
	}
}
