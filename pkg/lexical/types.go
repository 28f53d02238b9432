package lexical

// LexicalRoot represents the top-level structure
type LexicalRoot struct {
	Root *Node `json:"root"`
}

// Node represents any node in the Lexical tree.
// Children are pointers so that editing transactions can mutate spans in place.
type Node struct {
	Type    string `json:"type"`
	Version int    `json:"version,omitempty"`

	// Stable block identity. Only addressable (block-level) nodes carry one;
	// assignment and repair is owned by pkg/document.
	ID string `json:"id,omitempty"`

	Children []*Node `json:"children,omitempty"`

	// Text specific
	Text   string      `json:"text,omitempty"`
	Format interface{} `json:"format,omitempty"` // int (bitmask) for text, string (alignment) for elements
	Style  string      `json:"style,omitempty"`
	Mode   string      `json:"mode,omitempty"`
	Detail int         `json:"detail,omitempty"`

	// Element specific
	Direction  string `json:"direction,omitempty"`
	Indent     int    `json:"indent,omitempty"`
	TextFormat int    `json:"textFormat,omitempty"`

	// Link specific
	URL    string `json:"url,omitempty"`
	Rel    string `json:"rel,omitempty"`
	Target string `json:"target,omitempty"`
	Title  string `json:"title,omitempty"`

	// Heading specific: h1..h6
	Tag string `json:"tag,omitempty"`

	// List specific
	ListType string `json:"listType,omitempty"` // check, bullet, number
	Start    int    `json:"start,omitempty"`

	// ListItem specific
	Checked bool `json:"checked,omitempty"`
	Value   int  `json:"value,omitempty"`

	// Code block specific
	Language string `json:"language,omitempty"`

	// Image / media specific
	Src     string `json:"src,omitempty"`
	AltText string `json:"altText,omitempty"`

	// Equation specific
	Equation string `json:"equation,omitempty"`

	// Table specific
	ColSpan     int `json:"colSpan,omitempty"`
	RowSpan     int `json:"rowSpan,omitempty"`
	HeaderState int `json:"headerState,omitempty"` // 1 = header, 0 = normal
}

// Node type names as emitted by the editor.
const (
	TypeRoot           = "root"
	TypeParagraph      = "paragraph"
	TypeHeading        = "heading"
	TypeQuote          = "quote"
	TypeText           = "text"
	TypeList           = "list"
	TypeListItem       = "listitem"
	TypeLink           = "link"
	TypeCode           = "code"
	TypeTable          = "table"
	TypeTableRow       = "tablerow"
	TypeTableCell      = "tablecell"
	TypeImage          = "image"
	TypeEquation       = "equation"
	TypeHorizontalRule = "horizontalrule"
	TypeTOC            = "table-of-contents"
	TypeAttachment     = "attachment"
)

// Constants for Text Format Bitmask
const (
	FormatBold          = 1
	FormatItalic        = 2
	FormatStrikethrough = 4
	FormatUnderline     = 8
	FormatCode          = 16
	FormatSubscript     = 32
	FormatSuperscript   = 64
	FormatHighlight     = 1 << 7
)

// FormatBits normalizes the Format field, which decodes as float64 from JSON.
func (n *Node) FormatBits() int {
	switch f := n.Format.(type) {
	case float64:
		return int(f)
	case int:
		return f
	default:
		return 0
	}
}

// Alignment returns the element-level alignment string, if any.
func (n *Node) Alignment() string {
	if s, ok := n.Format.(string); ok {
		return s
	}
	return ""
}
