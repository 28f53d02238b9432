package lexical

import (
	"strings"
)

// StyleMap represents parsed CSS styles
type StyleMap map[string]string

// Styles preserved when annotating text for model context. Everything else
// (fonts, sizes, margins) is noise the model should not try to reproduce.
var annotatedStyles = []string{"color", "background-color", "text-transform"}

// ParseStyle parses a CSS style string into a map
// Example: "color: #F97316; background-color: #BFDBFE;"
func ParseStyle(styleStr string) StyleMap {
	styles := make(StyleMap)
	if styleStr == "" {
		return styles
	}

	for _, part := range strings.Split(styleStr, ";") {
		kv := strings.SplitN(part, ":", 2)
		if len(kv) != 2 {
			continue
		}
		k := strings.TrimSpace(kv[0])
		v := strings.TrimSpace(kv[1])
		if k != "" && v != "" {
			styles[k] = v
		}
	}
	return styles
}

// BuildAnnotatedOpenTag creates an HTML span carrying only the meaningful
// styles. Returns empty string if no relevant styles are present.
func (s StyleMap) BuildAnnotatedOpenTag() string {
	var relevant []string
	for _, k := range annotatedStyles {
		if v, ok := s[k]; ok {
			relevant = append(relevant, k+":"+v)
		}
	}

	if len(relevant) == 0 {
		return ""
	}
	return "<span style=\"" + strings.Join(relevant, "; ") + "\">"
}
