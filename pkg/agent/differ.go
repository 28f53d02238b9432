package agent

import (
	"regexp"
	"strings"

	"ai-docagent-be/pkg/store"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Differ computes the end-of-session change summary by comparing the
// original snapshot's text against the final document text, both normalized
// by stripping address markers.
type Differ struct {
	dmp *diffmatchpatch.DiffMatchPatch
}

// NewDiffer creates a new differ
func NewDiffer() *Differ {
	return &Differ{dmp: diffmatchpatch.New()}
}

var addressMarkerPattern = regexp.MustCompile(`\[(?:ID|LIST|ITEM):[^\]]+\]\s?`)

// StripAddressMarkers removes segmentation annotations from text.
func StripAddressMarkers(text string) string {
	return addressMarkerPattern.ReplaceAllString(text, "")
}

// Compare produces the diff summary between original and final content.
// Line-granular: a changed line counts as one removal plus one addition.
func (d *Differ) Compare(original, final, title string) *store.DiffSummary {
	origNorm := normalizeForDiff(original)
	finalNorm := normalizeForDiff(final)

	summary := &store.DiffSummary{
		OriginalContent: origNorm,
		FinalContent:    finalNorm,
		Title:           title,
	}
	if origNorm == finalNorm {
		return summary
	}

	a, b, lines := d.dmp.DiffLinesToChars(origNorm+"\n", finalNorm+"\n")
	diffs := d.dmp.DiffCharsToLines(d.dmp.DiffMain(a, b, false), lines)

	for _, df := range diffs {
		n := countLines(df.Text)
		switch df.Type {
		case diffmatchpatch.DiffInsert:
			summary.LinesAdded += n
		case diffmatchpatch.DiffDelete:
			summary.LinesRemoved += n
		}
	}
	return summary
}

func normalizeForDiff(text string) string {
	stripped := StripAddressMarkers(text)
	lines := strings.Split(strings.ReplaceAll(stripped, "\r\n", "\n"), "\n")
	var kept []string
	for _, line := range lines {
		kept = append(kept, strings.TrimRight(line, " \t"))
	}
	return strings.TrimRight(strings.Join(kept, "\n"), "\n")
}

func countLines(text string) int {
	n := 0
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	return n
}
