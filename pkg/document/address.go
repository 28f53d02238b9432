package document

import (
	"fmt"
	"regexp"
	"strconv"
)

// Composite list-item addresses have the form "{parentBlockId}_item{N}".
// Block ids themselves may contain underscores, so the suffix is anchored.
var itemAddressPattern = regexp.MustCompile(`^(.+)_item(\d+)$`)

// ListItemAddress builds the externally visible address of one list item.
func ListItemAddress(parentBlockID string, itemIndex int) string {
	return fmt.Sprintf("%s_item%d", parentBlockID, itemIndex)
}

// ParseAddress splits an address into its parent id and item index.
// isItem is false for plain top-level block addresses.
func ParseAddress(address string) (parentID string, itemIndex int, isItem bool) {
	m := itemAddressPattern.FindStringSubmatch(address)
	if m == nil {
		return address, 0, false
	}
	idx, err := strconv.Atoi(m[2])
	if err != nil {
		return address, 0, false
	}
	return m[1], idx, true
}
