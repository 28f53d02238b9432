package document

import "errors"

var (
	// ErrDocumentNotFound indicates the document id has no live tree registered.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrBlockNotFound indicates the addressed block does not exist in the
	// current tree (it may have been deleted by a concurrent collaborator).
	ErrBlockNotFound = errors.New("block not found")

	// ErrListItemNotFound indicates the parent list exists but has no item at
	// the addressed index.
	ErrListItemNotFound = errors.New("list item not found")

	// ErrNotEditable indicates a content rewrite was attempted on a block
	// whose content may only be deleted or relocated.
	ErrNotEditable = errors.New("block is not editable")

	// ErrEmptyReplacement indicates a replace/insert carried no usable content.
	ErrEmptyReplacement = errors.New("empty replacement content")

	// ErrUnknownAction indicates an action outside the supported set.
	ErrUnknownAction = errors.New("unknown edit action")
)
