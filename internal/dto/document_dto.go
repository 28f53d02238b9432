package dto

type CreateDocumentRequest struct {
	Id      string `json:"id,omitempty"`
	Content string `json:"content" validate:"required"` // serialized editor state JSON
}

type CreateDocumentResponse struct {
	Id     string `json:"id"`
	Blocks int    `json:"blocks"` // how many blocks received fresh ids
}

type GetDocumentResponse struct {
	Id       string `json:"id"`
	Content  string `json:"content"`
	Markdown string `json:"markdown"`
}

type UpdateDocumentRequest struct {
	Id      string `json:"id"`
	Content string `json:"content" validate:"required"`
}

type SegmentDocumentResponse struct {
	Blocks    []BlockDTO `json:"blocks"`
	Annotated string     `json:"annotated"`
}

type BlockDTO struct {
	BlockId  string        `json:"block_id"`
	Type     string        `json:"type"`
	Editable bool          `json:"editable"`
	Content  string        `json:"content"`
	Index    int           `json:"index"`
	ListType string        `json:"list_type,omitempty"`
	Items    []ListItemDTO `json:"items,omitempty"`
}

type ListItemDTO struct {
	Address   string `json:"address"`
	ItemIndex int    `json:"item_index"`
	ListType  string `json:"list_type"`
	Checked   bool   `json:"checked"`
	Content   string `json:"content"`
}

type ApplyEditRequest struct {
	BlockId       string `json:"block_id" validate:"required"`
	Action        string `json:"action" validate:"required,oneof=replace delete insertAfter moveAfter"`
	ReplaceWith   string `json:"replace_with,omitempty"`
	TargetBlockId string `json:"target_block_id,omitempty"`
}

type ApplyEditResponse struct {
	Applied bool   `json:"applied"`
	Error   string `json:"error,omitempty"`
}
