package mapper

import (
	"ai-docagent-be/internal/dto"
	"ai-docagent-be/pkg/document"
)

type DocumentMapper struct{}

func NewDocumentMapper() *DocumentMapper {
	return &DocumentMapper{}
}

func (m *DocumentMapper) SegmentationToDTO(seg *document.Segmentation) dto.SegmentDocumentResponse {
	out := dto.SegmentDocumentResponse{
		Blocks:    make([]dto.BlockDTO, 0, len(seg.Blocks)),
		Annotated: seg.Annotated,
	}
	for _, b := range seg.Blocks {
		out.Blocks = append(out.Blocks, m.BlockToDTO(b))
	}
	return out
}

func (m *DocumentMapper) BlockToDTO(b document.BlockDescriptor) dto.BlockDTO {
	out := dto.BlockDTO{
		BlockId:  b.BlockID,
		Type:     b.Type,
		Editable: b.Editable,
		Content:  b.Content,
		Index:    b.Index,
		ListType: b.ListType,
	}
	for _, item := range b.Items {
		out.Items = append(out.Items, dto.ListItemDTO{
			Address:   item.Address,
			ItemIndex: item.ItemIndex,
			ListType:  item.ListType,
			Checked:   item.Checked,
			Content:   item.Content,
		})
	}
	return out
}
