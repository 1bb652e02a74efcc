package domain

import (
	"github.com/google/uuid"
)

// SourceFilter narrows source listings. Nil fields are not applied. A non-nil
// IDs restricts the result to that set before limit and offset apply.
type SourceFilter struct {
	Format         *ContentFormat
	Label          *string
	IDs            []uuid.UUID
	IncludeDeleted bool
	Limit          int
	Offset         int
}

// FlowFilter narrows flow listings. Nil fields are not applied. A non-nil
// IDs restricts the result to that set before limit and offset apply.
type FlowFilter struct {
	SourceID       *uuid.UUID
	Format         *ContentFormat
	Label          *string
	IDs            []uuid.UUID
	IncludeDeleted bool
	Limit          int
	Offset         int
}

// SegmentQuery controls one page of a segment range listing. Cursor is the
// opaque token returned with the previous page, empty for the first page.
type SegmentQuery struct {
	Limit          int
	Cursor         string
	IncludeDeleted bool
}
