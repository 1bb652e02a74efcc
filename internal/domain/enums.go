package domain

// ContentFormat identifies the essence kind of a Source or Flow.
type ContentFormat string

const (
	ContentFormatVideo ContentFormat = "video"
	ContentFormatAudio ContentFormat = "audio"
	ContentFormatImage ContentFormat = "image"
	ContentFormatData  ContentFormat = "data"
	ContentFormatMulti ContentFormat = "multi"
)

func (f ContentFormat) String() string { return string(f) }

func (f ContentFormat) IsValid() bool {
	switch f {
	case ContentFormatVideo, ContentFormatAudio, ContentFormatImage,
		ContentFormatData, ContentFormatMulti:
		return true
	}
	return false
}

// EntityType identifies the kind of entity a tag is attached to.
type EntityType string

const (
	EntityTypeSource  EntityType = "source"
	EntityTypeFlow    EntityType = "flow"
	EntityTypeSegment EntityType = "segment"
)

func (e EntityType) String() string { return string(e) }

func (e EntityType) IsValid() bool {
	switch e {
	case EntityTypeSource, EntityTypeFlow, EntityTypeSegment:
		return true
	}
	return false
}

// DeletionStatus is the lifecycle state of a DeletionRequest.
// Transitions: pending -> in_progress -> completed | failed (terminal).
type DeletionStatus string

const (
	DeletionStatusPending    DeletionStatus = "pending"
	DeletionStatusInProgress DeletionStatus = "in_progress"
	DeletionStatusCompleted  DeletionStatus = "completed"
	DeletionStatusFailed     DeletionStatus = "failed"
)

func (s DeletionStatus) String() string { return string(s) }

func (s DeletionStatus) IsValid() bool {
	switch s {
	case DeletionStatusPending, DeletionStatusInProgress,
		DeletionStatusCompleted, DeletionStatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether the status admits no further transitions.
func (s DeletionStatus) IsTerminal() bool {
	return s == DeletionStatusCompleted || s == DeletionStatusFailed
}

// EventType names a catalog mutation carried on an event envelope.
type EventType string

const (
	EventSourceCreated    EventType = "source.created"
	EventSourceUpdated    EventType = "source.updated"
	EventSourceDeleted    EventType = "source.deleted"
	EventFlowCreated      EventType = "flow.created"
	EventFlowUpdated      EventType = "flow.updated"
	EventFlowDeleted      EventType = "flow.deleted"
	EventSegmentCreated   EventType = "segment.created"
	EventSegmentDeleted   EventType = "segment.deleted"
	EventDeletionFinished EventType = "deletion.finished"
)

func (e EventType) String() string { return string(e) }

func (e EventType) IsValid() bool {
	switch e {
	case EventSourceCreated, EventSourceUpdated, EventSourceDeleted,
		EventFlowCreated, EventFlowUpdated, EventFlowDeleted,
		EventSegmentCreated, EventSegmentDeleted, EventDeletionFinished:
		return true
	}
	return false
}
