package domain

import (
	"time"

	"github.com/google/uuid"
)

// Flow is one encoded rendition of a Source's content over time. The essence
// is a tagged union keyed by Format: exactly one of the essence pointers is
// set, and Validate enforces the per-format required fields.
type Flow struct {
	ID          uuid.UUID
	SourceID    uuid.UUID
	Format      ContentFormat
	Codec       *string
	Container   *string
	Label       *string
	Description *string
	ReadOnly    bool
	CreatedBy   string
	UpdatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Video *VideoEssence
	Audio *AudioEssence
	Image *ImageEssence
	Data  *DataEssence

	// Collection holds the constituent Flow IDs for a "multi" flow.
	Collection []uuid.UUID

	Deleted   bool
	DeletedAt *time.Time
	DeletedBy *string
}

// VideoEssence holds the required parameters of a video flow.
type VideoEssence struct {
	FrameWidth  int
	FrameHeight int
	FrameRate   string // rational, e.g. "25/1"
	Interlaced  bool
}

// AudioEssence holds the required parameters of an audio flow.
type AudioEssence struct {
	SampleRate    int
	BitsPerSample int
	Channels      int
}

// ImageEssence holds the required parameters of an image flow.
type ImageEssence struct {
	FrameWidth  int
	FrameHeight int
}

// DataEssence holds the parameters of a data flow. No fields are required;
// MimeType documents the payload when known.
type DataEssence struct {
	MimeType *string
}

// IsDeleted returns true if the flow has been soft-deleted.
func (f *Flow) IsDeleted() bool {
	return f.Deleted
}

// Validate checks the tagged-union invariants: the format is known and the
// matching essence is present with all of its required fields.
func (f *Flow) Validate() error {
	if !f.Format.IsValid() {
		return NewValidationError("format", "must be one of video, audio, image, data, multi")
	}
	if f.SourceID == uuid.Nil {
		return NewValidationError("source_id", "required")
	}

	switch f.Format {
	case ContentFormatVideo:
		return f.validateVideo()
	case ContentFormatAudio:
		return f.validateAudio()
	case ContentFormatImage:
		return f.validateImage()
	case ContentFormatData:
		return nil
	case ContentFormatMulti:
		return f.validateMulti()
	}
	return nil
}

func (f *Flow) validateVideo() error {
	if f.Video == nil {
		return NewValidationError("video", "required for video flows")
	}
	var errs []FieldError
	if f.Video.FrameWidth <= 0 {
		errs = append(errs, FieldError{Field: "frame_width", Message: "required and must be positive"})
	}
	if f.Video.FrameHeight <= 0 {
		errs = append(errs, FieldError{Field: "frame_height", Message: "required and must be positive"})
	}
	if f.Video.FrameRate == "" {
		errs = append(errs, FieldError{Field: "frame_rate", Message: "required"})
	}
	if len(errs) > 0 {
		return NewValidationErrors(errs)
	}
	return nil
}

func (f *Flow) validateAudio() error {
	if f.Audio == nil {
		return NewValidationError("audio", "required for audio flows")
	}
	var errs []FieldError
	if f.Audio.SampleRate <= 0 {
		errs = append(errs, FieldError{Field: "sample_rate", Message: "required and must be positive"})
	}
	if f.Audio.BitsPerSample <= 0 {
		errs = append(errs, FieldError{Field: "bits_per_sample", Message: "required and must be positive"})
	}
	if f.Audio.Channels <= 0 {
		errs = append(errs, FieldError{Field: "channels", Message: "required and must be positive"})
	}
	if len(errs) > 0 {
		return NewValidationErrors(errs)
	}
	return nil
}

func (f *Flow) validateImage() error {
	if f.Image == nil {
		return NewValidationError("image", "required for image flows")
	}
	var errs []FieldError
	if f.Image.FrameWidth <= 0 {
		errs = append(errs, FieldError{Field: "frame_width", Message: "required and must be positive"})
	}
	if f.Image.FrameHeight <= 0 {
		errs = append(errs, FieldError{Field: "frame_height", Message: "required and must be positive"})
	}
	if len(errs) > 0 {
		return NewValidationErrors(errs)
	}
	return nil
}

func (f *Flow) validateMulti() error {
	if f.Video != nil || f.Audio != nil || f.Image != nil || f.Data != nil {
		return NewValidationError("format", "multi flows carry no essence of their own")
	}
	return nil
}

// FlowUpdateParams carries partial updates for a flow.
// nil means "leave unchanged"; a pointer to "" clears the field.
type FlowUpdateParams struct {
	Label       *string
	Description *string
	ReadOnly    *bool
}
