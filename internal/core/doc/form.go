package doc

import (
	"context"
	"encoding/json"
	"time"
)

type Stage string

const (
	StageDraft      Stage = "draft"
	StageSubmission Stage = "submission"
)

type FormInput struct {
	OwnerID int64
	Type    Type
	Raw     json.RawMessage
	Stage   Stage
}

// Form is a normalized payload ready to persist.
type Form struct {
	Data        json.RawMessage
	Summary     string
	PeriodStart *time.Time
	PeriodEnd   *time.Time
}

// FormValidator validates and normalizes the payload of one document type.
type FormValidator interface {
	Validate(ctx context.Context, in FormInput) (*Form, error)
}

type FormValidatorFunc func(ctx context.Context, in FormInput) (*Form, error)

func (f FormValidatorFunc) Validate(ctx context.Context, in FormInput) (*Form, error) {
	return f(ctx, in)
}
