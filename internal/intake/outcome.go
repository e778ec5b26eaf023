// Package intake is the user-facing edge of the submission pipeline. It
// validates the two free-text fields, runs the pipeline and turns every
// result, including failures, into a displayable outcome.
package intake

import (
	"context"
	"errors"
	"strings"

	"github.com/aretw0/catset/pkg/core"
)

// Messages shown to the user.
const (
	MsgMissingCode    = "Please enter the Java code."
	MsgMissingComment = "Please enter a comment for the code."
	MsgSuccess        = "Entry successfully added to the dataset."
)

// Level is the severity of an outcome.
type Level string

const (
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Submission is one (code, comment) pair as entered by the user.
type Submission struct {
	Code    string `json:"code"`
	Comment string `json:"comment"`
}

// Validate rejects blank fields, code first.
func (s Submission) Validate() error {
	if strings.TrimSpace(s.Code) == "" {
		return &core.ValidationError{Field: "code"}
	}
	if strings.TrimSpace(s.Comment) == "" {
		return &core.ValidationError{Field: "comment"}
	}
	return nil
}

// Stage names the pipeline step an outcome stopped at.
type Stage string

const (
	StageValidate Stage = "validate"
	StageTokenize Stage = "tokenize"
	StageTag      Stage = "tag"
	StageStore    Stage = "store"
	StageDone     Stage = "done"
)

// Outcome is what the intake surface reports back.
type Outcome struct {
	OK      bool        `json:"ok"`
	Level   Level       `json:"level"`
	Stage   Stage       `json:"stage"`
	Message string      `json:"message"`
	Entry   *core.Entry `json:"entry,omitempty"`
}

// Submitter runs the submission pipeline.
type Submitter interface {
	Submit(ctx context.Context, code, comment string) (core.Entry, error)
}

// Process validates sub and, if both fields are present, submits it.
// It never returns an error: failures become error outcomes.
func Process(ctx context.Context, s Submitter, sub Submission) Outcome {
	if err := sub.Validate(); err != nil {
		return Failure(err)
	}
	entry, err := s.Submit(ctx, sub.Code, sub.Comment)
	if err != nil {
		return Failure(err)
	}
	return Outcome{OK: true, Level: LevelSuccess, Stage: StageDone, Message: MsgSuccess, Entry: &entry}
}

// Failure maps a pipeline error to its outcome. The message carries the
// underlying error text.
func Failure(err error) Outcome {
	var (
		validation *core.ValidationError
		tokenize   *core.TokenizationError
		tagging    *core.TagGenerationError
		store      *core.StoreError
	)
	switch {
	case errors.As(err, &validation):
		msg := MsgMissingCode
		if validation.Field == "comment" {
			msg = MsgMissingComment
		}
		return Outcome{Level: LevelWarning, Stage: StageValidate, Message: msg}
	case errors.As(err, &tokenize):
		return failure(StageTokenize, "Error tokenizing code: "+tokenize.Err.Error())
	case errors.As(err, &tagging):
		return failure(StageTag, "Error generating CAT: "+tagging.Err.Error())
	case errors.As(err, &store):
		return failure(StageStore, "Error saving to dataset: "+store.Err.Error())
	}
	return failure("", "Error: "+err.Error())
}

func failure(stage Stage, msg string) Outcome {
	return Outcome{Level: LevelError, Stage: stage, Message: msg}
}
