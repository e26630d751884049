package engine

import "fmt"

// TargetKind names the entity a vote applies to
type TargetKind string

const (
	TargetQuestion TargetKind = "question"
	TargetAnswer   TargetKind = "answer"
)

// Target references exactly one question or one answer
type Target struct {
	Kind TargetKind
	ID   int64
}

// QuestionTarget returns a target for question id
func QuestionTarget(id int64) Target {
	return Target{Kind: TargetQuestion, ID: id}
}

// AnswerTarget returns a target for answer id
func AnswerTarget(id int64) Target {
	return Target{Kind: TargetAnswer, ID: id}
}

// NewTarget builds a target from the optional ids of a request. Exactly one
// of questionID and answerID must be set.
func NewTarget(questionID, answerID *int64) (Target, error) {
	switch {
	case questionID != nil && answerID != nil:
		return Target{}, fmt.Errorf("%w: specify either question_id or answer_id, not both", ErrInvalidInput)
	case questionID != nil:
		return QuestionTarget(*questionID), nil
	case answerID != nil:
		return AnswerTarget(*answerID), nil
	default:
		return Target{}, fmt.Errorf("%w: question_id or answer_id is required", ErrInvalidInput)
	}
}

// Validate checks the target is well formed
func (t Target) Validate() error {
	if t.Kind != TargetQuestion && t.Kind != TargetAnswer {
		return fmt.Errorf("%w: unknown target kind %q", ErrInvalidInput, t.Kind)
	}
	if t.ID <= 0 {
		return fmt.Errorf("%w: invalid %s id %d", ErrInvalidInput, t.Kind, t.ID)
	}
	return nil
}

func (t Target) String() string {
	return fmt.Sprintf("%s:%d", t.Kind, t.ID)
}
