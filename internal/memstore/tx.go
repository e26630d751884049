package memstore

import (
	"fmt"

	"github.com/stackit/stackit/internal/engine"
	"github.com/stackit/stackit/internal/models"
)

type memTx struct {
	store *Store
	st    *state
}

// fault consumes an injected failure for method, if any.
func (t *memTx) fault(method string) error {
	err, ok := t.store.faults[method]
	if !ok {
		return nil
	}
	delete(t.store.faults, method)
	return err
}

func (t *memTx) LockQuestion(id int64) (*models.Question, error) {
	if err := t.fault("LockQuestion"); err != nil {
		return nil, err
	}
	q, ok := t.st.questions[id]
	if !ok {
		return nil, nil
	}
	return &q, nil
}

func (t *memTx) LockAnswer(id int64) (*models.Answer, error) {
	if err := t.fault("LockAnswer"); err != nil {
		return nil, err
	}
	a, ok := t.st.answers[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func matches(v models.Vote, userID int64, target engine.Target) bool {
	if v.UserID != userID {
		return false
	}
	if target.Kind == engine.TargetQuestion {
		return v.QuestionID != nil && *v.QuestionID == target.ID
	}
	return v.AnswerID != nil && *v.AnswerID == target.ID
}

func (t *memTx) FindVote(userID int64, target engine.Target) (*models.Vote, error) {
	if err := t.fault("FindVote"); err != nil {
		return nil, err
	}
	for _, v := range t.st.votes {
		if matches(v, userID, target) {
			return &v, nil
		}
	}
	return nil, nil
}

func (t *memTx) CreateVote(vote *models.Vote) error {
	if err := t.fault("CreateVote"); err != nil {
		return err
	}
	if (vote.QuestionID == nil) == (vote.AnswerID == nil) {
		return fmt.Errorf("%w: vote must reference exactly one target", engine.ErrInternal)
	}
	var target engine.Target
	if vote.QuestionID != nil {
		target = engine.QuestionTarget(*vote.QuestionID)
	} else {
		target = engine.AnswerTarget(*vote.AnswerID)
	}
	for _, v := range t.st.votes {
		if matches(v, vote.UserID, target) {
			return fmt.Errorf("%w: duplicate vote for user %d on %s", engine.ErrTransient, vote.UserID, target)
		}
	}
	vote.ID = t.st.id()
	vote.CreatedAt, vote.UpdatedAt = t.store.now(), t.store.now()
	t.st.votes[vote.ID] = *vote
	return nil
}

func (t *memTx) UpdateVoteType(voteID int64, voteType string) error {
	if err := t.fault("UpdateVoteType"); err != nil {
		return err
	}
	v, ok := t.st.votes[voteID]
	if !ok {
		return fmt.Errorf("%w: vote %d", engine.ErrNotFound, voteID)
	}
	v.VoteType = voteType
	v.UpdatedAt = t.store.now()
	t.st.votes[voteID] = v
	return nil
}

func (t *memTx) DeleteVote(voteID int64) error {
	if err := t.fault("DeleteVote"); err != nil {
		return err
	}
	delete(t.st.votes, voteID)
	return nil
}

func (t *memTx) AddVoteCount(target engine.Target, delta int) (int, error) {
	if err := t.fault("AddVoteCount"); err != nil {
		return 0, err
	}
	if target.Kind == engine.TargetQuestion {
		q, ok := t.st.questions[target.ID]
		if !ok {
			return 0, fmt.Errorf("%w: question %d", engine.ErrNotFound, target.ID)
		}
		q.VoteCount += delta
		t.st.questions[q.ID] = q
		return q.VoteCount, nil
	}
	a, ok := t.st.answers[target.ID]
	if !ok {
		return 0, fmt.Errorf("%w: answer %d", engine.ErrNotFound, target.ID)
	}
	a.VoteCount += delta
	t.st.answers[a.ID] = a
	return a.VoteCount, nil
}

func (t *memTx) ClearAcceptedAnswers(questionID int64) error {
	if err := t.fault("ClearAcceptedAnswers"); err != nil {
		return err
	}
	for id, a := range t.st.answers {
		if a.QuestionID == questionID && a.IsAccepted {
			a.IsAccepted = false
			t.st.answers[id] = a
		}
	}
	return nil
}

func (t *memTx) MarkAnswerAccepted(answerID int64) error {
	if err := t.fault("MarkAnswerAccepted"); err != nil {
		return err
	}
	a, ok := t.st.answers[answerID]
	if !ok {
		return fmt.Errorf("%w: answer %d", engine.ErrNotFound, answerID)
	}
	a.IsAccepted = true
	t.st.answers[answerID] = a
	return nil
}

func (t *memTx) MarkQuestionAnswered(questionID, answerID int64) error {
	if err := t.fault("MarkQuestionAnswered"); err != nil {
		return err
	}
	q, ok := t.st.questions[questionID]
	if !ok {
		return fmt.Errorf("%w: question %d", engine.ErrNotFound, questionID)
	}
	accepted := answerID
	q.Status = models.StatusAnswered
	q.AcceptedAnswerID = &accepted
	q.UpdatedAt = t.store.now()
	t.st.questions[questionID] = q
	return nil
}

func (t *memTx) CreateAnswer(answer *models.Answer) error {
	if err := t.fault("CreateAnswer"); err != nil {
		return err
	}
	answer.ID = t.st.id()
	answer.CreatedAt, answer.UpdatedAt = t.store.now(), t.store.now()
	t.st.answers[answer.ID] = *answer
	return nil
}

func (t *memTx) IncrementAnswerCount(questionID int64) error {
	if err := t.fault("IncrementAnswerCount"); err != nil {
		return err
	}
	q, ok := t.st.questions[questionID]
	if !ok {
		return fmt.Errorf("%w: question %d", engine.ErrNotFound, questionID)
	}
	q.AnswerCount++
	t.st.questions[questionID] = q
	return nil
}

func (t *memTx) CreateNotification(n *models.Notification) error {
	if err := t.fault("CreateNotification"); err != nil {
		return err
	}
	n.ID = t.st.id()
	n.CreatedAt = t.store.now()
	t.st.notifications[n.ID] = *n
	return nil
}

func (t *memTx) CreateModeration(m *models.ContentModeration) error {
	if err := t.fault("CreateModeration"); err != nil {
		return err
	}
	m.ID = t.st.id()
	m.CreatedAt = t.store.now()
	t.st.moderations[m.ID] = *m
	return nil
}
