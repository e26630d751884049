// Package memstore is an in-process engine.Store. Units of work run one at a
// time against a copy of the state that replaces the original only on success.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/stackit/stackit/internal/engine"
	"github.com/stackit/stackit/internal/models"
)

type state struct {
	nextID        int64
	questions     map[int64]models.Question
	answers       map[int64]models.Answer
	votes         map[int64]models.Vote
	notifications map[int64]models.Notification
	moderations   map[int64]models.ContentModeration
}

func newState() *state {
	return &state{
		questions:     make(map[int64]models.Question),
		answers:       make(map[int64]models.Answer),
		votes:         make(map[int64]models.Vote),
		notifications: make(map[int64]models.Notification),
		moderations:   make(map[int64]models.ContentModeration),
	}
}

func (s *state) clone() *state {
	c := newState()
	c.nextID = s.nextID
	for k, v := range s.questions {
		c.questions[k] = v
	}
	for k, v := range s.answers {
		c.answers[k] = v
	}
	for k, v := range s.votes {
		c.votes[k] = v
	}
	for k, v := range s.notifications {
		c.notifications[k] = v
	}
	for k, v := range s.moderations {
		c.moderations[k] = v
	}
	return c
}

func (s *state) id() int64 {
	s.nextID++
	return s.nextID
}

// Store is an in-memory engine.Store
type Store struct {
	mu     sync.Mutex
	state  *state
	faults map[string]error
	txs    int
	now    func() time.Time
}

// New creates an empty store
func New() *Store {
	return &Store{
		state:  newState(),
		faults: make(map[string]error),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Transaction implements engine.Store
func (s *Store) Transaction(ctx context.Context, fn func(tx engine.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", engine.ErrTransient, err)
	}
	s.txs++

	tx := &memTx{store: s, st: s.state.clone()}
	if err := fn(tx); err != nil {
		return err
	}
	s.state = tx.st
	return nil
}

// FailOn makes the next call to the named Tx method fail with err.
func (s *Store) FailOn(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[method] = err
}

// Transactions returns how many units of work have been started
func (s *Store) Transactions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.txs
}

// AddQuestion seeds a question and returns its id
func (s *Store) AddQuestion(q models.Question) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	q.ID = s.state.id()
	if q.Status == "" {
		q.Status = models.StatusUnanswered
	}
	q.CreatedAt, q.UpdatedAt = s.now(), s.now()
	s.state.questions[q.ID] = q
	return q.ID
}

// AddAnswer seeds an answer and returns its id
func (s *Store) AddAnswer(a models.Answer) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = s.state.id()
	a.CreatedAt, a.UpdatedAt = s.now(), s.now()
	s.state.answers[a.ID] = a
	if q, ok := s.state.questions[a.QuestionID]; ok {
		q.AnswerCount++
		s.state.questions[q.ID] = q
	}
	return a.ID
}

// Question returns a committed question
func (s *Store) Question(id int64) (models.Question, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.state.questions[id]
	return q, ok
}

// Answer returns a committed answer
func (s *Store) Answer(id int64) (models.Answer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.state.answers[id]
	return a, ok
}

// Answers returns the committed answers of a question ordered by id
func (s *Store) Answers(questionID int64) []models.Answer {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Answer
	for _, a := range s.state.answers {
		if a.QuestionID == questionID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Votes returns all committed votes ordered by id
func (s *Store) Votes() []models.Vote {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Vote, 0, len(s.state.votes))
	for _, v := range s.state.votes {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Notifications returns all committed notifications ordered by id
func (s *Store) Notifications() []models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Notification, 0, len(s.state.notifications))
	for _, n := range s.state.notifications {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Moderations returns all committed moderation records ordered by id
func (s *Store) Moderations() []models.ContentModeration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ContentModeration, 0, len(s.state.moderations))
	for _, m := range s.state.moderations {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
