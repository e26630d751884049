package engine_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/stackit/stackit/internal/engine"
	"github.com/stackit/stackit/internal/memstore"
	"github.com/stackit/stackit/internal/models"
	"github.com/stackit/stackit/pkg/config"
)

const (
	author = int64(100)
	voter  = int64(200)
)

type recordingInvalidator struct {
	mu  sync.Mutex
	ids []int64
}

func (r *recordingInvalidator) InvalidateQuestion(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, id)
	return nil
}

type wordScreener []string

func (w wordScreener) Screen(text string) []string {
	for _, word := range w {
		if word == text {
			return []string{word}
		}
	}
	return nil
}

func newEngine(t *testing.T) (*engine.Engine, *memstore.Store, *recordingInvalidator) {
	t.Helper()
	store := memstore.New()
	inv := &recordingInvalidator{}
	e := engine.New(store, inv, wordScreener{"darn"}, &config.EngineConfig{MaxRetries: 2})
	return e, store, inv
}

func seed(store *memstore.Store) (qid, aid int64) {
	qid = store.AddQuestion(models.Question{UserID: author, Title: "How do I vote?"})
	aid = store.AddAnswer(models.Answer{QuestionID: qid, UserID: author + 1, Content: "Like this"})
	return qid, aid
}

func TestCastVote_Ledger(t *testing.T) {
	tests := []struct {
		name        string
		votes       []string
		wantCount   int
		wantOutcome engine.VoteOutcome
		wantVote    string
	}{
		{name: "first upvote", votes: []string{models.VoteUp}, wantCount: 1, wantOutcome: engine.VoteCreated, wantVote: models.VoteUp},
		{name: "first downvote", votes: []string{models.VoteDown}, wantCount: -1, wantOutcome: engine.VoteCreated, wantVote: models.VoteDown},
		{name: "upvote toggled off", votes: []string{models.VoteUp, models.VoteUp}, wantCount: 0, wantOutcome: engine.VoteRemoved},
		{name: "downvote toggled off", votes: []string{models.VoteDown, models.VoteDown}, wantCount: 0, wantOutcome: engine.VoteRemoved},
		{name: "up swings to down", votes: []string{models.VoteUp, models.VoteDown}, wantCount: -1, wantOutcome: engine.VoteChanged, wantVote: models.VoteDown},
		{name: "down swings to up", votes: []string{models.VoteDown, models.VoteUp}, wantCount: 1, wantOutcome: engine.VoteChanged, wantVote: models.VoteUp},
		{name: "toggle off then vote again", votes: []string{models.VoteUp, models.VoteUp, models.VoteDown}, wantCount: -1, wantOutcome: engine.VoteCreated, wantVote: models.VoteDown},
	}

	for _, kind := range []engine.TargetKind{engine.TargetQuestion, engine.TargetAnswer} {
		for _, tt := range tests {
			t.Run(string(kind)+"/"+tt.name, func(t *testing.T) {
				e, store, _ := newEngine(t)
				qid, aid := seed(store)
				target := engine.QuestionTarget(qid)
				if kind == engine.TargetAnswer {
					target = engine.AnswerTarget(aid)
				}

				var res *engine.VoteResult
				for _, vt := range tt.votes {
					var err error
					res, err = e.CastVote(context.Background(), engine.CastVoteRequest{UserID: voter, Target: target, VoteType: vt})
					if err != nil {
						t.Fatalf("CastVote() error = %v", err)
					}
				}

				if res.VoteCount != tt.wantCount {
					t.Errorf("VoteCount = %d, want %d", res.VoteCount, tt.wantCount)
				}
				if res.Outcome != tt.wantOutcome {
					t.Errorf("Outcome = %v, want %v", res.Outcome, tt.wantOutcome)
				}
				if res.UserVote != tt.wantVote {
					t.Errorf("UserVote = %q, want %q", res.UserVote, tt.wantVote)
				}

				stored := storedCount(store, target)
				if stored != tt.wantCount {
					t.Errorf("stored vote_count = %d, want %d", stored, tt.wantCount)
				}
				if n := len(store.Votes()); (tt.wantVote == "" && n != 0) || (tt.wantVote != "" && n != 1) {
					t.Errorf("stored votes = %d, want standing vote %q", n, tt.wantVote)
				}
			})
		}
	}
}

func storedCount(store *memstore.Store, target engine.Target) int {
	if target.Kind == engine.TargetQuestion {
		q, _ := store.Question(target.ID)
		return q.VoteCount
	}
	a, _ := store.Answer(target.ID)
	return a.VoteCount
}

func TestCastVote_CountMatchesLedger(t *testing.T) {
	e, store, _ := newEngine(t)
	qid, aid := seed(store)
	targets := []engine.Target{engine.QuestionTarget(qid), engine.AnswerTarget(aid)}
	voteTypes := []string{models.VoteUp, models.VoteDown}

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 500; i++ {
		req := engine.CastVoteRequest{
			UserID:   int64(1 + rng.Intn(8)),
			Target:   targets[rng.Intn(len(targets))],
			VoteType: voteTypes[rng.Intn(len(voteTypes))],
		}
		if _, err := e.CastVote(context.Background(), req); err != nil {
			t.Fatalf("CastVote(%+v) error = %v", req, err)
		}
	}

	seen := make(map[string]bool)
	sums := make(map[engine.Target]int)
	for _, v := range store.Votes() {
		var target engine.Target
		if v.QuestionID != nil {
			target = engine.QuestionTarget(*v.QuestionID)
		} else {
			target = engine.AnswerTarget(*v.AnswerID)
		}
		key := fmt.Sprintf("%s/%d", target, v.UserID)
		if seen[key] {
			t.Errorf("duplicate vote for user %d on %s", v.UserID, target)
		}
		seen[key] = true
		if v.VoteType == models.VoteUp {
			sums[target]++
		} else {
			sums[target]--
		}
	}

	for _, target := range targets {
		if got := storedCount(store, target); got != sums[target] {
			t.Errorf("%s vote_count = %d, ledger sum = %d", target, got, sums[target])
		}
	}
}

func TestCastVote_Notifications(t *testing.T) {
	tests := []struct {
		name      string
		voter     int64
		onAnswer  bool
		votes     []string
		wantTypes []string
	}{
		{name: "upvote on answer notifies author", voter: voter, onAnswer: true, votes: []string{models.VoteUp}, wantTypes: []string{models.NotifyTypeUpvote}},
		{name: "downvote on answer notifies author", voter: voter, onAnswer: true, votes: []string{models.VoteDown}, wantTypes: []string{models.NotifyTypeDownvote}},
		{name: "swing notifies again", voter: voter, onAnswer: true, votes: []string{models.VoteUp, models.VoteDown}, wantTypes: []string{models.NotifyTypeUpvote, models.NotifyTypeDownvote}},
		{name: "toggle off notifies again", voter: voter, onAnswer: true, votes: []string{models.VoteUp, models.VoteUp}, wantTypes: []string{models.NotifyTypeUpvote, models.NotifyTypeUpvote}},
		{name: "downvote toggle off keeps its type", voter: voter, onAnswer: true, votes: []string{models.VoteDown, models.VoteDown}, wantTypes: []string{models.NotifyTypeDownvote, models.NotifyTypeDownvote}},
		{name: "self vote is silent", voter: author + 1, onAnswer: true, votes: []string{models.VoteUp}},
		{name: "question vote is silent", voter: voter, votes: []string{models.VoteUp}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, store, _ := newEngine(t)
			qid, aid := seed(store)
			target := engine.QuestionTarget(qid)
			if tt.onAnswer {
				target = engine.AnswerTarget(aid)
			}
			for _, vt := range tt.votes {
				if _, err := e.CastVote(context.Background(), engine.CastVoteRequest{UserID: tt.voter, Target: target, VoteType: vt}); err != nil {
					t.Fatalf("CastVote() error = %v", err)
				}
			}

			notes := store.Notifications()
			if len(notes) != len(tt.wantTypes) {
				t.Fatalf("got %d notifications, want %d", len(notes), len(tt.wantTypes))
			}
			for i, n := range notes {
				if n.Type != tt.wantTypes[i] {
					t.Errorf("notification[%d].Type = %q, want %q", i, n.Type, tt.wantTypes[i])
				}
				if n.UserID != author+1 {
					t.Errorf("notification[%d].UserID = %d, want answer author %d", i, n.UserID, author+1)
				}
				if n.IsRead {
					t.Errorf("notification[%d] should start unread", i)
				}
				if n.RelatedAnswerID == nil || *n.RelatedAnswerID != aid {
					t.Errorf("notification[%d].RelatedAnswerID = %v, want %d", i, n.RelatedAnswerID, aid)
				}
			}
		})
	}
}

func TestCastVote_Validation(t *testing.T) {
	e, store, _ := newEngine(t)
	qid, _ := seed(store)

	tests := []struct {
		name    string
		req     engine.CastVoteRequest
		wantErr error
	}{
		{name: "anonymous", req: engine.CastVoteRequest{Target: engine.QuestionTarget(qid), VoteType: models.VoteUp}, wantErr: engine.ErrUnauthenticated},
		{name: "bad vote type", req: engine.CastVoteRequest{UserID: voter, Target: engine.QuestionTarget(qid), VoteType: "sideways"}, wantErr: engine.ErrInvalidInput},
		{name: "empty target", req: engine.CastVoteRequest{UserID: voter, VoteType: models.VoteUp}, wantErr: engine.ErrInvalidInput},
		{name: "zero id", req: engine.CastVoteRequest{UserID: voter, Target: engine.AnswerTarget(0), VoteType: models.VoteUp}, wantErr: engine.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.CastVote(context.Background(), tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("CastVote() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if got := store.Transactions(); got != 0 {
		t.Errorf("Transactions() = %d, validation failures must not reach the store", got)
	}
}

func TestCastVote_MissingTarget(t *testing.T) {
	e, _, _ := newEngine(t)
	for _, target := range []engine.Target{engine.QuestionTarget(999), engine.AnswerTarget(999)} {
		_, err := e.CastVote(context.Background(), engine.CastVoteRequest{UserID: voter, Target: target, VoteType: models.VoteUp})
		if !errors.Is(err, engine.ErrNotFound) {
			t.Errorf("CastVote(%s) error = %v, want ErrNotFound", target, err)
		}
	}
}

func TestNewTarget(t *testing.T) {
	one := int64(1)
	tests := []struct {
		name       string
		questionID *int64
		answerID   *int64
		want       engine.Target
		wantErr    bool
	}{
		{name: "question", questionID: &one, want: engine.QuestionTarget(1)},
		{name: "answer", answerID: &one, want: engine.AnswerTarget(1)},
		{name: "both", questionID: &one, answerID: &one, wantErr: true},
		{name: "neither", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := engine.NewTarget(tt.questionID, tt.answerID)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewTarget() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, engine.ErrInvalidInput) {
				t.Errorf("NewTarget() error = %v, want ErrInvalidInput", err)
			}
			if got != tt.want {
				t.Errorf("NewTarget() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCastVote_NotificationFailureRollsBack(t *testing.T) {
	e, store, _ := newEngine(t)
	_, aid := seed(store)
	store.FailOn("CreateNotification", errors.New("disk full"))

	_, err := e.CastVote(context.Background(), engine.CastVoteRequest{UserID: voter, Target: engine.AnswerTarget(aid), VoteType: models.VoteUp})
	if !errors.Is(err, engine.ErrInternal) {
		t.Fatalf("CastVote() error = %v, want ErrInternal", err)
	}

	a, _ := store.Answer(aid)
	if a.VoteCount != 0 {
		t.Errorf("VoteCount = %d, want 0 after rollback", a.VoteCount)
	}
	if len(store.Votes()) != 0 {
		t.Errorf("Votes() = %v, want none after rollback", store.Votes())
	}
}

func TestCastVote_RetriesTransientFailures(t *testing.T) {
	e, store, _ := newEngine(t)
	qid, _ := seed(store)
	store.FailOn("FindVote", engine.ErrTransient)

	res, err := e.CastVote(context.Background(), engine.CastVoteRequest{UserID: voter, Target: engine.QuestionTarget(qid), VoteType: models.VoteUp})
	if err != nil {
		t.Fatalf("CastVote() error = %v", err)
	}
	if res.VoteCount != 1 {
		t.Errorf("VoteCount = %d, want 1", res.VoteCount)
	}
	if got := store.Transactions(); got != 2 {
		t.Errorf("Transactions() = %d, want 2", got)
	}
}

func TestCastVote_GivesUpAfterRetries(t *testing.T) {
	store := memstore.New()
	qid, _ := seed(store)
	e := engine.New(store, nil, nil, &config.EngineConfig{MaxRetries: 0})
	store.FailOn("LockQuestion", engine.ErrTransient)

	_, err := e.CastVote(context.Background(), engine.CastVoteRequest{UserID: voter, Target: engine.QuestionTarget(qid), VoteType: models.VoteUp})
	if !errors.Is(err, engine.ErrTransient) {
		t.Fatalf("CastVote() error = %v, want ErrTransient", err)
	}
	if q, _ := store.Question(qid); q.VoteCount != 0 {
		t.Errorf("VoteCount = %d, want 0", q.VoteCount)
	}
}

func TestCastVote_ConcurrentVoters(t *testing.T) {
	e, store, _ := newEngine(t)
	_, aid := seed(store)

	const voters = 50
	var wg sync.WaitGroup
	errs := make(chan error, voters*2)
	for i := 0; i < voters; i++ {
		wg.Add(1)
		go func(user int64) {
			defer wg.Done()
			req := engine.CastVoteRequest{UserID: user, Target: engine.AnswerTarget(aid), VoteType: models.VoteUp}
			if _, err := e.CastVote(context.Background(), req); err != nil {
				errs <- err
			}
		}(int64(1000 + i))
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("CastVote() error = %v", err)
	}

	a, _ := store.Answer(aid)
	if a.VoteCount != voters {
		t.Errorf("VoteCount = %d, want %d", a.VoteCount, voters)
	}
	if len(store.Notifications()) != voters {
		t.Errorf("notifications = %d, want %d", len(store.Notifications()), voters)
	}
}

func TestCastVote_InvalidatesQuestion(t *testing.T) {
	e, store, inv := newEngine(t)
	qid, aid := seed(store)

	if _, err := e.CastVote(context.Background(), engine.CastVoteRequest{UserID: voter, Target: engine.AnswerTarget(aid), VoteType: models.VoteUp}); err != nil {
		t.Fatalf("CastVote() error = %v", err)
	}
	if len(inv.ids) != 1 || inv.ids[0] != qid {
		t.Errorf("invalidated = %v, want [%d]", inv.ids, qid)
	}
}
