package engine_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stackit/stackit/internal/engine"
	"github.com/stackit/stackit/internal/memstore"
	"github.com/stackit/stackit/internal/models"
)

// assertAcceptance checks the acceptance invariants for a question.
func assertAcceptance(t *testing.T, store *memstore.Store, qid int64, want int64) {
	t.Helper()
	q, _ := store.Question(qid)

	var accepted []int64
	for _, a := range store.Answers(qid) {
		if a.IsAccepted {
			accepted = append(accepted, a.ID)
		}
	}

	if want == 0 {
		if len(accepted) != 0 || q.AcceptedAnswerID != nil || q.Status != models.StatusUnanswered {
			t.Errorf("question %d: accepted=%v accepted_answer_id=%v status=%s, want none/unanswered",
				qid, accepted, q.AcceptedAnswerID, q.Status)
		}
		return
	}
	if len(accepted) != 1 || accepted[0] != want {
		t.Errorf("accepted answers = %v, want [%d]", accepted, want)
	}
	if q.AcceptedAnswerID == nil || *q.AcceptedAnswerID != want {
		t.Errorf("accepted_answer_id = %v, want %d", q.AcceptedAnswerID, want)
	}
	if q.Status != models.StatusAnswered {
		t.Errorf("status = %s, want %s", q.Status, models.StatusAnswered)
	}
}

func TestAcceptAnswer(t *testing.T) {
	e, store, inv := newEngine(t)
	qid, aid := seed(store)

	res, err := e.AcceptAnswer(context.Background(), engine.AcceptAnswerRequest{RequesterID: author, QuestionID: qid, AnswerID: aid})
	if err != nil {
		t.Fatalf("AcceptAnswer() error = %v", err)
	}
	if res.Unchanged || res.Displaced != nil || !res.Notified {
		t.Errorf("AcceptAnswer() = %+v, want fresh notified acceptance", res)
	}
	assertAcceptance(t, store, qid, aid)

	notes := store.Notifications()
	if len(notes) != 1 {
		t.Fatalf("got %d notifications, want 1", len(notes))
	}
	n := notes[0]
	if n.Type != models.NotifyTypeAccept || n.UserID != author+1 || n.Title != "Answer Accepted" {
		t.Errorf("notification = %+v, want accept for answer author", n)
	}
	if n.RelatedQuestionID == nil || *n.RelatedQuestionID != qid || n.RelatedAnswerID == nil || *n.RelatedAnswerID != aid {
		t.Errorf("notification refs = %v/%v, want %d/%d", n.RelatedQuestionID, n.RelatedAnswerID, qid, aid)
	}
	if len(inv.ids) != 1 || inv.ids[0] != qid {
		t.Errorf("invalidated = %v, want [%d]", inv.ids, qid)
	}
}

func TestAcceptAnswer_Displaces(t *testing.T) {
	e, store, _ := newEngine(t)
	qid, first := seed(store)
	second := store.AddAnswer(models.Answer{QuestionID: qid, UserID: voter, Content: "Better"})
	ctx := context.Background()

	if _, err := e.AcceptAnswer(ctx, engine.AcceptAnswerRequest{RequesterID: author, QuestionID: qid, AnswerID: first}); err != nil {
		t.Fatalf("AcceptAnswer(first) error = %v", err)
	}
	res, err := e.AcceptAnswer(ctx, engine.AcceptAnswerRequest{RequesterID: author, QuestionID: qid, AnswerID: second})
	if err != nil {
		t.Fatalf("AcceptAnswer(second) error = %v", err)
	}
	if res.Displaced == nil || *res.Displaced != first {
		t.Errorf("Displaced = %v, want %d", res.Displaced, first)
	}
	assertAcceptance(t, store, qid, second)
}

func TestAcceptAnswer_Idempotent(t *testing.T) {
	e, store, _ := newEngine(t)
	qid, aid := seed(store)
	req := engine.AcceptAnswerRequest{RequesterID: author, QuestionID: qid, AnswerID: aid}

	if _, err := e.AcceptAnswer(context.Background(), req); err != nil {
		t.Fatalf("AcceptAnswer() error = %v", err)
	}
	res, err := e.AcceptAnswer(context.Background(), req)
	if err != nil {
		t.Fatalf("second AcceptAnswer() error = %v", err)
	}
	if !res.Unchanged {
		t.Error("second acceptance should report Unchanged")
	}
	if got := len(store.Notifications()); got != 1 {
		t.Errorf("notifications = %d, want 1", got)
	}
	assertAcceptance(t, store, qid, aid)
}

func TestAcceptAnswer_OwnAnswerIsSilent(t *testing.T) {
	e, store, _ := newEngine(t)
	qid := store.AddQuestion(models.Question{UserID: author, Title: "Self"})
	aid := store.AddAnswer(models.Answer{QuestionID: qid, UserID: author, Content: "Figured it out"})

	res, err := e.AcceptAnswer(context.Background(), engine.AcceptAnswerRequest{RequesterID: author, QuestionID: qid, AnswerID: aid})
	if err != nil {
		t.Fatalf("AcceptAnswer() error = %v", err)
	}
	if res.Notified || len(store.Notifications()) != 0 {
		t.Errorf("self acceptance should not notify, got %v", store.Notifications())
	}
	assertAcceptance(t, store, qid, aid)
}

func TestAcceptAnswer_Errors(t *testing.T) {
	e, store, _ := newEngine(t)
	qid, aid := seed(store)
	otherQ := store.AddQuestion(models.Question{UserID: author, Title: "Other"})
	otherA := store.AddAnswer(models.Answer{QuestionID: otherQ, UserID: voter, Content: "Elsewhere"})

	tests := []struct {
		name    string
		req     engine.AcceptAnswerRequest
		wantErr error
	}{
		{name: "anonymous", req: engine.AcceptAnswerRequest{QuestionID: qid, AnswerID: aid}, wantErr: engine.ErrUnauthenticated},
		{name: "missing ids", req: engine.AcceptAnswerRequest{RequesterID: author}, wantErr: engine.ErrInvalidInput},
		{name: "not the owner", req: engine.AcceptAnswerRequest{RequesterID: voter, QuestionID: qid, AnswerID: aid}, wantErr: engine.ErrForbidden},
		{name: "missing question", req: engine.AcceptAnswerRequest{RequesterID: author, QuestionID: 999, AnswerID: aid}, wantErr: engine.ErrNotFound},
		{name: "missing answer", req: engine.AcceptAnswerRequest{RequesterID: author, QuestionID: qid, AnswerID: 999}, wantErr: engine.ErrNotFound},
		{name: "answer of another question", req: engine.AcceptAnswerRequest{RequesterID: author, QuestionID: qid, AnswerID: otherA}, wantErr: engine.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.AcceptAnswer(context.Background(), tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("AcceptAnswer() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	assertAcceptance(t, store, qid, 0)
	assertAcceptance(t, store, otherQ, 0)
	if len(store.Notifications()) != 0 {
		t.Errorf("failed acceptances wrote notifications: %v", store.Notifications())
	}
}

func TestAcceptAnswer_PartialFailureRollsBack(t *testing.T) {
	e, store, _ := newEngine(t)
	qid, first := seed(store)
	second := store.AddAnswer(models.Answer{QuestionID: qid, UserID: voter, Content: "Better"})
	ctx := context.Background()

	if _, err := e.AcceptAnswer(ctx, engine.AcceptAnswerRequest{RequesterID: author, QuestionID: qid, AnswerID: first}); err != nil {
		t.Fatalf("AcceptAnswer(first) error = %v", err)
	}

	store.FailOn("MarkQuestionAnswered", errors.New("connection reset"))
	if _, err := e.AcceptAnswer(ctx, engine.AcceptAnswerRequest{RequesterID: author, QuestionID: qid, AnswerID: second}); err == nil {
		t.Fatal("AcceptAnswer(second) should fail")
	}
	assertAcceptance(t, store, qid, first)
}

func TestAcceptAnswer_ConcurrentAcceptances(t *testing.T) {
	e, store, _ := newEngine(t)
	qid, _ := seed(store)
	var answers []int64
	for i := 0; i < 10; i++ {
		answers = append(answers, store.AddAnswer(models.Answer{QuestionID: qid, UserID: int64(500 + i), Content: "candidate"}))
	}

	var wg sync.WaitGroup
	for _, aid := range answers {
		wg.Add(1)
		go func(aid int64) {
			defer wg.Done()
			if _, err := e.AcceptAnswer(context.Background(), engine.AcceptAnswerRequest{RequesterID: author, QuestionID: qid, AnswerID: aid}); err != nil {
				t.Errorf("AcceptAnswer(%d) error = %v", aid, err)
			}
		}(aid)
	}
	wg.Wait()

	q, _ := store.Question(qid)
	if q.AcceptedAnswerID == nil {
		t.Fatal("no answer accepted")
	}
	assertAcceptance(t, store, qid, *q.AcceptedAnswerID)
}
