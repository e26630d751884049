package api_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/stackit/stackit/internal/api"
	"github.com/stackit/stackit/internal/auth"
	"github.com/stackit/stackit/internal/engine"
	"github.com/stackit/stackit/internal/memstore"
	"github.com/stackit/stackit/internal/models"
	"github.com/stackit/stackit/pkg/config"
)

const (
	asker    = int64(1)
	answerer = int64(2)
	voter    = int64(3)
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	handler  http.Handler
	store    *memstore.Store
	tokens   *auth.Manager
	question int64
	answer   int64
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	store := memstore.New()
	tokens, err := auth.NewManager(&config.AuthConfig{JWTSecret: "test-secret", TokenTTL: time.Hour})
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}

	router := api.NewRouter(api.Deps{
		Engine: engine.New(store, nil, nil, &config.EngineConfig{MaxRetries: 1}),
		Auth:   tokens,
	})
	e := gin.New()
	e.Use(gin.Recovery())
	router.SetupRoutes(e)

	qid := store.AddQuestion(models.Question{UserID: asker, Title: "Why gin?"})
	aid := store.AddAnswer(models.Answer{QuestionID: qid, UserID: answerer, Content: "Because."})

	return &testServer{handler: e, store: store, tokens: tokens, question: qid, answer: aid}
}

func (s *testServer) token(t *testing.T, userID int64, role string) string {
	t.Helper()
	token, err := s.tokens.Issue(&models.User{ID: userID, Username: fmt.Sprintf("user%d", userID), Role: role})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	return token
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) (int, map[string]interface{}) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	var out map[string]interface{}
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode response %q: %v", rec.Body.String(), err)
		}
	}
	return rec.Code, out
}

func TestCastVote(t *testing.T) {
	s := newTestServer(t)
	token := s.token(t, voter, models.RoleUser)
	body := map[string]interface{}{"answer_id": s.answer, "vote_type": models.VoteUp}

	code, resp := s.do(t, http.MethodPost, "/api/votes", token, body)
	if code != http.StatusOK {
		t.Fatalf("first vote status = %d, body %v", code, resp)
	}
	if resp["vote_count"] != float64(1) || resp["user_vote"] != models.VoteUp {
		t.Errorf("first vote = %v, want vote_count 1 and user_vote upvote", resp)
	}

	code, resp = s.do(t, http.MethodPost, "/api/votes", token, body)
	if code != http.StatusOK {
		t.Fatalf("toggle status = %d, body %v", code, resp)
	}
	if resp["vote_count"] != float64(0) || resp["user_vote"] != nil {
		t.Errorf("toggle = %v, want vote_count 0 and null user_vote", resp)
	}

	body["vote_type"] = models.VoteDown
	code, resp = s.do(t, http.MethodPost, "/api/votes", token, body)
	if code != http.StatusOK || resp["vote_count"] != float64(-1) {
		t.Errorf("downvote = %d %v, want 200 with vote_count -1", code, resp)
	}
}

func TestCastVote_Errors(t *testing.T) {
	s := newTestServer(t)
	token := s.token(t, voter, models.RoleUser)

	tests := []struct {
		name     string
		token    string
		body     interface{}
		wantCode int
	}{
		{
			name:     "no token",
			body:     map[string]interface{}{"answer_id": s.answer, "vote_type": models.VoteUp},
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "garbage token",
			token:    "not-a-jwt",
			body:     map[string]interface{}{"answer_id": s.answer, "vote_type": models.VoteUp},
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "unknown vote type",
			token:    token,
			body:     map[string]interface{}{"answer_id": s.answer, "vote_type": "sideways"},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "missing vote type",
			token:    token,
			body:     map[string]interface{}{"answer_id": s.answer},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "both targets",
			token:    token,
			body:     map[string]interface{}{"question_id": s.question, "answer_id": s.answer, "vote_type": models.VoteUp},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "no target",
			token:    token,
			body:     map[string]interface{}{"vote_type": models.VoteUp},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "missing answer",
			token:    token,
			body:     map[string]interface{}{"answer_id": 9999, "vote_type": models.VoteUp},
			wantCode: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, resp := s.do(t, http.MethodPost, "/api/votes", tt.token, tt.body)
			if code != tt.wantCode {
				t.Fatalf("status = %d, want %d (body %v)", code, tt.wantCode, resp)
			}
			if _, ok := resp["error"].(string); !ok {
				t.Errorf("body %v has no error message", resp)
			}
		})
	}

	if votes := s.store.Votes(); len(votes) != 0 {
		t.Errorf("rejected requests left %d votes behind", len(votes))
	}
}

func TestAcceptAnswer(t *testing.T) {
	s := newTestServer(t)
	path := fmt.Sprintf("/api/questions/%d/accept", s.question)
	body := map[string]interface{}{"answer_id": s.answer}

	code, _ := s.do(t, http.MethodPost, path, s.token(t, voter, models.RoleUser), body)
	if code != http.StatusForbidden {
		t.Errorf("non-owner status = %d, want %d", code, http.StatusForbidden)
	}

	code, resp := s.do(t, http.MethodPost, path, s.token(t, asker, models.RoleUser), body)
	if code != http.StatusOK || resp["success"] != true {
		t.Fatalf("owner accept = %d %v", code, resp)
	}

	q, _ := s.store.Question(s.question)
	if q.Status != models.StatusAnswered || q.AcceptedAnswerID == nil || *q.AcceptedAnswerID != s.answer {
		t.Errorf("question after accept = %+v", q)
	}

	other := s.store.AddQuestion(models.Question{UserID: asker, Title: "Another"})
	code, _ = s.do(t, http.MethodPost, fmt.Sprintf("/api/questions/%d/accept", other), s.token(t, asker, models.RoleUser), body)
	if code != http.StatusBadRequest {
		t.Errorf("foreign answer status = %d, want %d", code, http.StatusBadRequest)
	}
}

func TestPostAnswer(t *testing.T) {
	s := newTestServer(t)
	path := fmt.Sprintf("/api/questions/%d/answers", s.question)
	token := s.token(t, voter, models.RoleUser)

	code, _ := s.do(t, http.MethodPost, path, token, map[string]string{"content": "   "})
	if code != http.StatusBadRequest {
		t.Errorf("blank content status = %d, want %d", code, http.StatusBadRequest)
	}

	code, resp := s.do(t, http.MethodPost, path, token, map[string]string{"content": "Use a transaction."})
	if code != http.StatusCreated {
		t.Fatalf("post status = %d, body %v", code, resp)
	}
	if _, ok := resp["answer_id"].(float64); !ok {
		t.Errorf("response %v has no answer_id", resp)
	}

	q, _ := s.store.Question(s.question)
	if q.AnswerCount != 2 {
		t.Errorf("AnswerCount = %d, want 2", q.AnswerCount)
	}

	code, _ = s.do(t, http.MethodPost, "/api/questions/abc/answers", token, map[string]string{"content": "x"})
	if code != http.StatusBadRequest {
		t.Errorf("bad id status = %d, want %d", code, http.StatusBadRequest)
	}
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	s := newTestServer(t)

	code, _ := s.do(t, http.MethodGet, "/api/admin/dashboard", "", nil)
	if code != http.StatusUnauthorized {
		t.Errorf("anonymous status = %d, want %d", code, http.StatusUnauthorized)
	}
	code, _ = s.do(t, http.MethodGet, "/api/admin/dashboard", s.token(t, voter, models.RoleUser), nil)
	if code != http.StatusForbidden {
		t.Errorf("user status = %d, want %d", code, http.StatusForbidden)
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("response has no X-Request-ID header")
	}
}

func TestFromError(t *testing.T) {
	tests := []struct {
		err      error
		wantCode int
	}{
		{fmt.Errorf("%w: bad", engine.ErrInvalidInput), http.StatusBadRequest},
		{engine.ErrUnauthenticated, http.StatusUnauthorized},
		{engine.ErrForbidden, http.StatusForbidden},
		{fmt.Errorf("%w: question 1", engine.ErrNotFound), http.StatusNotFound},
		{engine.ErrConflict, http.StatusConflict},
		{fmt.Errorf("%w: deadlock", engine.ErrTransient), http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			got := api.FromError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("FromError(%v).Code = %d, want %d", tt.err, got.Code, tt.wantCode)
			}
		})
	}

	if msg := api.FromError(errors.New("pq: secret detail")).Message; msg != "internal server error" {
		t.Errorf("internal message = %q, leaks detail", msg)
	}
}
