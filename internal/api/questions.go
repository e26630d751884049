package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/stackit/stackit/internal/cache"
	"github.com/stackit/stackit/internal/db"
	"github.com/stackit/stackit/internal/engine"
	"github.com/stackit/stackit/internal/models"
)

const maxTitleLength = 255

type createQuestionRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

type answerView struct {
	models.Answer
	ContentHTML string  `json:"content_html"`
	UserVote    *string `json:"user_vote"`
}

// questionDetail is the cached question page. UserVote fields are filled per
// request and never cached.
type questionDetail struct {
	Question        models.Question `json:"question"`
	DescriptionHTML string          `json:"description_html"`
	Answers         []answerView    `json:"answers"`
	UserVote        *string         `json:"user_vote"`
}

// listQuestions returns a filtered page of questions
func (r *Router) listQuestions(c *gin.Context) {
	page, err := r.questions.List(c.Request.Context(), db.ListParams{
		Filter:            c.DefaultQuery("filter", db.FilterNewest),
		Search:            c.Query("search"),
		Page:              queryInt(c, "page"),
		Limit:             queryInt(c, "limit"),
		IncludeUnapproved: isAdmin(c),
	})
	if err != nil {
		r.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"questions":       page.Questions,
		"total_pages":     page.TotalPages,
		"current_page":    page.Page,
		"total_questions": page.Total,
	})
}

// createQuestion stores a question with its tags
func (r *Router) createQuestion(c *gin.Context) {
	var req createQuestionRequest
	if err := bindJSON(c, &req); err != nil {
		r.respondError(c, err)
		return
	}

	title := strings.TrimSpace(req.Title)
	description := strings.TrimSpace(req.Description)
	tags := db.NormalizeTags(req.Tags)
	if title == "" || description == "" || len(tags) == 0 {
		r.respondError(c, fmt.Errorf("%w: title, description and at least one tag are required", engine.ErrInvalidInput))
		return
	}
	if len(title) > maxTitleLength {
		r.respondError(c, fmt.Errorf("%w: title must be at most %d characters", engine.ErrInvalidInput, maxTitleLength))
		return
	}

	var flagged []string
	if r.deps.Filter != nil {
		flagged = r.deps.Filter.Screen(title + "\n" + description)
	}

	q := &models.Question{
		UserID:      currentUser(c).UserID,
		Title:       title,
		Description: description,
	}
	if err := r.questions.Create(c.Request.Context(), q, tags, flagged); err != nil {
		r.respondError(c, err)
		return
	}
	if r.deps.TagCache != nil {
		r.deps.TagCache.Delete(suggestionsKey)
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":     true,
		"question_id": q.ID,
		"flagged":     len(flagged) > 0,
	})
}

// getQuestion returns a question page and counts the view
func (r *Router) getQuestion(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		r.respondError(c, err)
		return
	}
	ctx := c.Request.Context()
	claims := currentUser(c)
	admin := isAdmin(c)

	// The view counter doubles as the visibility check, so unapproved
	// questions 404 before anything is read from the cache.
	views, err := r.questions.IncrementViews(ctx, id, admin)
	if err != nil {
		r.respondError(c, err)
		return
	}

	detail, err := r.loadQuestionDetail(ctx, id, admin)
	if err != nil {
		r.respondError(c, err)
		return
	}
	detail.Question.ViewCount = views

	if claims != nil {
		votes, err := r.answers.UserVotes(ctx, claims.UserID, id)
		if err != nil {
			r.respondError(c, err)
			return
		}
		detail.UserVote = optionalString(votes[engine.QuestionTarget(id)])
		for i := range detail.Answers {
			detail.Answers[i].UserVote = optionalString(votes[engine.AnswerTarget(detail.Answers[i].ID)])
		}
	}

	c.JSON(http.StatusOK, detail)
}

// loadQuestionDetail reads the question page from Redis, building and caching
// it on a miss. Only the public page is cached; admin pages, which include
// unapproved answers, are always built fresh.
func (r *Router) loadQuestionDetail(ctx context.Context, id int64, admin bool) (*questionDetail, error) {
	key := cache.QuestionKey(id)

	var detail questionDetail
	if !admin {
		err := r.deps.Cache.GetJSON(ctx, key, &detail)
		if err == nil {
			return &detail, nil
		}
		if !errors.Is(err, cache.ErrMiss) && !errors.Is(err, cache.ErrCacheDisabled) {
			r.logger.Warn("Question cache read failed", zap.Int64("question_id", id), zap.Error(err))
		}
	}

	q, err := r.questions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if q == nil {
		return nil, fmt.Errorf("%w: question %d", engine.ErrNotFound, id)
	}
	answers, err := r.answers.ListByQuestion(ctx, id, admin)
	if err != nil {
		return nil, err
	}

	detail = questionDetail{
		Question:        *q,
		DescriptionHTML: r.render(q.Description),
		Answers:         make([]answerView, 0, len(answers)),
	}
	for _, a := range answers {
		detail.Answers = append(detail.Answers, answerView{Answer: a, ContentHTML: r.render(a.Content)})
	}

	if admin {
		return &detail, nil
	}
	err = r.deps.Cache.SetJSON(ctx, key, &detail, r.deps.CacheConfig.QuestionTTL)
	if err != nil && !errors.Is(err, cache.ErrCacheDisabled) {
		r.logger.Warn("Question cache write failed", zap.Int64("question_id", id), zap.Error(err))
	}
	return &detail, nil
}

func (r *Router) render(src string) string {
	if r.deps.Renderer == nil {
		return ""
	}
	return r.deps.Renderer.Render(src)
}
