package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stackit/stackit/internal/engine"
)

type postAnswerRequest struct {
	Content string `json:"content"`
}

type acceptRequest struct {
	AnswerID int64 `json:"answer_id"`
}

// listAnswers returns a question's answers, accepted first
func (r *Router) listAnswers(c *gin.Context) {
	questionID, err := pathID(c, "id")
	if err != nil {
		r.respondError(c, err)
		return
	}

	answers, err := r.answers.ListByQuestion(c.Request.Context(), questionID, isAdmin(c))
	if err != nil {
		r.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"answers": answers})
}

// postAnswer answers a question on behalf of the caller
func (r *Router) postAnswer(c *gin.Context) {
	questionID, err := pathID(c, "id")
	if err != nil {
		r.respondError(c, err)
		return
	}
	var req postAnswerRequest
	if err := bindJSON(c, &req); err != nil {
		r.respondError(c, err)
		return
	}

	res, err := r.deps.Engine.PostAnswer(c.Request.Context(), engine.PostAnswerRequest{
		AuthorID:   currentUser(c).UserID,
		QuestionID: questionID,
		Content:    req.Content,
	})
	if err != nil {
		r.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":   true,
		"answer_id": res.AnswerID,
		"flagged":   res.Flagged,
	})
}

// acceptAnswer marks an answer as accepted. Only the question author may.
func (r *Router) acceptAnswer(c *gin.Context) {
	questionID, err := pathID(c, "id")
	if err != nil {
		r.respondError(c, err)
		return
	}
	var req acceptRequest
	if err := bindJSON(c, &req); err != nil {
		r.respondError(c, err)
		return
	}

	res, err := r.deps.Engine.AcceptAnswer(c.Request.Context(), engine.AcceptAnswerRequest{
		RequesterID: currentUser(c).UserID,
		QuestionID:  questionID,
		AnswerID:    req.AnswerID,
	})
	if err != nil {
		r.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":            true,
		"accepted_answer_id": res.AnswerID,
		"displaced":          res.Displaced,
	})
}
