package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stackit/stackit/internal/engine"
)

type voteRequest struct {
	QuestionID *int64 `json:"question_id"`
	AnswerID   *int64 `json:"answer_id"`
	VoteType   string `json:"vote_type" binding:"required"`
}

// castVote applies the caller's vote to a question or answer
func (r *Router) castVote(c *gin.Context) {
	var req voteRequest
	if err := bindJSON(c, &req); err != nil {
		r.respondError(c, err)
		return
	}

	target, err := engine.NewTarget(req.QuestionID, req.AnswerID)
	if err != nil {
		r.respondError(c, err)
		return
	}

	res, err := r.deps.Engine.CastVote(c.Request.Context(), engine.CastVoteRequest{
		UserID:   currentUser(c).UserID,
		Target:   target,
		VoteType: req.VoteType,
	})
	if err != nil {
		r.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"vote_count": res.VoteCount,
		"user_vote":  optionalString(res.UserVote),
		"outcome":    res.Outcome,
	})
}
