package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/stackit/stackit/internal/models"
)

type reviewRequest struct {
	Decision string `json:"decision" binding:"required"`
	Notes    string `json:"notes"`
}

func (r *Router) adminDashboard(c *gin.Context) {
	stats, err := r.moderation.Dashboard(c.Request.Context())
	if err != nil {
		r.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// adminDeleteQuestion removes a question and everything hanging off it
func (r *Router) adminDeleteQuestion(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		r.respondError(c, err)
		return
	}
	ctx := c.Request.Context()
	if err := r.questions.Delete(ctx, id); err != nil {
		r.respondError(c, err)
		return
	}
	r.invalidateQuestion(ctx, id)
	if r.deps.TagCache != nil {
		r.deps.TagCache.Delete(suggestionsKey)
	}

	r.logger.Info("Question deleted", zap.Int64("question_id", id), zap.Int64("admin_id", currentUser(c).UserID))
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (r *Router) adminUnflagQuestion(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		r.respondError(c, err)
		return
	}
	ctx := c.Request.Context()
	if err := r.questions.SetModeration(ctx, id, false, models.ModerationApproved); err != nil {
		r.respondError(c, err)
		return
	}
	r.invalidateQuestion(ctx, id)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (r *Router) adminUnflagAnswer(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		r.respondError(c, err)
		return
	}
	ctx := c.Request.Context()
	questionID, err := r.answers.QuestionID(ctx, id)
	if err != nil {
		r.respondError(c, err)
		return
	}
	if err := r.answers.SetModeration(ctx, id, false, models.ModerationApproved); err != nil {
		r.respondError(c, err)
		return
	}
	r.invalidateQuestion(ctx, questionID)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (r *Router) adminModerationQueue(c *gin.Context) {
	records, err := r.moderation.Pending(c.Request.Context())
	if err != nil {
		r.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": records})
}

func (r *Router) adminModerationStats(c *gin.Context) {
	stats, err := r.moderation.Stats(c.Request.Context())
	if err != nil {
		r.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// adminReview records a decision on a pending moderation record
func (r *Router) adminReview(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		r.respondError(c, err)
		return
	}
	var req reviewRequest
	if err := bindJSON(c, &req); err != nil {
		r.respondError(c, err)
		return
	}

	ctx := c.Request.Context()
	record, err := r.moderation.Review(ctx, id, currentUser(c).UserID, req.Decision, req.Notes)
	if err != nil {
		r.respondError(c, err)
		return
	}

	questionID := record.ContentID
	if record.ContentType == models.ContentAnswer {
		if questionID, err = r.answers.QuestionID(ctx, record.ContentID); err != nil {
			r.logger.Warn("Reviewed answer lookup failed", zap.Int64("answer_id", record.ContentID), zap.Error(err))
		}
	}
	if questionID > 0 {
		r.invalidateQuestion(ctx, questionID)
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "record": record})
}

func (r *Router) invalidateQuestion(ctx context.Context, id int64) {
	if err := r.deps.Cache.InvalidateQuestion(ctx, id); err != nil {
		r.logger.Warn("Question cache invalidation failed", zap.Int64("question_id", id), zap.Error(err))
	}
}
