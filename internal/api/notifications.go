package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// listNotifications returns the caller's newest notifications
func (r *Router) listNotifications(c *gin.Context) {
	notifications, err := r.notifications.ListForUser(c.Request.Context(), currentUser(c).UserID, queryInt(c, "limit"))
	if err != nil {
		r.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": notifications})
}

func (r *Router) unreadNotifications(c *gin.Context) {
	count, err := r.notifications.UnreadCount(c.Request.Context(), currentUser(c).UserID)
	if err != nil {
		r.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": count})
}

func (r *Router) markNotificationRead(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		r.respondError(c, err)
		return
	}
	if err := r.notifications.MarkRead(c.Request.Context(), currentUser(c).UserID, id); err != nil {
		r.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (r *Router) markAllNotificationsRead(c *gin.Context) {
	updated, err := r.notifications.MarkAllRead(c.Request.Context(), currentUser(c).UserID)
	if err != nil {
		r.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "updated": updated})
}
