package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	suggestionsKey   = "suggestions"
	suggestionsLimit = 20
)

// listTags returns every tag
func (r *Router) listTags(c *gin.Context) {
	tags, err := r.tags.List(c.Request.Context())
	if err != nil {
		r.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tags": tags})
}

// tagSuggestions returns the most used tags, served from the in-process LRU
func (r *Router) tagSuggestions(c *gin.Context) {
	if r.deps.TagCache != nil {
		if tags, ok := r.deps.TagCache.Get(suggestionsKey); ok {
			c.JSON(http.StatusOK, gin.H{"tags": tags})
			return
		}
	}

	tags, err := r.tags.Popular(c.Request.Context(), suggestionsLimit)
	if err != nil {
		r.respondError(c, err)
		return
	}
	if r.deps.TagCache != nil {
		r.deps.TagCache.Set(suggestionsKey, tags)
	}
	c.JSON(http.StatusOK, gin.H{"tags": tags})
}
