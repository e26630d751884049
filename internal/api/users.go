package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/stackit/stackit/internal/auth"
	"github.com/stackit/stackit/internal/engine"
	"github.com/stackit/stackit/internal/models"
)

type registerRequest struct {
	Username string `json:"username" binding:"required,max=50"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// register creates an account and signs the caller in
func (r *Router) register(c *gin.Context) {
	var req registerRequest
	if err := bindJSON(c, &req); err != nil {
		r.respondError(c, err)
		return
	}
	if len(req.Password) < auth.MinPasswordLength {
		r.respondError(c, fmt.Errorf("%w: password must be at least %d characters", engine.ErrInvalidInput, auth.MinPasswordLength))
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		r.respondError(c, err)
		return
	}
	user := &models.User{
		Username:     strings.TrimSpace(req.Username),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hash,
		Role:         models.RoleUser,
	}
	if err := r.users.Create(c.Request.Context(), user); err != nil {
		r.respondError(c, err)
		return
	}

	r.respondWithToken(c, http.StatusCreated, user)
}

// login exchanges credentials for a token
func (r *Router) login(c *gin.Context) {
	var req loginRequest
	if err := bindJSON(c, &req); err != nil {
		r.respondError(c, err)
		return
	}

	user, err := r.users.GetByEmail(c.Request.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		r.respondError(c, err)
		return
	}
	if user == nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
		r.respondError(c, fmt.Errorf("%w: invalid email or password", engine.ErrUnauthenticated))
		return
	}

	r.respondWithToken(c, http.StatusOK, user)
}

// me returns the signed-in user
func (r *Router) me(c *gin.Context) {
	claims := currentUser(c)
	user, err := r.users.GetByID(c.Request.Context(), claims.UserID)
	if err != nil {
		r.respondError(c, err)
		return
	}
	if user == nil {
		r.respondError(c, fmt.Errorf("%w: user %d", engine.ErrNotFound, claims.UserID))
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (r *Router) respondWithToken(c *gin.Context, status int, user *models.User) {
	token, err := r.deps.Auth.Issue(user)
	if err != nil {
		r.respondError(c, err)
		return
	}
	c.JSON(status, gin.H{"token": token, "user": user})
}
