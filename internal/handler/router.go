package handler

import (
	"time"

	"github.com/tdiprima/langchain-flask-api/internal/domain"
	"github.com/tdiprima/langchain-flask-api/internal/middleware"

	"github.com/gin-gonic/gin"
)

// NewRouter wires every endpoint. Auth on /ask is optional (a Bearer token
// upgrades the session to authenticated); /logout requires one.
func NewRouter(chat *ChatHandler, auth *AuthHandler, tokens domain.TokenService, requestTimeout time.Duration) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	if requestTimeout > 0 {
		r.Use(middleware.RequestTimeout(requestTimeout))
	}

	r.GET("/healthz", chat.Health)

	r.POST("/ask", chat.Ask)
	r.GET("/history", chat.GetHistory)
	r.GET("/sessions", chat.GetSessions)
	r.POST("/clear-history", chat.ClearHistory)
	r.POST("/clear-all-history", chat.ClearAllHistory)
	r.GET("/generate-session", chat.GenerateSession)
	r.POST("/save-histories", chat.SaveHistories)
	r.GET("/personas", chat.GetPersonas)

	r.POST("/register", auth.Register)
	r.POST("/login", auth.Login)

	authed := r.Group("/")
	authed.Use(middleware.JwtAuth(tokens))
	{
		authed.POST("/logout", auth.Logout)
	}

	return r
}
