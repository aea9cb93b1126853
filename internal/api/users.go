package api

import (
	"net/http"
	"time"

	"ticketing/internal/auth"
	"ticketing/internal/service"

	"github.com/gin-gonic/gin"
)

// UsersHandler serves the auth service API
type UsersHandler struct {
	users        *service.UserService
	sessionTTL   time.Duration
	secureCookie bool
}

func NewUsersHandler(users *service.UserService, sessionTTL time.Duration, secureCookie bool) *UsersHandler {
	return &UsersHandler{users: users, sessionTTL: sessionTTL, secureCookie: secureCookie}
}

func (h *UsersHandler) Register(api *gin.RouterGroup) {
	users := api.Group("/users")
	{
		users.POST("/signup", h.signup)
		users.POST("/signin", h.signin)
		users.POST("/signout", h.signout)
		users.GET("/currentuser", h.currentUser)
	}
}

func (h *UsersHandler) setSession(c *gin.Context, token string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.SessionCookie, token, maxAge, "/", "", h.secureCookie, true)
}

func (h *UsersHandler) signup(c *gin.Context) {
	var creds service.Credentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		badRequest(c, err)
		return
	}

	user, token, err := h.users.Signup(c.Request.Context(), creds)
	if err != nil {
		respondError(c, err)
		return
	}

	h.setSession(c, token, int(h.sessionTTL.Seconds()))
	c.JSON(http.StatusCreated, user.PublicView())
}

func (h *UsersHandler) signin(c *gin.Context) {
	var creds service.Credentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		badRequest(c, err)
		return
	}

	user, token, err := h.users.Signin(c.Request.Context(), creds)
	if err != nil {
		respondError(c, err)
		return
	}

	h.setSession(c, token, int(h.sessionTTL.Seconds()))
	c.JSON(http.StatusOK, user.PublicView())
}

func (h *UsersHandler) signout(c *gin.Context) {
	h.setSession(c, "", -1)
	c.JSON(http.StatusOK, gin.H{})
}

func (h *UsersHandler) currentUser(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"currentUser": auth.IdentityFrom(c)})
}
