// Package session keeps the logged-in username in the signed session cookie.
package session

import (
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
)

const (
	// CookieName is the name of the session cookie.
	CookieName = "annotator"

	loginUser = "username"
	loginTime = "login_time"
)

// Middleware installs the cookie store; maxAge is in seconds.
func Middleware(secret []byte, maxAge int) gin.HandlerFunc {
	store := cookie.NewStore(secret)
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return sessions.Sessions(CookieName, store)
}

// SetLoginUser stores the username as typed at login, original case included.
func SetLoginUser(c *gin.Context, username string) error {
	s := sessions.Default(c)
	s.Set(loginUser, username)
	s.Set(loginTime, time.Now().Format(time.RFC3339))
	return s.Save()
}

// GetLoginUser returns the username of the session, or "" when nobody is logged in.
func GetLoginUser(c *gin.Context) string {
	s := sessions.Default(c)
	if v, ok := s.Get(loginUser).(string); ok {
		return v
	}
	return ""
}

func IsLogin(c *gin.Context) bool {
	return GetLoginUser(c) != ""
}

func ClearSession(c *gin.Context) error {
	s := sessions.Default(c)
	s.Clear()
	s.Options(sessions.Options{
		Path:   "/",
		MaxAge: -1,
	})
	return s.Save()
}
