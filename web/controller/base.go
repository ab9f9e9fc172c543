// Package controller provides the HTTP handlers of the annotator: pages, the JSON API
// and media delivery.
package controller

import (
	"net/http"
	"strings"

	"scenario-annotator/web/locale"
	"scenario-annotator/web/session"

	"github.com/gin-gonic/gin"
)

// BaseController provides common functionality for all controllers, including authentication checks.
type BaseController struct{}

// checkLogin rejects anonymous requests: API calls get 401, pages are redirected to the
// login form.
func (a *BaseController) checkLogin(c *gin.Context) {
	if session.IsLogin(c) {
		c.Next()
		return
	}
	if isAPI(c) || isAjax(c) {
		jsonError(c, http.StatusUnauthorized, "errors.notLoggedIn")
	} else {
		c.Redirect(http.StatusFound, "/login")
	}
	c.Abort()
}

// I18nWeb translates name for the language of the request.
func I18nWeb(c *gin.Context, name string, params ...string) string {
	return locale.T(c, name, params...)
}

func isAPI(c *gin.Context) bool {
	return strings.HasPrefix(c.Request.URL.Path, "/api/")
}
