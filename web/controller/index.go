package controller

import (
	"errors"
	"html/template"
	"net/http"
	"strings"

	"scenario-annotator/logger"
	"scenario-annotator/web/middleware"
	"scenario-annotator/web/service"
	"scenario-annotator/web/session"

	"github.com/gin-gonic/gin"
)

// LoginForm represents the login and registration request.
type LoginForm struct {
	Username string `json:"username" form:"username"`
}

// IndexController serves the pages and the login, registration and logout routes.
type IndexController struct {
	BaseController

	userService *service.UserService
}

// NewIndexController creates a new IndexController and initializes its routes.
func NewIndexController(g *gin.RouterGroup, userService *service.UserService) *IndexController {
	a := &IndexController{userService: userService}
	a.initRouter(g)
	return a
}

func (a *IndexController) initRouter(g *gin.RouterGroup) {
	limitCfg := middleware.DefaultRateLimitConfig()
	limitCfg.OnLimit = func(c *gin.Context) {
		jsonError(c, http.StatusTooManyRequests, "errors.tooManyRequests")
	}
	limit := middleware.RateLimitMiddleware(limitCfg)

	g.GET("/login", a.loginPage)
	g.POST("/login", limit, a.login)
	g.POST("/register", limit, a.register)
	g.GET("/logout", a.logout)

	pages := g.Group("/", a.checkLogin)
	pages.GET("/", a.index)
	pages.GET("/annotate/:scenario_name", a.annotate)
}

func (a *IndexController) index(c *gin.Context) {
	html(c, "gallery.html", "pages.gallery.title", nil)
}

func (a *IndexController) annotate(c *gin.Context) {
	html(c, "annotator.html", "pages.annotator.title", gin.H{
		"scenario_name": c.Param("scenario_name"),
		"classes":       append(append([]string{}, service.RequiredClasses...), service.ClassImpossible),
	})
}

func (a *IndexController) loginPage(c *gin.Context) {
	html(c, "login.html", "pages.login.title", nil)
}

// login starts a session for a registered user and sends the browser to the gallery.
func (a *IndexController) login(c *gin.Context) {
	var form LoginForm
	_ = c.ShouldBind(&form)
	form.Username = strings.TrimSpace(form.Username)

	user, err := a.userService.Login(form.Username)
	safeUser := template.HTMLEscapeString(form.Username)
	switch {
	case errors.Is(err, service.ErrInvalidUsername):
		jsonError(c, http.StatusBadRequest, "errors.emptyUsername")
		return
	case errors.Is(err, service.ErrUserNotFound):
		logger.Warningf("unknown username %q, IP: %s", safeUser, getRemoteIp(c))
		jsonError(c, http.StatusNotFound, "errors.userNotFound")
		return
	case err != nil:
		jsonServerError(c, "errors.saveUsers", err)
		return
	}

	// The session keeps the name as typed, original case included.
	if err := session.SetLoginUser(c, form.Username); err != nil {
		jsonServerError(c, "errors.saveUsers", err)
		return
	}
	logger.Infof("%s logged in successfully (login #%d), IP: %s", safeUser, user.LoginCount, getRemoteIp(c))
	c.Redirect(http.StatusFound, "/")
}

func (a *IndexController) register(c *gin.Context) {
	var form LoginForm
	_ = c.ShouldBind(&form)
	form.Username = strings.TrimSpace(form.Username)

	_, err := a.userService.Register(form.Username)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"message": I18nWeb(c, "messages.registered")})
	case errors.Is(err, service.ErrInvalidUsername):
		if service.NormalizeUsername(form.Username) == "" {
			jsonError(c, http.StatusBadRequest, "errors.emptyUsername")
		} else {
			jsonError(c, http.StatusBadRequest, "errors.invalidUsername")
		}
	case errors.Is(err, service.ErrUserExists):
		jsonError(c, http.StatusConflict, "errors.userExists")
	default:
		jsonServerError(c, "errors.saveUsers", err)
	}
}

// logout clears the session and goes back to the login page.
func (a *IndexController) logout(c *gin.Context) {
	if user := session.GetLoginUser(c); user != "" {
		logger.Infof("%s logged out successfully", user)
	}
	if err := session.ClearSession(c); err != nil {
		logger.Warning("Unable to save session after clearing:", err)
	}
	c.Redirect(http.StatusFound, "/login")
}
