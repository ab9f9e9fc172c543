package controller

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strings"

	"scenario-annotator/web/entity"
	"scenario-annotator/web/service"
	"scenario-annotator/web/session"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
)

// APIController serves the JSON endpoints under /api that need a session.
type APIController struct {
	BaseController

	userService       *service.UserService
	annotationService *service.AnnotationService
	statusService     *service.StatusService
}

// NewAPIController creates a new APIController and initializes its routes.
func NewAPIController(
	g *gin.RouterGroup,
	userService *service.UserService,
	annotationService *service.AnnotationService,
	statusService *service.StatusService,
) *APIController {
	a := &APIController{
		userService:       userService,
		annotationService: annotationService,
		statusService:     statusService,
	}
	a.initRouter(g)
	return a
}

func (a *APIController) initRouter(g *gin.RouterGroup) {
	g = g.Group("/api", a.checkLogin)

	g.GET("/scenarios", a.scenarios)
	g.POST("/annotate", a.annotate)
	g.GET("/annotations/:scenario_name", a.annotations)
	g.GET("/users/stats", a.userStats)
	g.GET("/progress", a.progress)
}

func (a *APIController) scenarios(c *gin.Context) {
	c.JSON(http.StatusOK, a.statusService.ScenariosWithStatus(session.GetLoginUser(c)))
}

// annotate stores one annotation of the logged-in user, replacing any earlier one of the
// same class.
func (a *APIController) annotate(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		jsonError(c, http.StatusBadRequest, "errors.invalidJSON")
		return
	}
	var payload map[string]any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil || payload == nil {
		jsonError(c, http.StatusBadRequest, "errors.invalidJSON")
		return
	}

	_, path, err := a.annotationService.Upsert(session.GetLoginUser(c), payload)
	var missing *service.MissingKeysError
	switch {
	case errors.As(err, &missing):
		jsonError(c, http.StatusBadRequest, "errors.missingKeys", "Keys=="+formatKeys(missing.Keys))
		return
	case errors.Is(err, service.ErrInvalidScenario):
		jsonError(c, http.StatusBadRequest, "errors.invalidScenario")
		return
	case err != nil:
		jsonServerError(c, "errors.saveAnnotation", err, "Error=="+err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "path": path})
}

func (a *APIController) annotations(c *gin.Context) {
	records, err := a.annotationService.ReadAll(session.GetLoginUser(c), c.Param("scenario_name"))
	switch {
	case errors.Is(err, service.ErrInvalidScenario):
		jsonError(c, http.StatusBadRequest, "errors.invalidScenario")
		return
	case err != nil:
		jsonServerError(c, "errors.readAnnotations", err)
		return
	}
	if records == nil {
		records = []entity.Annotation{}
	}
	c.JSON(http.StatusOK, gin.H{"annotations": records})
}

func (a *APIController) userStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"users": a.userService.Stats()})
}

func (a *APIController) progress(c *gin.Context) {
	c.JSON(http.StatusOK, a.statusService.OverallProgress(session.GetLoginUser(c)))
}

// formatKeys renders key names as a bracketed list, e.g. ['class', 'scenario_name'].
func formatKeys(keys []string) string {
	quoted := make([]string, len(keys))
	for i, k := range keys {
		quoted[i] = "'" + k + "'"
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
