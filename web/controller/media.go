package controller

import (
	"errors"
	"net/http"
	"os"

	"scenario-annotator/logger"
	"scenario-annotator/web/service"

	"github.com/gin-gonic/gin"
)

// MediaController delivers scenario files and the ordered plot frame list. Neither
// route needs a session.
type MediaController struct {
	scenarioService *service.ScenarioService
}

// NewMediaController creates a new MediaController and initializes its routes.
func NewMediaController(g *gin.RouterGroup, scenarioService *service.ScenarioService) *MediaController {
	a := &MediaController{scenarioService: scenarioService}
	a.initRouter(g)
	return a
}

func (a *MediaController) initRouter(g *gin.RouterGroup) {
	g.GET("/media/:scenario/*filename", a.media)
	g.GET("/api/plots/:scenario", a.plots)
}

func (a *MediaController) media(c *gin.Context) {
	scenario, filename := c.Param("scenario"), c.Param("filename")
	path, err := a.scenarioService.ResolveMedia(scenario, filename)
	switch {
	case errors.Is(err, service.ErrForbiddenPath):
		logger.Warningf("blocked media request %s/%s from %s", scenario, filename, getRemoteIp(c))
		c.AbortWithStatus(http.StatusForbidden)
		return
	case err != nil:
		c.AbortWithStatus(http.StatusNotFound)
		return
	}
	serveFile(c, path)
}

// serveFile writes an already resolved file. http.ServeFile is avoided because it
// rejects request paths containing "..", even when they stay inside the scenario.
func serveFile(c *gin.Context, path string) {
	f, err := os.Open(path)
	if err != nil {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}
	http.ServeContent(c.Writer, c.Request, info.Name(), info.ModTime(), f)
}

func (a *MediaController) plots(c *gin.Context) {
	frames, err := a.scenarioService.ListPlotFrames(c.Param("scenario"))
	switch {
	case errors.Is(err, service.ErrInvalidScenario):
		c.JSON(http.StatusOK, []string{})
		return
	case err != nil:
		jsonServerError(c, "errors.readPlots", err)
		return
	}
	c.JSON(http.StatusOK, frames)
}
