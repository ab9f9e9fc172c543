package controller

import (
	"net"
	"net/http"
	"strings"

	"scenario-annotator/config"
	"scenario-annotator/logger"
	"scenario-annotator/web/middleware"
	"scenario-annotator/web/session"

	"github.com/gin-gonic/gin"
)

// getRemoteIp extracts the real IP address from the request headers or remote address.
func getRemoteIp(c *gin.Context) string {
	value := c.GetHeader("X-Real-IP")
	if value != "" {
		return value
	}
	value = c.GetHeader("X-Forwarded-For")
	if value != "" {
		ips := strings.Split(value, ",")
		return strings.TrimSpace(ips[0])
	}
	ip, _, err := net.SplitHostPort(c.Request.RemoteAddr)
	if err != nil {
		return c.Request.RemoteAddr
	}
	return ip
}

// jsonError writes {"error": <translated key>} with the given status.
func jsonError(c *gin.Context, status int, key string, params ...string) {
	c.JSON(status, gin.H{"error": I18nWeb(c, key, params...)})
}

// jsonServerError logs err and reports it as a 500 with a translated message.
func jsonServerError(c *gin.Context, key string, err error, params ...string) {
	logger.Errorf("[%s] %s %s: %v", middleware.GetRequestID(c), c.Request.Method, c.Request.URL.Path, err)
	jsonError(c, http.StatusInternalServerError, key, params...)
}

// html renders an HTML template. Templates translate through the "T" entry of the data.
func html(c *gin.Context, name string, title string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data["title"] = I18nWeb(c, title, titleParams(data)...)
	data["username"] = session.GetLoginUser(c)
	data["request_uri"] = c.Request.RequestURI
	data["T"] = func(key string, params ...string) string {
		return I18nWeb(c, key, params...)
	}
	c.HTML(http.StatusOK, name, getContext(data))
}

func titleParams(data gin.H) []string {
	if name, ok := data["scenario_name"].(string); ok {
		return []string{"Scenario==" + name}
	}
	return nil
}

// getContext adds version and other context data to the provided gin.H.
func getContext(h gin.H) gin.H {
	a := gin.H{
		"cur_ver":  config.GetVersion(),
		"app_name": config.GetName(),
	}
	for key, value := range h {
		a[key] = value
	}
	return a
}

// isAjax checks if the request is an AJAX request.
func isAjax(c *gin.Context) bool {
	return c.GetHeader("X-Requested-With") == "XMLHttpRequest"
}
