package locale

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	if err := InitLocalizer(os.DirFS(".."), "translation"); err != nil {
		panic(err)
	}
}

func TestTranslate(t *testing.T) {
	en := NewLocalizer("en-US")
	assert.Equal(t, "Not logged in", Translate(en, "errors.notLoggedIn"))
	assert.Equal(t, "Missing keys: [class]", Translate(en, "errors.missingKeys", "Keys==[class]"))
	assert.Equal(t, "no.such.key", Translate(en, "no.such.key"))
	assert.Equal(t, "errors.notLoggedIn", Translate(nil, "errors.notLoggedIn"))

	de := NewLocalizer("de-DE,de;q=0.9")
	assert.Equal(t, "Nicht angemeldet", Translate(de, "errors.notLoggedIn"))

	fallback := NewLocalizer("fr-FR")
	assert.Equal(t, "Not logged in", Translate(fallback, "errors.notLoggedIn"))
}

func TestLanguages(t *testing.T) {
	assert.ElementsMatch(t, []string{"en-US", "de-DE"}, Languages())
}

func TestMiddlewarePrefersCookie(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(LocalizerMiddleware())
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, T(c, "logout"))
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Language", "en-US")
	req.AddCookie(&http.Cookie{Name: "lang", Value: "de-DE"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Abmelden", w.Body.String())
}
