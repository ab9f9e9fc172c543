// Package locale translates user-facing messages with go-i18n bundles stored as TOML.
package locale

import (
	"io/fs"
	"strings"

	"scenario-annotator/logger"

	"github.com/gin-gonic/gin"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/pelletier/go-toml/v2"
	"golang.org/x/text/language"
)

const contextKey = "localizer"

var i18nBundle *i18n.Bundle

// InitLocalizer loads every translation file below dir in fsys. English is the fallback.
func InitLocalizer(fsys fs.FS, dir string) error {
	bundle := i18n.NewBundle(language.MustParse("en-US"))
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	err := fs.WalkDir(fsys, dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return err
		}
		_, err = bundle.ParseMessageFileBytes(data, path)
		return err
	})
	if err != nil {
		return err
	}
	i18nBundle = bundle
	return nil
}

// Languages lists the tags that have a translation file.
func Languages() []string {
	if i18nBundle == nil {
		return nil
	}
	tags := i18nBundle.LanguageTags()
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		out = append(out, t.String())
	}
	return out
}

func createTemplateData(params []string) map[string]any {
	templateData := make(map[string]any, len(params))
	for _, param := range params {
		parts := strings.SplitN(param, "==", 2)
		if len(parts) == 2 {
			templateData[parts[0]] = parts[1]
		}
	}
	return templateData
}

// Translate renders key with params given as "name==value". Unknown keys come back as is.
func Translate(localizer *i18n.Localizer, key string, params ...string) string {
	if localizer == nil {
		return key
	}
	msg, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    key,
		TemplateData: createTemplateData(params),
	})
	if err != nil {
		logger.Warningf("failed to localize %q: %v", key, err)
		return key
	}
	return msg
}

// NewLocalizer picks the best translation for the given language preferences.
func NewLocalizer(langs ...string) *i18n.Localizer {
	if i18nBundle == nil {
		return nil
	}
	return i18n.NewLocalizer(i18nBundle, langs...)
}

// LocalizerMiddleware chooses the language from the "lang" cookie, then Accept-Language.
func LocalizerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		langs := make([]string, 0, 2)
		if cookie, err := c.Request.Cookie("lang"); err == nil {
			langs = append(langs, cookie.Value)
		}
		langs = append(langs, c.GetHeader("Accept-Language"))
		c.Set(contextKey, NewLocalizer(langs...))
		c.Next()
	}
}

// T translates key for the language of the current request.
func T(c *gin.Context, key string, params ...string) string {
	l, _ := c.Get(contextKey)
	localizer, _ := l.(*i18n.Localizer)
	return Translate(localizer, key, params...)
}
