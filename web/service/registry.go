package service

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"scenario-annotator/logger"
	"scenario-annotator/web/entity"

	"github.com/goccy/go-json"
)

// Registry persists the whole user table at once. Load never fails: a missing or broken
// store reads as empty. Save reports whether the table was written.
type Registry interface {
	Load() map[string]entity.User
	Save(users map[string]entity.User) bool
}

// JSONRegistry keeps the users in a single JSON object keyed by normalized name.
type JSONRegistry struct {
	path string
}

func NewJSONRegistry(path string) *JSONRegistry {
	return &JSONRegistry{path: path}
}

func (r *JSONRegistry) Load() map[string]entity.User {
	users := make(map[string]entity.User)
	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return users
	}
	if err != nil {
		logger.Warning("read user registry failed:", err)
		return users
	}
	if err := json.Unmarshal(data, &users); err != nil {
		logger.Warningf("user registry %s is unreadable: %v", r.path, err)
		return make(map[string]entity.User)
	}
	return users
}

func (r *JSONRegistry) Save(users map[string]entity.User) bool {
	data, err := json.MarshalIndent(users, "", "  ")
	if err != nil {
		logger.Error("encode user registry failed:", err)
		return false
	}
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		logger.Error("create data folder failed:", err)
		return false
	}
	if err := os.WriteFile(r.path, data, 0o644); err != nil {
		logger.Error("write user registry failed:", err)
		return false
	}
	return true
}
