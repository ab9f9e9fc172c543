package service

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"scenario-annotator/logger"
	"scenario-annotator/web/entity"
)

var (
	ErrInvalidUsername = errors.New("invalid username")
	ErrUserExists      = errors.New("username already registered")
	ErrUserNotFound    = errors.New("user not found")
	ErrSaveUsers       = errors.New("failed to save user data")
)

// NormalizeUsername returns the case-insensitive key of a username.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// UserDataPath returns the folder holding the annotations of username.
func UserDataPath(dataRoot string, username string) string {
	return filepath.Join(dataRoot, NormalizeUsername(username))
}

// UserService registers users and records their logins. Every change rewrites the
// whole registry.
type UserService struct {
	registry Registry
	dataRoot string
	now      func() time.Time

	mu sync.Mutex
}

func NewUserService(registry Registry, dataRoot string) *UserService {
	return &UserService{registry: registry, dataRoot: dataRoot, now: time.Now}
}

// Register adds a user and creates its data folder.
func (s *UserService) Register(username string) (*entity.User, error) {
	username = strings.TrimSpace(username)
	normalized := NormalizeUsername(username)
	if err := checkPathSegment(normalized); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidUsername, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	users := s.registry.Load()
	if _, ok := users[normalized]; ok {
		return nil, ErrUserExists
	}

	user := entity.User{
		Username:       username,
		RegisteredAt:   entity.Timestamp{Time: s.now()},
		NormalizedName: normalized,
	}
	users[normalized] = user
	if !s.registry.Save(users) {
		return nil, ErrSaveUsers
	}

	if err := os.MkdirAll(UserDataPath(s.dataRoot, normalized), 0o755); err != nil {
		return nil, fmt.Errorf("create user folder: %w", err)
	}
	logger.Infof("registered user %s", username)
	return &user, nil
}

// Login bumps the login statistics of a registered user.
func (s *UserService) Login(username string) (*entity.User, error) {
	normalized := NormalizeUsername(username)
	if normalized == "" {
		return nil, ErrInvalidUsername
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	users := s.registry.Load()
	user, ok := users[normalized]
	if !ok {
		return nil, ErrUserNotFound
	}
	user.LoginCount++
	user.LastLogin = entity.NewTimestamp(s.now())
	users[normalized] = user
	if !s.registry.Save(users) {
		logger.Warningf("login stats of %s were not saved", normalized)
	}
	return &user, nil
}

// Stats lists all users, most frequent visitors first.
func (s *UserService) Stats() []entity.UserStat {
	users := s.registry.Load()
	stats := make([]entity.UserStat, 0, len(users))
	for _, u := range users {
		stats = append(stats, entity.UserStat{
			Username:       u.Username,
			RegisteredAt:   u.RegisteredAt,
			LoginCount:     u.LoginCount,
			LastLogin:      u.LastLogin,
			NormalizedName: u.NormalizedName,
		})
	}
	sort.SliceStable(stats, func(i, j int) bool {
		if stats[i].LoginCount != stats[j].LoginCount {
			return stats[i].LoginCount > stats[j].LoginCount
		}
		return stats[i].NormalizedName < stats[j].NormalizedName
	})
	return stats
}

// checkPathSegment accepts names usable as exactly one directory level.
func checkPathSegment(name string) error {
	switch {
	case name == "":
		return errors.New("empty name")
	case name == "." || name == "..":
		return fmt.Errorf("%q is reserved", name)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("%q contains a path separator", name)
	case strings.ContainsRune(name, 0):
		return fmt.Errorf("%q contains a NUL byte", name)
	}
	return nil
}
