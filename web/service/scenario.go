package service

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"scenario-annotator/logger"
	"scenario-annotator/web/entity"
)

const plotsDirName = "plots"

var (
	ErrInvalidScenario = errors.New("invalid scenario name")
	ErrForbiddenPath   = errors.New("path escapes the scenario directory")
	ErrMediaNotFound   = errors.New("media file not found")
)

var (
	imageExts = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".gif": true}

	// frameNameRe captures the frame index of plots named like "ARG_Carcarana-4_4_T-1_17.png".
	frameNameRe = regexp.MustCompile(`(?i)^.*_(\d+)\.(png|jpg|jpeg|gif)$`)
)

// ScenarioService discovers scenarios under the dataset root. Nothing is cached: every
// call walks the directory tree again.
type ScenarioService struct {
	root string
}

func NewScenarioService(root string) *ScenarioService {
	return &ScenarioService{root: root}
}

func (s *ScenarioService) Root() string {
	return s.root
}

// ListScenarios returns the scenarios sorted by directory name. A directory is a scenario
// when it holds <name>.gif or a plots folder.
func (s *ScenarioService) ListScenarios() []entity.ScenarioInfo {
	scenarios := make([]entity.ScenarioInfo, 0)
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Warningf("dataset path does not exist: %s", s.root)
		} else {
			logger.Warning("read dataset path failed:", err)
		}
		return scenarios
	}

	dirs := make([]string, 0, len(entries))
	for _, entry := range entries {
		if isDir(filepath.Join(s.root, entry.Name())) {
			dirs = append(dirs, entry.Name())
		}
	}
	sort.Strings(dirs)

	for i, name := range dirs {
		if i%50 == 0 {
			logger.Debugf("scanning scenarios: %d/%d", i, len(dirs))
		}
		if info, ok := s.inspect(name); ok {
			scenarios = append(scenarios, info)
		}
	}
	logger.Debugf("found %d scenarios in %d directories", len(scenarios), len(dirs))
	return scenarios
}

func (s *ScenarioService) inspect(name string) (entity.ScenarioInfo, bool) {
	dir := filepath.Join(s.root, name)
	info := entity.ScenarioInfo{
		Name:     name,
		HasGif:   isFile(filepath.Join(dir, name+".gif")),
		HasPlots: isDir(filepath.Join(dir, plotsDirName)),
	}
	if !info.HasGif && !info.HasPlots {
		return info, false
	}
	if info.HasPlots {
		images, err := listImages(filepath.Join(dir, plotsDirName))
		if err != nil {
			logger.Warningf("read plots of %s failed: %v", name, err)
		} else if len(images) > 0 {
			sort.Strings(images)
			info.FirstPlot = &images[0]
		}
	}
	return info, true
}

// ListPlotFrames returns the plot images of a scenario ordered by their frame index.
// Images without a trailing "_<index>" are left out.
func (s *ScenarioService) ListPlotFrames(scenario string) ([]string, error) {
	if err := checkPathSegment(scenario); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScenario, err)
	}
	plotsDir := filepath.Join(s.root, scenario, plotsDirName)
	if !isDir(plotsDir) {
		return []string{}, nil
	}
	images, err := listImages(plotsDir)
	if err != nil {
		return nil, fmt.Errorf("read plots of %s: %w", scenario, err)
	}
	return SortFrames(images), nil
}

// SortFrames keeps the names matching "<anything>_<digits>.<ext>" and orders them by the
// numeric value of the digits.
func SortFrames(names []string) []string {
	type frame struct {
		index uint64
		name  string
	}
	frames := make([]frame, 0, len(names))
	for _, name := range names {
		m := frameNameRe.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		idx, err := strconv.ParseUint(m[1], 10, 64)
		if err != nil {
			continue
		}
		frames = append(frames, frame{index: idx, name: name})
	}
	sort.Slice(frames, func(i, j int) bool {
		if frames[i].index != frames[j].index {
			return frames[i].index < frames[j].index
		}
		return frames[i].name < frames[j].name
	})
	out := make([]string, len(frames))
	for i, f := range frames {
		out[i] = f.name
	}
	return out
}

// ResolveMedia maps a request for filename inside a scenario to a file on disk, following
// symlinks. The result never lies outside the scenario directory.
func (s *ScenarioService) ResolveMedia(scenario, filename string) (string, error) {
	base := filepath.Join(s.root, scenario)
	if base == filepath.Clean(s.root) || !within(s.root, base) {
		return "", ErrForbiddenPath
	}
	target := filepath.Join(base, filename)
	if !within(base, target) {
		return "", ErrForbiddenPath
	}

	realBase, err := filepath.EvalSymlinks(base)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMediaNotFound, err)
	}
	resolved, err := filepath.EvalSymlinks(target)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMediaNotFound, err)
	}
	if !within(realBase, resolved) {
		return "", ErrForbiddenPath
	}
	if !isFile(resolved) {
		return "", ErrMediaNotFound
	}
	return resolved, nil
}

// within reports whether path is parent or lies below it.
func within(parent, path string) bool {
	rel, err := filepath.Rel(parent, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

func listImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	images := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !imageExts[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}
		if isFile(filepath.Join(dir, entry.Name())) {
			images = append(images, entry.Name())
		}
	}
	return images, nil
}

func isDir(path string) bool {
	st, err := os.Stat(path)
	return err == nil && st.IsDir()
}

func isFile(path string) bool {
	st, err := os.Stat(path)
	return err == nil && st.Mode().IsRegular()
}
