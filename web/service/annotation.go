package service

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"scenario-annotator/logger"
	"scenario-annotator/web/entity"

	"github.com/goccy/go-json"
)

const annotationFileSuffix = "_annotations.jsonl"

var ErrMissingKeys = errors.New("missing keys")

// MissingKeysError lists the required keys absent from an annotation payload.
type MissingKeysError struct {
	Keys []string
}

func (e *MissingKeysError) Error() string {
	return fmt.Sprintf("missing keys: [%s]", strings.Join(e.Keys, ", "))
}

func (e *MissingKeysError) Is(target error) bool {
	return target == ErrMissingKeys
}

// AnnotationService stores the annotations of each user as one JSON-lines file per
// scenario. A file holds at most one record per class.
type AnnotationService struct {
	dataRoot string
	now      func() time.Time

	locks sync.Map
}

func NewAnnotationService(dataRoot string) *AnnotationService {
	return &AnnotationService{dataRoot: dataRoot, now: time.Now}
}

// Path returns the annotation file of username for scenario.
func (s *AnnotationService) Path(username, scenario string) (string, error) {
	if err := checkPathSegment(scenario); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidScenario, err)
	}
	return filepath.Join(UserDataPath(s.dataRoot, username), scenario+annotationFileSuffix), nil
}

// ReadAll returns the stored records in file order. Lines that do not hold a JSON object
// are skipped. A missing file reads as no records.
func (s *AnnotationService) ReadAll(username, scenario string) ([]entity.Annotation, error) {
	path, err := s.Path(username, scenario)
	if err != nil {
		return nil, err
	}
	return readAnnotations(path)
}

func readAnnotations(path string) ([]entity.Annotation, error) {
	annotations := make([]entity.Annotation, 0)
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return annotations, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := bufio.NewReader(f)
	for lineNo := 1; ; lineNo++ {
		line, err := r.ReadBytes('\n')
		if line = bytes.TrimSpace(line); len(line) > 0 {
			var a entity.Annotation
			if jsonErr := json.Unmarshal(line, &a); jsonErr != nil {
				logger.Debugf("skip malformed line %d of %s: %v", lineNo, path, jsonErr)
			} else {
				annotations = append(annotations, a)
			}
		}
		if errors.Is(err, io.EOF) {
			return annotations, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

// Upsert validates a client payload, stamps it with username and the server time, and
// replaces any stored record with the same class. It returns the saved record and the
// file it was written to.
func (s *AnnotationService) Upsert(username string, payload map[string]any) (entity.Annotation, string, error) {
	var missing []string
	for _, key := range []string{entity.KeyScenarioName, entity.KeyClass} {
		if v, ok := payload[key].(string); !ok || v == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return entity.Annotation{}, "", &MissingKeysError{Keys: missing}
	}

	record := entity.NewAnnotation(payload)
	record.Username = username
	record.Timestamp = entity.FormatTimestamp(s.now())

	path, err := s.Path(username, record.ScenarioName)
	if err != nil {
		return entity.Annotation{}, "", err
	}

	mu := s.lock(path)
	mu.Lock()
	defer mu.Unlock()

	existing, err := readAnnotations(path)
	if err != nil {
		return entity.Annotation{}, "", fmt.Errorf("read %s: %w", path, err)
	}
	kept := existing[:0]
	for _, a := range existing {
		if a.Class != record.Class {
			kept = append(kept, a)
		}
	}
	kept = append(kept, record)

	if err := writeAnnotations(path, kept); err != nil {
		return entity.Annotation{}, "", err
	}
	return record, path, nil
}

func (s *AnnotationService) lock(path string) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(path, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// writeAnnotations replaces path with the given records through a temporary file.
func writeAnnotations(path string, annotations []entity.Annotation) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create user folder: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".annotations-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, a := range annotations {
		if err := enc.Encode(a); err != nil {
			tmp.Close()
			return fmt.Errorf("encode annotation: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
