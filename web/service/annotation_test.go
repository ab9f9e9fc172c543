package service

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertReplacesSameClass(t *testing.T) {
	dataRoot := t.TempDir()
	svc := NewAnnotationService(dataRoot)
	clock := time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return clock }

	_, path, err := svc.Upsert("Bob", map[string]any{
		"scenario_name": "S1",
		"class":         "insert actor",
		"frame":         3,
		"username":      "mallory",
		"timestamp":     "1999-01-01T00:00:00",
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dataRoot, "bob", "S1_annotations.jsonl"), path)

	_, _, err = svc.Upsert("Bob", map[string]any{"scenario_name": "S1", "class": "behavior change"})
	require.NoError(t, err)

	clock = clock.Add(time.Hour)
	saved, _, err := svc.Upsert("Bob", map[string]any{
		"scenario_name": "S1",
		"class":         "insert actor",
		"frame":         7,
	})
	require.NoError(t, err)
	assert.Equal(t, "Bob", saved.Username)

	records, err := svc.ReadAll("BOB", "S1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "behavior change", records[0].Class)

	last := records[1]
	assert.Equal(t, "insert actor", last.Class)
	assert.Equal(t, json.Number("7"), last.Extra["frame"])
	assert.Equal(t, "Bob", last.Username)
	assert.Equal(t, "2024-02-01T09:00:00.000000Z", last.Timestamp)
}

func TestUpsertValidation(t *testing.T) {
	svc := NewAnnotationService(t.TempDir())

	_, _, err := svc.Upsert("bob", map[string]any{"note": "x"})
	require.ErrorIs(t, err, ErrMissingKeys)
	var missing *MissingKeysError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []string{"class", "scenario_name"}, missing.Keys)

	_, _, err = svc.Upsert("bob", map[string]any{"scenario_name": "S1", "class": 4})
	assert.ErrorIs(t, err, ErrMissingKeys)

	_, _, err = svc.Upsert("bob", map[string]any{"scenario_name": "../../etc", "class": "impossible"})
	assert.ErrorIs(t, err, ErrInvalidScenario)
}

func TestReadAllSkipsCorruptLines(t *testing.T) {
	dataRoot := t.TempDir()
	svc := NewAnnotationService(dataRoot)
	path, err := svc.Path("eve", "S2")
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))

	lines := []string{
		`{"scenario_name":"S2","class":"a"}`,
		`{broken`,
		``,
		`{"scenario_name":"S2","class":"b"}`,
		`[1,2,3]`,
		`"just a string"`,
		`{"scenario_name":"S2","class":"c"}`,
	}
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o644))

	records, err := svc.ReadAll("Eve", "S2")
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "a", records[0].Class)
	assert.Equal(t, "b", records[1].Class)
	assert.Equal(t, "c", records[2].Class)
}

func TestReadAllMissingFile(t *testing.T) {
	records, err := NewAnnotationService(t.TempDir()).ReadAll("nobody", "S1")
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestUpsertPreservesRecordsWithUnexpectedClass(t *testing.T) {
	dataRoot := t.TempDir()
	svc := NewAnnotationService(dataRoot)
	path, err := svc.Path("kim", "S3")
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(`{"scenario_name":"S3","class":12}`+"\n"), 0o644))

	_, _, err = svc.Upsert("kim", map[string]any{"scenario_name": "S3", "class": "impossible"})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	got := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, got, 2)
	assert.Contains(t, got[0], `"class":12`)
	assert.Contains(t, got[1], `"class":"impossible"`)
}

func TestUpsertLeavesOtherRecordsUntouched(t *testing.T) {
	svc := NewAnnotationService(t.TempDir())
	svc.now = func() time.Time { return time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC) }
	path, err := svc.Path("kim", "S1")
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	stored := `{"class":"x","scenario_name":"S1"}`
	require.NoError(t, os.WriteFile(path, []byte(stored+"\n"), 0o644))

	_, _, err = svc.Upsert("kim", map[string]any{"scenario_name": "S1", "class": "y"})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	got := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, got, 2)
	assert.Equal(t, stored, got[0])
	assert.Equal(t, `{"class":"y","scenario_name":"S1","timestamp":"2024-02-01T08:00:00.000000Z","username":"kim"}`, got[1])
}
