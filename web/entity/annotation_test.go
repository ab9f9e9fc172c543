package entity

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnnotationKeepsExtraFields(t *testing.T) {
	var a Annotation
	line := `{"scenario_name":"ZAM_Over-1","class":"insert actor","frame":12,"note":"left lane","username":"Bob","timestamp":"2024-05-01T10:00:00"}`
	require.NoError(t, json.Unmarshal([]byte(line), &a))

	assert.Equal(t, "ZAM_Over-1", a.ScenarioName)
	assert.Equal(t, "insert actor", a.Class)
	assert.Equal(t, "Bob", a.Username)
	assert.Equal(t, "2024-05-01T10:00:00", a.Timestamp)
	assert.Equal(t, json.Number("12"), a.Extra["frame"])
	assert.Equal(t, "left lane", a.Extra["note"])

	out, err := json.Marshal(a)
	require.NoError(t, err)
	assert.JSONEq(t, line, string(out))
}

func TestAnnotationNonStringClassSurvives(t *testing.T) {
	var a Annotation
	require.NoError(t, json.Unmarshal([]byte(`{"scenario_name":"s","class":7}`), &a))
	assert.Empty(t, a.Class)

	out, err := json.Marshal(a)
	require.NoError(t, err)
	assert.JSONEq(t, `{"scenario_name":"s","class":7}`, string(out))
}

func TestAnnotationWritesOnlyKeysItRead(t *testing.T) {
	for _, line := range []string{
		`{"class":"x","scenario_name":"S1"}`,
		`{"class":"x","scenario_name":"S1","username":""}`,
		`{"class":"","scenario_name":"S1","timestamp":"2024-05-01T10:00:00"}`,
	} {
		t.Run(line, func(t *testing.T) {
			var a Annotation
			require.NoError(t, json.Unmarshal([]byte(line), &a))
			out, err := json.Marshal(a)
			require.NoError(t, err)
			assert.Equal(t, line, string(out))
		})
	}

	a := NewAnnotation(map[string]any{"class": "x"})
	a.Username = "Bob"
	assert.Equal(t, map[string]any{"class": "x", "username": "Bob"}, a.Map())
}

func TestAnnotationRejectsNonObject(t *testing.T) {
	var a Annotation
	assert.Error(t, json.Unmarshal([]byte(`[1,2]`), &a))
}
