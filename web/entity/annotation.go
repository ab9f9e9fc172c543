package entity

import (
	"bytes"
	"errors"

	"github.com/goccy/go-json"
)

// Keys with a fixed meaning inside an annotation record.
const (
	KeyScenarioName = "scenario_name"
	KeyClass        = "class"
	KeyUsername     = "username"
	KeyTimestamp    = "timestamp"
)

// Annotation is one classified record for a scenario. Fields the client sends beyond the
// fixed ones are kept in Extra and written back untouched.
type Annotation struct {
	ScenarioName string
	Class        string
	Username     string
	Timestamp    string
	Extra        map[string]any

	// fixed keys that were present in the decoded object, indexed like fixedKeys
	present uint8
}

var fixedKeys = [...]string{KeyScenarioName, KeyClass, KeyUsername, KeyTimestamp}

// NewAnnotation splits a decoded JSON object into the fixed fields and the rest.
// Fixed keys holding non-string values stay in Extra.
func NewAnnotation(raw map[string]any) Annotation {
	a := Annotation{Extra: make(map[string]any, len(raw))}
	for k, v := range raw {
		a.Extra[k] = v
	}
	fields := a.fields()
	for i, key := range fixedKeys {
		if s, ok := a.Extra[key].(string); ok {
			*fields[i] = s
			a.present |= 1 << i
			delete(a.Extra, key)
		}
	}
	return a
}

func (a *Annotation) fields() [len(fixedKeys)]*string {
	return [...]*string{&a.ScenarioName, &a.Class, &a.Username, &a.Timestamp}
}

// Map flattens the record back into a single JSON object. An empty fixed field is only
// written when the key was there when the record was read.
func (a Annotation) Map() map[string]any {
	m := make(map[string]any, len(a.Extra)+len(fixedKeys))
	for k, v := range a.Extra {
		m[k] = v
	}
	for i, src := range a.fields() {
		if *src != "" || a.present&(1<<i) != 0 {
			m[fixedKeys[i]] = *src
		}
	}
	return m
}

func (a Annotation) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Map())
}

func (a *Annotation) UnmarshalJSON(data []byte) error {
	if a == nil {
		return errors.New("entity.Annotation: UnmarshalJSON on nil pointer")
	}
	var raw map[string]any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	if raw == nil {
		return errors.New("entity.Annotation: record is not a JSON object")
	}
	*a = NewAnnotation(raw)
	return nil
}
