package entity

import (
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-03-05T14:07:09.123456", time.Date(2024, 3, 5, 14, 7, 9, 123456000, time.Local)},
		{"2024-03-05T14:07:09", time.Date(2024, 3, 5, 14, 7, 9, 0, time.Local)},
		{"2024-03-05T14:07:09+02:00", time.Date(2024, 3, 5, 12, 7, 9, 0, time.UTC)},
		{"2024-03-05 14:07:09", time.Date(2024, 3, 5, 14, 7, 9, 0, time.Local)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimestamp(tt.in)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %v", got)
		})
	}

	_, err := ParseTimestamp("yesterday")
	assert.Error(t, err)
}

func TestUserReadsRegistryWrittenByOlderVersions(t *testing.T) {
	data := `{"username":"Alice","registered_at":"2024-01-02T03:04:05.000001","normalized_name":"alice","login_count":3,"last_login":null}`
	var u User
	require.NoError(t, json.Unmarshal([]byte(data), &u))
	assert.Equal(t, "Alice", u.Username)
	assert.Equal(t, 3, u.LoginCount)
	assert.Nil(t, u.LastLogin)
	assert.Equal(t, 2024, u.RegisteredAt.Year())

	out, err := json.Marshal(u)
	require.NoError(t, err)
	var back User
	require.NoError(t, json.Unmarshal(out, &back))
	assert.True(t, u.RegisteredAt.Equal(back.RegisteredAt.Time))
}

func TestTimestampKeepsUnreadableValue(t *testing.T) {
	for _, in := range []string{`"garbage"`, `1700000000`} {
		t.Run(in, func(t *testing.T) {
			var ts Timestamp
			require.NoError(t, json.Unmarshal([]byte(in), &ts))
			assert.True(t, ts.IsZero())

			out, err := json.Marshal(ts)
			require.NoError(t, err)
			assert.Equal(t, in, string(out))
		})
	}

	var u User
	require.NoError(t, json.Unmarshal([]byte(`{"username":"Ann","registered_at":"soon","last_login":"later","login_count":1}`), &u))
	assert.Equal(t, "Ann", u.Username)
	require.NotNil(t, u.LastLogin)
	assert.True(t, u.LastLogin.IsZero())
}
