package job

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"scenario-annotator/web/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClearLogsJob(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "annotator.log")
	require.NoError(t, os.WriteFile(logPath, []byte("day one\n"), 0o640))

	j := NewClearLogsJob(logPath)
	j.Run()

	prev, err := os.ReadFile(logPath + ".prev")
	require.NoError(t, err)
	assert.Equal(t, "day one\n", string(prev))
	cur, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Empty(t, cur)

	require.NoError(t, os.WriteFile(logPath, []byte("day two\n"), 0o640))
	j.Run()
	prev, err = os.ReadFile(logPath + ".prev")
	require.NoError(t, err)
	assert.Equal(t, "day two\n", string(prev))
}

func TestClearLogsJobWithoutFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "annotator.log")
	NewClearLogsJob(logPath).Run()
	assert.NoFileExists(t, logPath+".prev")
}

func TestCheckDatasetJob(t *testing.T) {
	root := filepath.Join(t.TempDir(), "dataset")
	j := NewCheckDatasetJob(service.NewScenarioService(root))

	j.Run()
	assert.True(t, j.missing)
	assert.Equal(t, -1, j.lastCount)

	require.NoError(t, os.MkdirAll(filepath.Join(root, "S1", "plots"), 0o755))
	j.Run()
	assert.False(t, j.missing)
	assert.Equal(t, 1, j.lastCount)

	require.NoError(t, os.MkdirAll(filepath.Join(root, "S2", "plots"), 0o755))
	j.Run()
	assert.Equal(t, 2, j.lastCount)
}

func TestCheckDatasetJobConcurrentRuns(t *testing.T) {
	root := filepath.Join(t.TempDir(), "dataset")
	for _, name := range []string{"S1", "S2", "S3"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, name, "plots"), 0o755))
	}
	j := NewCheckDatasetJob(service.NewScenarioService(root))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			j.Run()
		}()
	}
	wg.Wait()

	assert.False(t, j.missing)
	assert.Equal(t, 3, j.lastCount)
}
