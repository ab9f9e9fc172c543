package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/op/go-logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileBackendReceivesDebug(t *testing.T) {
	dir := t.TempDir()
	InitLogger(logging.ERROR, dir)
	defer CloseLogger()

	Debugf("scan of %s finished", "ZAM_Tjunction-1")
	Warning("plots unreadable")

	data, err := os.ReadFile(filepath.Join(dir, logFileName))
	require.NoError(t, err)
	out := string(data)
	assert.True(t, strings.Contains(out, "DEBUG - scan of ZAM_Tjunction-1 finished"), out)
	assert.True(t, strings.Contains(out, "WARNING - plots unreadable"), out)
}

func TestInitWithoutLogDir(t *testing.T) {
	InitLogger(logging.INFO, "")
	assert.Nil(t, logFile)
	Info("console only")
}
