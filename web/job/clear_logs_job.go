package job

import (
	"errors"
	"io/fs"
	"os"

	"scenario-annotator/logger"
)

// ClearLogsJob moves the content of the log file to "<file>.prev" and empties the log
// file, keeping one generation of history.
type ClearLogsJob struct {
	logPath string
}

func NewClearLogsJob(logPath string) *ClearLogsJob {
	return &ClearLogsJob{logPath: logPath}
}

// Here Run is an interface method of the Job interface
func (j *ClearLogsJob) Run() {
	content, err := os.ReadFile(j.logPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Warning("clear logs job err:", err)
		}
		return
	}

	if err := os.WriteFile(j.prevPath(), content, 0o640); err != nil {
		logger.Warning("clear logs job err:", err)
		return
	}

	// The logger keeps its file open in append mode, so truncating is enough.
	if err := os.Truncate(j.logPath, 0); err != nil {
		logger.Warning("clear logs job err:", err)
	}
}

func (j *ClearLogsJob) prevPath() string {
	return j.logPath + ".prev"
}
