package job

import (
	"os"
	"sync"

	"scenario-annotator/logger"
	"scenario-annotator/web/service"
)

// CheckDatasetJob watches the dataset root and logs when it disappears or when the number
// of scenarios changes.
type CheckDatasetJob struct {
	scenarioService *service.ScenarioService

	mu        sync.Mutex
	lastCount int
	missing   bool
}

func NewCheckDatasetJob(scenarioService *service.ScenarioService) *CheckDatasetJob {
	return &CheckDatasetJob{scenarioService: scenarioService, lastCount: -1}
}

func (j *CheckDatasetJob) Run() {
	j.mu.Lock()
	defer j.mu.Unlock()

	root := j.scenarioService.Root()
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		// only report the transition
		if !j.missing {
			logger.Errorf("dataset path %s is not available", root)
		}
		j.missing = true
		j.lastCount = -1
		return
	}
	j.missing = false

	count := len(j.scenarioService.ListScenarios())
	if count != j.lastCount {
		logger.Infof("dataset %s holds %d scenarios", root, count)
		j.lastCount = count
	}
}
