package service

import (
	"math"

	"scenario-annotator/logger"
	"scenario-annotator/web/entity"
)

// ClassImpossible marks a scenario that cannot be annotated with the regular classes.
const ClassImpossible = "impossible"

// RequiredClasses must all be present for a scenario to count as complete.
var RequiredClasses = []string{
	"target lanelet change",
	"behavior change",
	"insert actor",
	"delete agent",
}

// StatusService combines the scenario listing with the annotations of one user.
type StatusService struct {
	scenarios   *ScenarioService
	annotations *AnnotationService
}

func NewStatusService(scenarios *ScenarioService, annotations *AnnotationService) *StatusService {
	return &StatusService{scenarios: scenarios, annotations: annotations}
}

func emptyStatus() entity.AnnotationStatus {
	return entity.AnnotationStatus{ByClass: map[string]int{}}
}

// StatusFor counts the annotations of username for scenario per class and finds the
// newest parseable timestamp.
func (s *StatusService) StatusFor(scenario, username string) entity.AnnotationStatus {
	if username == "" {
		return emptyStatus()
	}
	records, err := s.annotations.ReadAll(username, scenario)
	if err != nil {
		logger.Warningf("read annotations of %s for %s failed: %v", username, scenario, err)
		return emptyStatus()
	}

	status := emptyStatus()
	for _, rec := range records {
		if rec.Class != "" {
			status.ByClass[rec.Class]++
			status.Total++
		}
		if rec.Timestamp == "" {
			continue
		}
		ts, err := entity.ParseTimestamp(rec.Timestamp)
		if err != nil {
			continue
		}
		if status.LastUpdated == nil || ts.After(status.LastUpdated.Time) {
			status.LastUpdated = entity.NewTimestamp(ts)
		}
	}
	status.Annotated = status.Total > 0
	return status
}

// ScenariosWithStatus lists every scenario together with the annotation status of username.
func (s *StatusService) ScenariosWithStatus(username string) []entity.ScenarioWithStatus {
	infos := s.scenarios.ListScenarios()
	out := make([]entity.ScenarioWithStatus, 0, len(infos))
	for _, info := range infos {
		out = append(out, entity.ScenarioWithStatus{
			ScenarioInfo: info,
			Status:       s.StatusFor(info.Name, username),
		})
	}
	return out
}

// IsComplete reports whether a status counts toward progress, and whether it does so
// because the scenario was marked impossible.
func IsComplete(status entity.AnnotationStatus) (complete bool, impossible bool) {
	if !status.Annotated {
		return false, false
	}
	impossible = status.ByClass[ClassImpossible] > 0
	if impossible {
		return true, true
	}
	for _, class := range RequiredClasses {
		if status.ByClass[class] == 0 {
			return false, false
		}
	}
	return true, false
}

// OverallProgress reports how many scenarios username has completed.
func (s *StatusService) OverallProgress(username string) entity.OverallProgress {
	return summarize(s.ScenariosWithStatus(username))
}

func summarize(scenarios []entity.ScenarioWithStatus) entity.OverallProgress {
	progress := entity.OverallProgress{
		TotalScenarios:          len(scenarios),
		ImpossibleScenarioNames: []string{},
	}
	for _, sc := range scenarios {
		complete, impossible := IsComplete(sc.Status)
		if !complete {
			continue
		}
		progress.CompletedScenarios++
		if impossible {
			progress.ImpossibleScenarios++
			progress.ImpossibleScenarioNames = append(progress.ImpossibleScenarioNames, sc.Name)
		}
	}
	if progress.TotalScenarios > 0 {
		pct := float64(progress.CompletedScenarios) / float64(progress.TotalScenarios) * 100
		progress.ProgressPercentage = math.RoundToEven(pct*10) / 10
	}
	return progress
}
