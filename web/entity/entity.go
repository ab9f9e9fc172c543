// Package entity defines the data structures exchanged by the annotator's services and
// its JSON API.
package entity

// User is one entry of the user registry, keyed by NormalizedName.
type User struct {
	Username       string     `json:"username"`
	RegisteredAt   Timestamp  `json:"registered_at"`
	NormalizedName string     `json:"normalized_name"`
	LoginCount     int        `json:"login_count"`
	LastLogin      *Timestamp `json:"last_login"`
}

// UserStat is the public view of a User served by the stats endpoint.
type UserStat struct {
	Username       string     `json:"username"`
	RegisteredAt   Timestamp  `json:"registered_at"`
	LoginCount     int        `json:"login_count"`
	LastLogin      *Timestamp `json:"last_login"`
	NormalizedName string     `json:"normalized_name"`
}

// ScenarioInfo describes one scenario directory of the dataset.
type ScenarioInfo struct {
	Name      string  `json:"name"`
	HasGif    bool    `json:"has_gif"`
	HasPlots  bool    `json:"has_plots"`
	FirstPlot *string `json:"first_plot"`
}

// AnnotationStatus summarises the annotations one user made for one scenario.
type AnnotationStatus struct {
	Annotated   bool           `json:"annotated"`
	Total       int            `json:"total"`
	ByClass     map[string]int `json:"by_class"`
	LastUpdated *Timestamp     `json:"last_updated"`
}

// ScenarioWithStatus is a gallery entry.
type ScenarioWithStatus struct {
	ScenarioInfo
	Status AnnotationStatus `json:"status"`
}

// OverallProgress reports how many scenarios a user has finished.
type OverallProgress struct {
	TotalScenarios          int      `json:"total_scenarios"`
	CompletedScenarios      int      `json:"completed_scenarios"`
	ImpossibleScenarios     int      `json:"impossible_scenarios"`
	ImpossibleScenarioNames []string `json:"impossible_scenario_names"`
	ProgressPercentage      float64  `json:"progress_percentage"`
}
