// Package optimization provides shared data structures for optimization results.
package optimization

// Summary captures the result of a single goal-seek directive.
type Summary struct {
	Scenario        string   `json:"scenario"`
	Field           string   `json:"field"`
	Original        float64  `json:"original"`
	Value           float64  `json:"value"`
	Target          float64  `json:"target"`
	Achieved        float64  `json:"achieved"`
	Iterations      int      `json:"iterations"`
	Converged       bool     `json:"converged"`
	Notes           []string `json:"notes,omitempty"`
	OriginalDisplay string   `json:"originalDisplay,omitempty"`
	ValueDisplay    string   `json:"valueDisplay,omitempty"`
	AchievedDisplay string   `json:"achievedDisplay,omitempty"`
}

// Gap is how far the achieved final balance lies from the target.
func (s Summary) Gap() float64 {
	return s.Achieved - s.Target
}
