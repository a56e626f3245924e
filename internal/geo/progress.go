package geo

// WorkflowStep is one stage of the optimization pipeline as shown to users.
type WorkflowStep struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Steps is the fixed, ordered list of workflow stages.
var Steps = []WorkflowStep{
	{ID: "crawl", Label: "Crawling URL"},
	{ID: "classify", Label: "Detecting Industry"},
	{ID: "chunk", Label: "Chunking Content"},
	{ID: "retrieve", Label: "Fetching Guidelines"},
	{ID: "optimize", Label: "Optimizing Content"},
	{ID: "humanize", Label: "Humanizing Text"},
	{ID: "complete", Label: "Complete"},
}

// CompleteStep is the index of the final step, reached only on completion.
var CompleteStep = len(Steps) - 1

// lastProgressStep is the highest index reachable while a job is still running.
var lastProgressStep = len(Steps) - 2

const (
	defaultTotalChunks = 2
	chunkingStep       = 2
	firstChunkStep     = 3
	chunkStepSpan      = 3
)

// ProjectStep maps a non-terminal snapshot to a workflow step index given
// the previously displayed index. The result never falls below prev and
// never exceeds the second to last step; completion is set by the poller.
func ProjectStep(s JobSnapshot, prev int) int {
	var candidate int

	switch {
	case !s.HasIndustry():
		candidate = min(prev+1, 1)
	default:
		total := defaultTotalChunks
		if s.TotalChunks != nil && *s.TotalChunks > 0 {
			total = *s.TotalChunks
		}
		completed := 0
		if s.CompletedChunks != nil && *s.CompletedChunks > 0 {
			completed = *s.CompletedChunks
		}

		if completed > 0 {
			candidate = firstChunkStep + completed*chunkStepSpan/total
		} else {
			candidate = chunkingStep
		}
	}

	step := max(prev, candidate)
	return min(max(step, 0), lastProgressStep)
}

// StepLabel returns the label for index i, or "" when out of range.
func StepLabel(i int) string {
	if i < 0 || i >= len(Steps) {
		return ""
	}
	return Steps[i].Label
}
