package model

type RunStatus string

const RUN_STATUS_COMPLETED RunStatus = "completed"
const RUN_STATUS_FAILED RunStatus = "failed"

type CallMetrics struct {
	ExternalCalls int     `json:"externalCalls"`
	ExternalCost  float64 `json:"externalCost"`
}

// StageOutcome is what a stage hands back to the runner. The result map is
// opaque to the engine; only later stages and the router's gate paths read
// into it.
type StageOutcome struct {
	Result           map[string]any
	Metrics          CallMetrics
	SuggestedRouting *RoutingDecision
}

// RunOutcome is the runner's uniform envelope, exactly one per invocation
// whether the stage completed, failed its prerequisites, errored or panicked.
type RunOutcome struct {
	StageName        string
	Status           RunStatus
	Metadata         StageMetadata
	Result           map[string]any
	SuggestedRouting *RoutingDecision
	ErrorMessage     string
}
