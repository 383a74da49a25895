package model

import (
	"fmt"
	"time"
)

type Status string

const STATUS_IN_PROGRESS Status = "in_progress"
const STATUS_COMPLETED Status = "completed"
const STATUS_HUMAN_REVIEW Status = "human_review_required"
const STATUS_ERROR Status = "error"

func (s Status) Terminal() bool {
	return s == STATUS_COMPLETED || s == STATUS_HUMAN_REVIEW || s == STATUS_ERROR
}

type StageMetadata struct {
	StartTime     time.Time     `json:"startTime"`
	EndTime       time.Time     `json:"endTime"`
	Duration      time.Duration `json:"duration"`
	ExternalCalls int           `json:"externalCalls"`
	ExternalCost  float64       `json:"externalCost"`
}

type RoutingDecision struct {
	FromStage        string   `json:"fromStage"`
	NextStage        string   `json:"nextStage"`
	Reason           string   `json:"reason"`
	ConditionsMet    []string `json:"conditionsMet"`
	BypassConditions []string `json:"bypassConditions"`
}

type ErrorEntry struct {
	Stage     string         `json:"stage"`
	Message   string         `json:"message"`
	Timestamp time.Time      `json:"timestamp"`
	Detail    map[string]any `json:"detail,omitempty"`
}

// Record is the single source of truth for one underwriting run. It is
// mutated only through the append-only methods below and only by the
// engine; stages receive it read-only and return outcomes instead.
// It carries no locking, the engine serializes access per run.
type Record struct {
	Id             string                    `json:"id"`
	Application    *LoanApplication          `json:"application"`
	CurrentStage   string                    `json:"currentStage"`
	Results        map[string]map[string]any `json:"results"`
	StageMetadata  map[string]StageMetadata  `json:"stageMetadata"`
	RoutingHistory []RoutingDecision         `json:"routingHistory"`
	Errors         []ErrorEntry              `json:"errors"`
	Warnings       []ErrorEntry              `json:"warnings"`
	Status         Status                    `json:"status"`
	BusinessRules  BusinessRules             `json:"businessRules"`
	LastUpdated    time.Time                 `json:"lastUpdated"`
}

func NewRecord(id string, app *LoanApplication, rules BusinessRules) *Record {
	return &Record{
		Id:            id,
		Application:   app,
		Results:       make(map[string]map[string]any),
		StageMetadata: make(map[string]StageMetadata),
		Status:        STATUS_IN_PROGRESS,
		BusinessRules: rules,
		LastUpdated:   time.Now().UTC(),
	}
}

func (r *Record) UpdateStage(stage string) {
	r.CurrentStage = stage
	r.LastUpdated = time.Now().UTC()
}

// MergeOutcome folds one RunOutcome into the record. Metadata is recorded
// for every attempt; results only on success, errors only on failure.
// A stage key that is already present is rejected so no stage result is
// ever silently overwritten; resume replaces the key explicitly via
// DropStage before re-running.
func (r *Record) MergeOutcome(outcome *RunOutcome) error {
	if r.Status.Terminal() {
		return fmt.Errorf("record %s is terminal, cannot merge outcome for stage %s", r.Id, outcome.StageName)
	}
	if _, ok := r.StageMetadata[outcome.StageName]; ok {
		return fmt.Errorf("stage %s already merged into record %s", outcome.StageName, r.Id)
	}
	r.StageMetadata[outcome.StageName] = outcome.Metadata
	if outcome.Status == RUN_STATUS_COMPLETED {
		r.Results[outcome.StageName] = outcome.Result
	} else {
		r.AddError(outcome.StageName, outcome.ErrorMessage, nil)
	}
	r.LastUpdated = time.Now().UTC()
	return nil
}

// DropStage removes a prior attempt's bookkeeping so the stage can be
// merged again on resume. Results of other stages are untouched.
func (r *Record) DropStage(stage string) {
	delete(r.StageMetadata, stage)
	delete(r.Results, stage)
	r.LastUpdated = time.Now().UTC()
}

func (r *Record) AddRoutingDecision(decision RoutingDecision) {
	r.RoutingHistory = append(r.RoutingHistory, decision)
	r.LastUpdated = time.Now().UTC()
}

func (r *Record) AddError(stage string, message string, detail map[string]any) {
	r.Errors = append(r.Errors, ErrorEntry{
		Stage:     stage,
		Message:   message,
		Timestamp: time.Now().UTC(),
		Detail:    detail,
	})
	r.LastUpdated = time.Now().UTC()
}

func (r *Record) AddWarning(stage string, message string, detail map[string]any) {
	r.Warnings = append(r.Warnings, ErrorEntry{
		Stage:     stage,
		Message:   message,
		Timestamp: time.Now().UTC(),
		Detail:    detail,
	})
	r.LastUpdated = time.Now().UTC()
}

// SetStatus enforces the monotonic transition rule: only in_progress may
// change, and only to a terminal status.
func (r *Record) SetStatus(status Status) error {
	if r.Status == status {
		return nil
	}
	if r.Status.Terminal() {
		return fmt.Errorf("record %s status %s is terminal", r.Id, r.Status)
	}
	if !status.Terminal() {
		return fmt.Errorf("invalid status transition %s -> %s", r.Status, status)
	}
	r.Status = status
	r.LastUpdated = time.Now().UTC()
	return nil
}

func (r *Record) HasResult(stage string) bool {
	_, ok := r.Results[stage]
	return ok
}

func (r *Record) TotalExternalCalls() int {
	total := 0
	for _, md := range r.StageMetadata {
		total += md.ExternalCalls
	}
	return total
}

func (r *Record) TotalExternalCost() float64 {
	total := 0.0
	for _, md := range r.StageMetadata {
		total += md.ExternalCost
	}
	return total
}

func (r *Record) TotalProcessingTime() time.Duration {
	total := time.Duration(0)
	for _, md := range r.StageMetadata {
		total += md.Duration
	}
	return total
}
