package stage

import (
	"context"
	"fmt"

	"github.com/credik/underwrite/model"
)

const STAGE_DOCUMENT_CLASSIFICATION = "document_classification"
const STAGE_ENTITY_KMP = "entity_kmp_identification"
const STAGE_VERIFICATION = "verification_compliance"
const STAGE_FINANCIAL = "financial_analysis"
const STAGE_BANKING = "banking_analysis"
const STAGE_FINAL_ASSEMBLY = "final_assembly"

// Stage is the capability every pipeline step implements. Stages never
// mutate the record; all observable change flows back through the returned
// outcome.
type Stage interface {
	Name() string
	RequiredPriorStages() []string
	ValidatePrerequisites(record *model.Record) error
	Execute(ctx context.Context, record *model.Record) (*model.StageOutcome, error)
}

// validateRequiredResults is the shared prerequisite check: every declared
// prior stage must have a merged result on the record.
func validateRequiredResults(s Stage, record *model.Record) error {
	for _, prior := range s.RequiredPriorStages() {
		if !record.HasResult(prior) {
			return model.PrerequisiteError{Stage: s.Name(), Missing: fmt.Sprintf("result of stage %s", prior)}
		}
	}
	return nil
}

// Registry holds the declared linear stage order and resolves stages by
// name. The routing graph itself lives in the router; the registry only
// answers "what runs first" and "what follows stage X on the proceed path".
type Registry struct {
	order  []string
	stages map[string]Stage
}

func NewRegistry(stages ...Stage) (*Registry, error) {
	r := &Registry{stages: make(map[string]Stage)}
	for _, s := range stages {
		if _, ok := r.stages[s.Name()]; ok {
			return nil, fmt.Errorf("duplicate stage %s", s.Name())
		}
		r.stages[s.Name()] = s
		r.order = append(r.order, s.Name())
	}
	if len(r.order) == 0 {
		return nil, fmt.Errorf("registry requires at least one stage")
	}
	for _, s := range stages {
		for _, prior := range s.RequiredPriorStages() {
			if _, ok := r.stages[prior]; !ok {
				return nil, fmt.Errorf("stage %s requires unknown prior stage %s", s.Name(), prior)
			}
		}
	}
	return r, nil
}

func (r *Registry) Get(name string) (Stage, bool) {
	s, ok := r.stages[name]
	return s, ok
}

func (r *Registry) First() string {
	return r.order[0]
}

func (r *Registry) Contains(name string) bool {
	_, ok := r.stages[name]
	return ok
}

func (r *Registry) Names() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// NextAfter returns the stage following name in the declared order, or
// false when name is the last stage.
func (r *Registry) NextAfter(name string) (string, bool) {
	for i, n := range r.order {
		if n == name && i+1 < len(r.order) {
			return r.order[i+1], true
		}
	}
	return "", false
}
