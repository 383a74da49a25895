package router

import (
	"fmt"

	"github.com/credik/underwrite/model"
	"github.com/credik/underwrite/stage"
	"github.com/oliveagle/jsonpath"
)

// Router decides the next pipeline state from a stage's outcome and the
// record. Decide is a pure function of its arguments; the gate tables and
// declared order are fixed at construction.
type Router struct {
	registry *stage.Registry
	gates    map[string][]Gate
}

func New(registry *stage.Registry) *Router {
	return &Router{
		registry: registry,
		gates:    defaultGates(),
	}
}

// defaultGates is the per-stage hard-gate table. Thresholds resolve
// against the record's business-rules snapshot at evaluation time.
func defaultGates() map[string][]Gate {
	return map[string][]Gate{
		stage.STAGE_DOCUMENT_CLASSIFICATION: {
			{Condition: "borrower_pan_available", Path: "$.borrower_pan_available", Op: OP_TRUE},
			{Condition: "high_confidence_extraction", Path: "$.borrower_pan_confidence", Op: OP_GTE,
				Rule: func(r model.BusinessRules) any { return r.MinPANConfidence }},
			{Condition: "sufficient_documents", Path: "$.missing_mandatory_count", Op: OP_LTE,
				Rule: func(r model.BusinessRules) any { return r.MaxMissingMandatoryDocs }},
			{Condition: "minimum_confidence", Path: "$.average_confidence", Op: OP_GTE,
				Rule: func(r model.BusinessRules) any { return r.MinDocumentConfidence }},
		},
		stage.STAGE_ENTITY_KMP: {
			{Condition: "constitution_eligible", Path: "$.constitution_eligible", Op: OP_TRUE},
			{Condition: "minimum_coverage_achieved", Path: "$.coverage_percentage", Op: OP_GTE,
				Rule: func(r model.BusinessRules) any { return r.MinKMPCoverage }},
		},
		stage.STAGE_VERIFICATION: {
			{Condition: "not_rejected", Path: "$.overall_eligibility", Op: OP_NEQ, Value: "rejected"},
			{Condition: "commercial_cmr_within_ceiling", Path: "$.cmr_score", Op: OP_LTE,
				Rule: func(r model.BusinessRules) any { return r.MaxCommercialCMR }},
		},
		stage.STAGE_FINANCIAL: {
			{Condition: "servicing_capacity_adequate", Path: "$.debt_service_coverage", Op: OP_GTE, Value: 1.0},
		},
		stage.STAGE_BANKING: {
			{Condition: "account_conduct_acceptable", Path: "$.account_conduct", Op: OP_NEQ, Value: "adverse"},
			{Condition: "statement_coverage_sufficient", Path: "$.statement_coverage", Op: OP_GTE, Value: 0.5},
		},
		stage.STAGE_FINAL_ASSEMBLY: nil,
	}
}

// Decide applies the fixed priority order: failure beats gates, gates beat
// the proceed path. conditionsMet is non-empty exactly on proceed;
// bypassConditions name every gate that failed.
func (r *Router) Decide(stageName string, outcome *model.RunOutcome, record *model.Record) model.RoutingDecision {
	if outcome.Status == model.RUN_STATUS_FAILED {
		return model.RoutingDecision{
			FromStage: stageName,
			NextStage: model.SINK_ERROR,
			Reason:    fmt.Sprintf("stage failed: %s", outcome.ErrorMessage),
		}
	}

	gates := r.gates[stageName]
	failed := make([]string, 0)
	passed := make([]string, 0, len(gates))
	var firstFailure string
	for _, gate := range gates {
		if gate.Passes(outcome.Result, record.BusinessRules) {
			passed = append(passed, gate.Condition)
			continue
		}
		if firstFailure == "" {
			firstFailure = gate.Describe(record.BusinessRules)
		}
		failed = append(failed, gate.Condition)
	}
	if len(failed) > 0 {
		return model.RoutingDecision{
			FromStage:        stageName,
			NextStage:        model.SINK_HUMAN_REVIEW,
			Reason:           fmt.Sprintf("gate failed: %s", firstFailure),
			BypassConditions: failed,
		}
	}

	next, ok := r.registry.NextAfter(stageName)
	if !ok {
		next = model.SINK_SUCCESS
	}
	if len(passed) == 0 {
		passed = []string{"stage_completed"}
	}
	return model.RoutingDecision{
		FromStage:     stageName,
		NextStage:     next,
		Reason:        fmt.Sprintf("all gates passed, proceeding to %s", next),
		ConditionsMet: passed,
	}
}

// Validate checks the routing table at startup: every gated stage must be
// declared, every gate path must compile, and every reachable next state
// must be a declared stage or a sink.
func (r *Router) Validate() error {
	for name, gates := range r.gates {
		if !r.registry.Contains(name) {
			return fmt.Errorf("gate table references unknown stage %s", name)
		}
		for _, gate := range gates {
			if _, err := jsonpath.Compile(gate.Path); err != nil {
				return fmt.Errorf("stage %s gate %s has invalid path %q: %w", name, gate.Condition, gate.Path, err)
			}
		}
	}
	for _, name := range r.registry.Names() {
		next, ok := r.registry.NextAfter(name)
		if ok && !r.registry.Contains(next) && !model.IsSink(next) {
			return fmt.Errorf("stage %s routes to undeclared state %s", name, next)
		}
	}
	return nil
}
