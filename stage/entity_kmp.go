package stage

import (
	"context"
	"fmt"

	"github.com/credik/underwrite/external"
	"github.com/credik/underwrite/logger"
	"github.com/credik/underwrite/model"
	"go.uber.org/zap"
)

// EntityKMPStage builds the borrowing entity profile and the roster of key
// management personnel (KMPs) from classified documents, cross-checked
// against the corporate registry.
type EntityKMPStage struct {
	registry external.EntityRegistryService
}

var _ Stage = new(EntityKMPStage)

func NewEntityKMPStage(registry external.EntityRegistryService) *EntityKMPStage {
	return &EntityKMPStage{registry: registry}
}

func (s *EntityKMPStage) Name() string {
	return STAGE_ENTITY_KMP
}

func (s *EntityKMPStage) RequiredPriorStages() []string {
	return []string{STAGE_DOCUMENT_CLASSIFICATION}
}

func (s *EntityKMPStage) ValidatePrerequisites(record *model.Record) error {
	return validateRequiredResults(s, record)
}

func (s *EntityKMPStage) Execute(ctx context.Context, record *model.Record) (*model.StageOutcome, error) {
	docResult := record.Results[STAGE_DOCUMENT_CLASSIFICATION]
	documents := resultMaps(docResult, "documents")

	metrics := model.CallMetrics{}
	resp := s.registry.LookupEntity(ctx, record.Application.PanNumber)
	metrics.ExternalCalls++
	metrics.ExternalCost += external.EntityLookupCost
	if !resp.Success {
		return &model.StageOutcome{Metrics: metrics}, fmt.Errorf("entity registry lookup failed: %s", resp.ErrorMessage)
	}

	entityProfile := map[string]any{
		"legal_name":    record.Application.ApplicantName,
		"constitution":  record.Application.Constitution,
		"pan_number":    record.Application.PanNumber,
		"gst_number":    record.Application.GstNumber,
		"registry_data": resp.Data,
	}

	// Every KMP-owned PAN card identifies one KMP; an Aadhaar for the same
	// owner corroborates it.
	identified := make(map[string]map[string]any)
	corroborated := make(map[string]bool)
	for _, doc := range documents {
		owner := resultString(doc, "owner")
		if owner == "" || owner == "borrower" {
			continue
		}
		switch resultString(doc, "document_type") {
		case "pan_card":
			identified[owner] = map[string]any{
				"owner":            owner,
				"pan_available":    true,
				"confidence_score": resultFloat(doc, "confidence_score"),
			}
		case "aadhaar_card":
			corroborated[owner] = true
		}
	}
	roster := make([]map[string]any, 0, len(identified))
	for owner, kmp := range identified {
		kmp["identity_corroborated"] = corroborated[owner]
		roster = append(roster, kmp)
	}

	expected := expectedKMPCount(record.Application.Constitution)
	coverage := 0.0
	if expected > 0 {
		coverage = float64(len(roster)) / float64(expected)
		if coverage > 1.0 {
			coverage = 1.0
		}
	}

	logger.Info("kmp roster built", zap.String("recordId", record.Id), zap.Int("identified", len(roster)), zap.Float64("coverage", coverage))

	result := map[string]any{
		"entity_profile":        entityProfile,
		"kmp_roster":            roster,
		"kmp_identified":        len(roster),
		"kmp_expected":          expected,
		"coverage_percentage":   coverage,
		"constitution_eligible": record.BusinessRules.ConstitutionEligible(record.Application.Constitution),
	}

	return &model.StageOutcome{
		Result:           result,
		Metrics:          metrics,
		SuggestedRouting: s.suggestRouting(record, coverage),
	}, nil
}

func (s *EntityKMPStage) suggestRouting(record *model.Record, coverage float64) *model.RoutingDecision {
	if !record.BusinessRules.ConstitutionEligible(record.Application.Constitution) {
		return &model.RoutingDecision{
			NextStage:        model.SINK_HUMAN_REVIEW,
			Reason:           fmt.Sprintf("constitution %q not eligible for automated processing", record.Application.Constitution),
			BypassConditions: []string{"constitution_eligible"},
		}
	}
	if coverage < record.BusinessRules.MinKMPCoverage {
		return &model.RoutingDecision{
			NextStage:        model.SINK_HUMAN_REVIEW,
			Reason:           "insufficient KMP coverage",
			BypassConditions: []string{"minimum_coverage_achieved"},
		}
	}
	return &model.RoutingDecision{
		NextStage:     STAGE_VERIFICATION,
		Reason:        "minimum KMP coverage achieved",
		ConditionsMet: []string{"entity_identified", "minimum_coverage_achieved"},
	}
}

// expectedKMPCount is the number of KMPs the constitution implies must be
// identified before automated verification may proceed.
func expectedKMPCount(constitution string) int {
	switch constitution {
	case "sole_proprietorship":
		return 1
	case "partnership", "llp":
		return 2
	case "company":
		return 2
	case "huf":
		return 1
	default:
		return 1
	}
}
