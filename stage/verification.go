package stage

import (
	"context"
	"fmt"
	"sync"

	"github.com/credik/underwrite/external"
	"github.com/credik/underwrite/logger"
	"github.com/credik/underwrite/model"
	"go.uber.org/zap"
)

// VerificationStage pulls bureau and tax-registry data for the entity and
// every identified KMP and determines eligibility against the business
// rules. Consumer reports are fetched concurrently; results are merged
// before the stage returns, so the engine still sees a single outcome.
type VerificationStage struct {
	bureau      external.BureauService
	taxRegistry external.TaxRegistryService
}

var _ Stage = new(VerificationStage)

func NewVerificationStage(bureau external.BureauService, taxRegistry external.TaxRegistryService) *VerificationStage {
	return &VerificationStage{bureau: bureau, taxRegistry: taxRegistry}
}

func (s *VerificationStage) Name() string {
	return STAGE_VERIFICATION
}

func (s *VerificationStage) RequiredPriorStages() []string {
	return []string{STAGE_DOCUMENT_CLASSIFICATION, STAGE_ENTITY_KMP}
}

func (s *VerificationStage) ValidatePrerequisites(record *model.Record) error {
	return validateRequiredResults(s, record)
}

func (s *VerificationStage) Execute(ctx context.Context, record *model.Record) (*model.StageOutcome, error) {
	kmpResult := record.Results[STAGE_ENTITY_KMP]
	roster := resultMaps(kmpResult, "kmp_roster")

	metrics := model.CallMetrics{}

	consumerReports, failures := s.fetchConsumerReports(ctx, record, roster)
	metrics.ExternalCalls += len(roster)
	metrics.ExternalCost += float64(len(roster)) * external.ConsumerReportCost
	if failures > 0 {
		return &model.StageOutcome{Metrics: metrics}, fmt.Errorf("%d of %d consumer bureau calls failed", failures, len(roster))
	}

	commercial := s.bureau.GetCommercialReport(ctx, record.Application.PanNumber)
	metrics.ExternalCalls++
	metrics.ExternalCost += external.CommercialReportCost
	if !commercial.Success {
		return &model.StageOutcome{Metrics: metrics}, fmt.Errorf("commercial bureau call failed: %s", commercial.ErrorMessage)
	}

	filing := s.taxRegistry.GetFilingStatus(ctx, record.Application.GstNumber)
	metrics.ExternalCalls++
	metrics.ExternalCost += external.FilingStatusCost
	if !filing.Success {
		return &model.StageOutcome{Metrics: metrics}, fmt.Errorf("tax registry call failed: %s", filing.ErrorMessage)
	}

	rules := record.BusinessRules
	aboveThreshold := 0
	for _, report := range consumerReports {
		if resultFloat(report, "cibil_score") >= float64(rules.MinConsumerCibil) {
			aboveThreshold++
		}
	}
	cibilCompliance := 0.0
	if len(consumerReports) > 0 {
		cibilCompliance = float64(aboveThreshold) / float64(len(consumerReports))
	}
	cmrScore := resultFloat(commercial.Data, "cmr_score")
	gstCompliance := resultFloat(filing.Data, "compliance_score")

	eligibility := "eligible"
	reasons := make([]string, 0)
	if cibilCompliance < 0.5 {
		eligibility = "rejected"
		reasons = append(reasons, fmt.Sprintf("only %.0f%% of KMPs above CIBIL floor %d", cibilCompliance*100, rules.MinConsumerCibil))
	}
	if cmrScore > float64(rules.MaxCommercialCMR) {
		eligibility = "rejected"
		reasons = append(reasons, fmt.Sprintf("commercial CMR %.0f above ceiling %d", cmrScore, rules.MaxCommercialCMR))
	}
	if gstCompliance < 50 {
		if eligibility == "eligible" {
			eligibility = "review"
		}
		reasons = append(reasons, fmt.Sprintf("GST filing compliance %.0f%% below 50%%", gstCompliance))
	}

	logger.Info("verification complete", zap.String("recordId", record.Id), zap.String("eligibility", eligibility), zap.Float64("cibilCompliance", cibilCompliance))

	result := map[string]any{
		"consumer_reports":     consumerReports,
		"commercial_report":    commercial.Data,
		"filing_status":        filing.Data,
		"kmp_cibil_compliance": cibilCompliance,
		"kmps_above_threshold": aboveThreshold,
		"cmr_score":            cmrScore,
		"gst_compliance_score": gstCompliance,
		"overall_eligibility":  eligibility,
		"eligibility_reasons":  reasons,
	}

	return &model.StageOutcome{
		Result:           result,
		Metrics:          metrics,
		SuggestedRouting: s.suggestRouting(eligibility),
	}, nil
}

// fetchConsumerReports pulls one consumer report per KMP concurrently and
// merges them in roster order.
func (s *VerificationStage) fetchConsumerReports(ctx context.Context, record *model.Record, roster []map[string]any) ([]map[string]any, int) {
	reports := make([]map[string]any, len(roster))
	failures := 0
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i, kmp := range roster {
		wg.Add(1)
		go func(i int, owner string) {
			defer wg.Done()
			resp := s.bureau.GetConsumerReport(ctx, owner)
			mu.Lock()
			defer mu.Unlock()
			if !resp.Success {
				failures++
				return
			}
			reports[i] = resp.Data
		}(i, resultString(kmp, "owner"))
	}
	wg.Wait()

	merged := make([]map[string]any, 0, len(reports))
	for _, r := range reports {
		if r != nil {
			merged = append(merged, r)
		}
	}
	return merged, failures
}

func (s *VerificationStage) suggestRouting(eligibility string) *model.RoutingDecision {
	if eligibility == "rejected" {
		return &model.RoutingDecision{
			NextStage:        model.SINK_HUMAN_REVIEW,
			Reason:           "compliance issues require manual review",
			BypassConditions: []string{"bureau_scores_passed"},
		}
	}
	return &model.RoutingDecision{
		NextStage:     STAGE_FINANCIAL,
		Reason:        "basic compliance checks passed",
		ConditionsMet: []string{"bureau_scores_passed", "compliance_verified"},
	}
}
