package stage

import (
	"context"
	"testing"

	"github.com/credik/underwrite/external"
	"github.com/credik/underwrite/model"
	"github.com/stretchr/testify/require"
)

type stubBureauService struct {
	consumerFn   func(panNumber string) *external.Response
	commercialFn func(panNumber string) *external.Response
}

func (s *stubBureauService) GetConsumerReport(ctx context.Context, panNumber string) *external.Response {
	return s.consumerFn(panNumber)
}

func (s *stubBureauService) GetCommercialReport(ctx context.Context, panNumber string) *external.Response {
	return s.commercialFn(panNumber)
}

type stubTaxRegistryService struct {
	resp *external.Response
}

func (s *stubTaxRegistryService) GetFilingStatus(ctx context.Context, gstNumber string) *external.Response {
	return s.resp
}

func verificationRecord(t *testing.T, roster []map[string]any) *model.Record {
	t.Helper()
	app := &model.LoanApplication{
		PanNumber:   "AAAPA1234A",
		GstNumber:   "27AAAPA1234A1Z5",
		LoanContext: model.LoanContext{LoanType: "msme_supply_chain"},
	}
	record := model.NewRecord("run-1", app, model.DefaultBusinessRules())
	require.NoError(t, record.MergeOutcome(&model.RunOutcome{
		StageName: STAGE_DOCUMENT_CLASSIFICATION,
		Status:    model.RUN_STATUS_COMPLETED,
		Result:    map[string]any{"documents": []map[string]any{}},
	}))
	require.NoError(t, record.MergeOutcome(&model.RunOutcome{
		StageName: STAGE_ENTITY_KMP,
		Status:    model.RUN_STATUS_COMPLETED,
		Result:    map[string]any{"kmp_roster": roster},
	}))
	record.UpdateStage(STAGE_VERIFICATION)
	return record
}

func healthyBureau(scores map[string]float64) *stubBureauService {
	return &stubBureauService{
		consumerFn: func(panNumber string) *external.Response {
			return &external.Response{Success: true, Data: map[string]any{"pan_number": panNumber, "cibil_score": scores[panNumber]}}
		},
		commercialFn: func(panNumber string) *external.Response {
			return &external.Response{Success: true, Data: map[string]any{"cmr_score": 4.0}}
		},
	}
}

func TestVerificationEligibleEntity(t *testing.T) {
	roster := []map[string]any{{"owner": "partner_1"}, {"owner": "partner_2"}}
	s := NewVerificationStage(
		healthyBureau(map[string]float64{"partner_1": 720, "partner_2": 695}),
		&stubTaxRegistryService{resp: &external.Response{Success: true, Data: map[string]any{"compliance_score": 90.0}}},
	)

	outcome, err := s.Execute(context.Background(), verificationRecord(t, roster))
	require.NoError(t, err)

	require.Equal(t, "eligible", outcome.Result["overall_eligibility"])
	require.InDelta(t, 1.0, outcome.Result["kmp_cibil_compliance"].(float64), 0.0001)
	require.Equal(t, 2, outcome.Result["kmps_above_threshold"])
	// one consumer call per KMP plus commercial plus filing
	require.Equal(t, 4, outcome.Metrics.ExternalCalls)
	require.Equal(t, STAGE_FINANCIAL, outcome.SuggestedRouting.NextStage)

	// reports come back in roster order despite concurrent fetch
	reports := outcome.Result["consumer_reports"].([]map[string]any)
	require.Equal(t, "partner_1", reports[0]["pan_number"])
	require.Equal(t, "partner_2", reports[1]["pan_number"])
}

func TestVerificationRejectsOnLowCibil(t *testing.T) {
	roster := []map[string]any{{"owner": "partner_1"}, {"owner": "partner_2"}}
	s := NewVerificationStage(
		healthyBureau(map[string]float64{"partner_1": 610, "partner_2": 590}),
		&stubTaxRegistryService{resp: &external.Response{Success: true, Data: map[string]any{"compliance_score": 90.0}}},
	)

	outcome, err := s.Execute(context.Background(), verificationRecord(t, roster))
	require.NoError(t, err)

	require.Equal(t, "rejected", outcome.Result["overall_eligibility"])
	require.NotEmpty(t, outcome.Result["eligibility_reasons"])
	require.Equal(t, model.SINK_HUMAN_REVIEW, outcome.SuggestedRouting.NextStage)
}

func TestVerificationLowGstComplianceFlagsReview(t *testing.T) {
	roster := []map[string]any{{"owner": "partner_1"}}
	s := NewVerificationStage(
		healthyBureau(map[string]float64{"partner_1": 720}),
		&stubTaxRegistryService{resp: &external.Response{Success: true, Data: map[string]any{"compliance_score": 30.0}}},
	)

	outcome, err := s.Execute(context.Background(), verificationRecord(t, roster))
	require.NoError(t, err)
	require.Equal(t, "review", outcome.Result["overall_eligibility"])
}

func TestVerificationConsumerFailureFailsStage(t *testing.T) {
	roster := []map[string]any{{"owner": "partner_1"}, {"owner": "partner_2"}}
	bureau := healthyBureau(map[string]float64{"partner_1": 720, "partner_2": 700})
	bureau.consumerFn = func(panNumber string) *external.Response {
		if panNumber == "partner_2" {
			return &external.Response{Success: false, ErrorMessage: "Bureau timeout", StatusCode: 408}
		}
		return &external.Response{Success: true, Data: map[string]any{"pan_number": panNumber, "cibil_score": 720.0}}
	}
	s := NewVerificationStage(bureau,
		&stubTaxRegistryService{resp: &external.Response{Success: true, Data: map[string]any{"compliance_score": 90.0}}})

	outcome, err := s.Execute(context.Background(), verificationRecord(t, roster))
	require.Error(t, err)
	require.Contains(t, err.Error(), "1 of 2 consumer bureau calls failed")
	// both attempted calls are billed even though one failed
	require.Equal(t, 2, outcome.Metrics.ExternalCalls)
}
