package external

import (
	"context"
	"time"
)

// Per-call bureau charges, accumulated into stage metadata.
const ConsumerReportCost = 0.45
const CommercialReportCost = 0.90

// BureauService fronts the credit bureau. Consumer reports are pulled per
// KMP, the commercial report once per entity.
type BureauService interface {
	GetConsumerReport(ctx context.Context, panNumber string) *Response
	GetCommercialReport(ctx context.Context, panNumber string) *Response
}

type httpBureauService struct {
	client *baseClient
}

var _ BureauService = new(httpBureauService)

func NewHttpBureauService(baseUrl string, apiKey string, timeout time.Duration) *httpBureauService {
	return &httpBureauService{
		client: newBaseClient("Bureau", baseUrl, apiKey, timeout),
	}
}

func (s *httpBureauService) GetConsumerReport(ctx context.Context, panNumber string) *Response {
	body := map[string]any{
		"pan_number":  panNumber,
		"consent":     true,
		"report_type": "consumer",
		"purpose":     "loan_underwriting",
	}
	resp := s.client.doRequest(ctx, "POST", "consumer-report", body, nil)
	if resp.Success && resp.Data != nil {
		resp.Data = map[string]any{
			"pan_number":       panNumber,
			"cibil_score":      resp.Data["score"],
			"score_date":       resp.Data["score_date"],
			"total_accounts":   resp.Data["total_accounts"],
			"active_accounts":  resp.Data["active_accounts"],
			"overdue_accounts": resp.Data["overdue_accounts"],
			"total_exposure":   resp.Data["total_exposure"],
			"overdue_amount":   resp.Data["overdue_amount"],
		}
	}
	return resp
}

func (s *httpBureauService) GetCommercialReport(ctx context.Context, panNumber string) *Response {
	body := map[string]any{
		"pan_number":  panNumber,
		"consent":     true,
		"report_type": "commercial",
		"purpose":     "loan_underwriting",
	}
	resp := s.client.doRequest(ctx, "POST", "commercial-report", body, nil)
	if resp.Success && resp.Data != nil {
		resp.Data = map[string]any{
			"pan_number":       panNumber,
			"cmr_score":        resp.Data["cmr_score"],
			"commercial_score": resp.Data["commercial_score"],
			"score_date":       resp.Data["score_date"],
			"total_exposure":   resp.Data["total_exposure"],
			"overdue_amount":   resp.Data["overdue_amount"],
		}
	}
	return resp
}
