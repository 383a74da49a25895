package external

import (
	"context"
	"time"
)

const FilingStatusCost = 0.10
const EntityLookupCost = 0.25

// TaxRegistryService fronts the GST registry for filing compliance.
type TaxRegistryService interface {
	GetFilingStatus(ctx context.Context, gstNumber string) *Response
}

// EntityRegistryService fronts the corporate registry for legal entity
// details.
type EntityRegistryService interface {
	LookupEntity(ctx context.Context, identifier string) *Response
}

type httpTaxRegistryService struct {
	client *baseClient
}

var _ TaxRegistryService = new(httpTaxRegistryService)

func NewHttpTaxRegistryService(baseUrl string, apiKey string, timeout time.Duration) *httpTaxRegistryService {
	return &httpTaxRegistryService{
		client: newBaseClient("TaxRegistry", baseUrl, apiKey, timeout),
	}
}

func (s *httpTaxRegistryService) GetFilingStatus(ctx context.Context, gstNumber string) *Response {
	resp := s.client.doRequest(ctx, "GET", "filing-status", nil, map[string]string{"gstin": gstNumber})
	if resp.Success && resp.Data != nil {
		totalDue := asFloat(resp.Data["total_returns_due"])
		filed := asFloat(resp.Data["returns_filed"])
		complianceScore := 0.0
		if totalDue > 0 {
			complianceScore = filed / totalDue * 100
		}
		resp.Data = map[string]any{
			"gst_number":          gstNumber,
			"registration_status": resp.Data["status"],
			"compliance_score":    complianceScore,
			"total_returns_due":   totalDue,
			"returns_filed":       filed,
			"pending_returns":     totalDue - filed,
			"last_return_filed":   resp.Data["last_return_date"],
		}
	}
	return resp
}

type httpEntityRegistryService struct {
	client *baseClient
}

var _ EntityRegistryService = new(httpEntityRegistryService)

func NewHttpEntityRegistryService(baseUrl string, apiKey string, timeout time.Duration) *httpEntityRegistryService {
	return &httpEntityRegistryService{
		client: newBaseClient("EntityRegistry", baseUrl, apiKey, timeout),
	}
}

func (s *httpEntityRegistryService) LookupEntity(ctx context.Context, identifier string) *Response {
	return s.client.doRequest(ctx, "GET", "entity-details", nil, map[string]string{"id": identifier})
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}
