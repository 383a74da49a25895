package stage

import (
	"context"
	"fmt"

	"github.com/credik/underwrite/external"
	"github.com/credik/underwrite/logger"
	"github.com/credik/underwrite/model"
	"go.uber.org/zap"
)

const maxUploadBytes = 50 * 1024 * 1024

var allowedFileTypes = map[string]bool{
	"application/pdf": true,
	"image/jpeg":      true,
	"image/png":       true,
	"application/zip": true,
}

// Mandatory document classes per owner bucket for an MSME application.
var mandatoryDocuments = []struct {
	class      string
	missingFor string
}{
	{"pan_card", "borrower"},
	{"gst_certificate", "borrower"},
	{"audited_financials", "financial"},
	{"bank_statement", "banking"},
}

// DocumentClassificationStage turns uploaded files into classified,
// structured document data via the document processing service and flags
// what is missing for downstream analysis.
type DocumentClassificationStage struct {
	documents external.DocumentService
}

var _ Stage = new(DocumentClassificationStage)

func NewDocumentClassificationStage(documents external.DocumentService) *DocumentClassificationStage {
	return &DocumentClassificationStage{documents: documents}
}

func (s *DocumentClassificationStage) Name() string {
	return STAGE_DOCUMENT_CLASSIFICATION
}

func (s *DocumentClassificationStage) RequiredPriorStages() []string {
	return nil
}

func (s *DocumentClassificationStage) ValidatePrerequisites(record *model.Record) error {
	if record.Application == nil {
		return model.PrerequisiteError{Stage: s.Name(), Missing: "loan application payload"}
	}
	if len(record.Application.UploadedFiles) == 0 {
		return model.PrerequisiteError{Stage: s.Name(), Missing: "uploaded files"}
	}
	if record.Application.LoanContext.LoanType != "msme_supply_chain" {
		return model.PrerequisiteError{Stage: s.Name(), Missing: fmt.Sprintf("supported loan type (got %q)", record.Application.LoanContext.LoanType)}
	}
	return nil
}

func (s *DocumentClassificationStage) Execute(ctx context.Context, record *model.Record) (*model.StageOutcome, error) {
	app := record.Application
	if err := validateFiles(app.UploadedFiles); err != nil {
		return nil, err
	}

	metrics := model.CallMetrics{}
	resp := s.documents.ProcessDocuments(ctx, app.UploadedFiles, app.ProcessingOptions)
	metrics.ExternalCalls++
	metrics.ExternalCost += external.DocumentProcessingCost
	if !resp.Success {
		return &model.StageOutcome{Metrics: metrics}, fmt.Errorf("document processing failed: %s", resp.ErrorMessage)
	}

	documents := parseProcessedDocuments(resp.Data)
	logger.Info("documents classified", zap.String("recordId", record.Id), zap.Int("count", len(documents)))

	borrowerPanConfidence := 0.0
	borrowerPanAvailable := false
	present := make(map[string]bool)
	classCounts := make(map[string]int)
	sumConfidence := 0.0
	for _, doc := range documents {
		class := resultString(doc, "document_type")
		owner := resultString(doc, "owner")
		confidence := resultFloat(doc, "confidence_score")
		classCounts[class]++
		sumConfidence += confidence
		present[class+"/"+owner] = true
		present[class] = true
		if class == "pan_card" && owner == "borrower" && !borrowerPanAvailable {
			borrowerPanAvailable = true
			borrowerPanConfidence = confidence
		}
	}
	averageConfidence := 0.0
	if len(documents) > 0 {
		averageConfidence = sumConfidence / float64(len(documents))
	}

	missing := make([]map[string]any, 0)
	for _, req := range mandatoryDocuments {
		if !present[req.class] {
			missing = append(missing, map[string]any{
				"document_class": req.class,
				"missing_for":    req.missingFor,
				"mandatory":      true,
			})
		}
	}

	warnings := make([]string, 0)
	for _, doc := range documents {
		if c := resultFloat(doc, "confidence_score"); c < record.BusinessRules.HighConfidenceThreshold {
			warnings = append(warnings, fmt.Sprintf("low confidence %s (%.2f)", resultString(doc, "document_type"), c))
		}
	}
	if averageConfidence > 0 && averageConfidence < record.BusinessRules.MinDocumentConfidence {
		warnings = append(warnings, fmt.Sprintf("average confidence %.2f below floor", averageConfidence))
	}

	result := map[string]any{
		"documents":               documents,
		"class_counts":            classCounts,
		"borrower_pan_available":  borrowerPanAvailable,
		"borrower_pan_confidence": borrowerPanConfidence,
		"average_confidence":      averageConfidence,
		"missing_documents":       missing,
		"missing_mandatory_count": len(missing),
		"validation_warnings":     warnings,
		"documents_processed":     len(documents),
	}

	return &model.StageOutcome{
		Result:           result,
		Metrics:          metrics,
		SuggestedRouting: s.suggestRouting(record, borrowerPanAvailable, borrowerPanConfidence, averageConfidence, len(missing)),
	}, nil
}

func (s *DocumentClassificationStage) suggestRouting(record *model.Record, panAvailable bool, panConfidence float64, avgConfidence float64, missingMandatory int) *model.RoutingDecision {
	rules := record.BusinessRules
	if !panAvailable {
		return &model.RoutingDecision{
			NextStage:        model.SINK_HUMAN_REVIEW,
			Reason:           "no borrower PAN card found",
			BypassConditions: []string{"borrower_pan_available"},
		}
	}
	if panConfidence < rules.MinPANConfidence {
		return &model.RoutingDecision{
			NextStage:        model.SINK_HUMAN_REVIEW,
			Reason:           "low confidence in borrower PAN extraction",
			BypassConditions: []string{"high_confidence_extraction"},
		}
	}
	if missingMandatory > rules.MaxMissingMandatoryDocs {
		return &model.RoutingDecision{
			NextStage:        model.SINK_HUMAN_REVIEW,
			Reason:           "too many mandatory documents missing",
			BypassConditions: []string{"sufficient_documents"},
		}
	}
	if avgConfidence < rules.MinDocumentConfidence {
		return &model.RoutingDecision{
			NextStage:        model.SINK_HUMAN_REVIEW,
			Reason:           "average document confidence below threshold",
			BypassConditions: []string{"minimum_confidence"},
		}
	}
	return &model.RoutingDecision{
		NextStage:     STAGE_ENTITY_KMP,
		Reason:        "sufficient documents available for entity analysis",
		ConditionsMet: []string{"borrower_pan_available", "sufficient_document_quality", "basic_documents_classified"},
	}
}

func validateFiles(files []model.UploadedFile) error {
	var totalSize int64
	for _, f := range files {
		if !allowedFileTypes[f.FileType] {
			return fmt.Errorf("unsupported file type %s for %s", f.FileType, f.FileName)
		}
		totalSize += f.FileSize
	}
	if totalSize > maxUploadBytes {
		return fmt.Errorf("total upload size %d exceeds maximum %d", totalSize, maxUploadBytes)
	}
	return nil
}

func parseProcessedDocuments(data map[string]any) []map[string]any {
	raw, ok := data["documents"].([]any)
	if !ok {
		return nil
	}
	documents := make([]map[string]any, 0, len(raw))
	for _, item := range raw {
		doc, ok := item.(map[string]any)
		if !ok {
			continue
		}
		documents = append(documents, map[string]any{
			"document_type":    resultString(doc, "document_type"),
			"owner":            resultString(doc, "owner"),
			"confidence_score": resultFloat(doc, "confidence_score"),
			"extracted_data":   doc["extracted_data"],
		})
	}
	return documents
}
