package external

import (
	"context"
	"time"

	"github.com/credik/underwrite/model"
)

const DocumentProcessingCost = 0.30

// DocumentService fronts the PDF/image processing service that classifies
// uploaded files and extracts structured fields with per-document
// confidence scores.
type DocumentService interface {
	ProcessDocuments(ctx context.Context, files []model.UploadedFile, options model.ProcessingOptions) *Response
}

type httpDocumentService struct {
	client *baseClient
}

var _ DocumentService = new(httpDocumentService)

func NewHttpDocumentService(baseUrl string, apiKey string, timeout time.Duration) *httpDocumentService {
	return &httpDocumentService{
		client: newBaseClient("DocumentProcessing", baseUrl, apiKey, timeout),
	}
}

func (s *httpDocumentService) ProcessDocuments(ctx context.Context, files []model.UploadedFile, options model.ProcessingOptions) *Response {
	fileRefs := make([]map[string]any, 0, len(files))
	for _, f := range files {
		fileRefs = append(fileRefs, map[string]any{
			"fileName": f.FileName,
			"fileType": f.FileType,
			"fileSize": f.FileSize,
			"fileUrl":  f.FileUrl,
		})
	}
	body := map[string]any{
		"files": fileRefs,
		"options": map[string]any{
			"confidence_threshold": options.ConfidenceThreshold,
			"extract_tables":       options.ExtractTables,
			"language":             options.Language,
		},
	}
	return s.client.doRequest(ctx, "POST", "process", body, nil)
}
