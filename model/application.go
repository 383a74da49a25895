package model

type LoanContext struct {
	LoanAmount float64 `json:"loanAmount"`
	LoanType   string  `json:"loanType"`
	Purpose    string  `json:"purpose"`
}

type UploadedFile struct {
	FileName string `json:"fileName"`
	FileType string `json:"fileType"`
	FileSize int64  `json:"fileSize"`
	FileUrl  string `json:"fileUrl"`
}

type DeclaredAccount struct {
	BankName      string `json:"bankName"`
	AccountNumber string `json:"accountNumber"`
	AccountType   string `json:"accountType"`
}

type ProcessingOptions struct {
	ConfidenceThreshold float64 `json:"confidenceThreshold"`
	ExtractTables       bool    `json:"extractTables"`
	Language            string  `json:"language"`
}

// LoanApplication is the immutable input payload of a run. UserInput is the
// only part that changes after creation: resume may attach operator-supplied
// data under it before re-running the current stage.
type LoanApplication struct {
	ApplicantName     string            `json:"applicantName"`
	Constitution      string            `json:"constitution"`
	PanNumber         string            `json:"panNumber"`
	GstNumber         string            `json:"gstNumber"`
	LoanContext       LoanContext       `json:"loanContext"`
	UploadedFiles     []UploadedFile    `json:"uploadedFiles"`
	DeclaredAccounts  []DeclaredAccount `json:"declaredAccounts"`
	ProcessingOptions ProcessingOptions `json:"processingOptions"`
	UserInput         map[string]any    `json:"userInput,omitempty"`
}
