package model

import "time"

// BusinessRules is the threshold snapshot embedded in a Record at creation.
// Routing reads it from the record, never from ambient configuration, so a
// checkpointed run replays against the rules it started with.
type BusinessRules struct {
	MinKMPCoverage          float64       `json:"minKmpCoverage"`
	MinConsumerCibil        int           `json:"minConsumerCibil"`
	MaxCommercialCMR        int           `json:"maxCommercialCmr"`
	EligibleConstitutions   []string      `json:"eligibleConstitutions"`
	MinDocumentConfidence   float64       `json:"minDocumentConfidence"`
	MinPANConfidence        float64       `json:"minPanConfidence"`
	HighConfidenceThreshold float64       `json:"highConfidenceThreshold"`
	MaxMissingMandatoryDocs int           `json:"maxMissingMandatoryDocs"`
	StageTimeout            time.Duration `json:"stageTimeout"`
}

func DefaultBusinessRules() BusinessRules {
	return BusinessRules{
		MinKMPCoverage:          0.5,
		MinConsumerCibil:        680,
		MaxCommercialCMR:        8,
		EligibleConstitutions:   []string{"sole_proprietorship", "partnership", "llp", "company", "huf"},
		MinDocumentConfidence:   0.7,
		MinPANConfidence:        0.8,
		HighConfidenceThreshold: 0.9,
		MaxMissingMandatoryDocs: 3,
		StageTimeout:            30 * time.Second,
	}
}

func (b BusinessRules) ConstitutionEligible(constitution string) bool {
	for _, c := range b.EligibleConstitutions {
		if c == constitution {
			return true
		}
	}
	return false
}
