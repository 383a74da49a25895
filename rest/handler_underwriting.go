package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/credik/underwrite/engine"
	"github.com/credik/underwrite/logger"
	"github.com/credik/underwrite/model"
	"github.com/credik/underwrite/persistence"
	"go.uber.org/zap"
)

type resumeRequest struct {
	UserInput map[string]any `json:"userInput"`
}

func (s *Server) HandleStartApplication(w http.ResponseWriter, r *http.Request) {
	var app model.LoanApplication
	if err := json.NewDecoder(r.Body).Decode(&app); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid application payload")
		return
	}
	defer r.Body.Close()

	record, err := s.underwritingService.StartApplication(r.Context(), &app)
	if err != nil {
		logger.Error("error starting application", zap.String("applicant", app.ApplicantName), zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "error starting application")
		return
	}
	respondWithJSON(w, http.StatusOK, record)
}

func (s *Server) HandleResumeApplication(w http.ResponseWriter, r *http.Request) {
	runId := mux.Vars(r)["id"]
	var req resumeRequest
	if r.Body != nil {
		// Empty body means resume without operator input.
		_ = json.NewDecoder(r.Body).Decode(&req)
		defer r.Body.Close()
	}

	record, err := s.underwritingService.ResumeApplication(r.Context(), runId, req.UserInput)
	if err != nil {
		switch {
		case errors.Is(err, persistence.ErrNotFound):
			respondWithError(w, http.StatusNotFound, "run not found")
		case errors.Is(err, engine.ErrRunTerminal):
			respondWithError(w, http.StatusConflict, "run already finished")
		default:
			logger.Error("error resuming application", zap.String("runId", runId), zap.Error(err))
			respondWithError(w, http.StatusInternalServerError, "error resuming application")
		}
		return
	}
	respondWithJSON(w, http.StatusOK, record)
}

func (s *Server) HandleGetRecord(w http.ResponseWriter, r *http.Request) {
	runId := mux.Vars(r)["id"]
	record, err := s.underwritingService.GetRecord(r.Context(), runId)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "run not found")
			return
		}
		logger.Error("error loading record", zap.String("runId", runId), zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "error loading record")
		return
	}
	respondWithJSON(w, http.StatusOK, record)
}
