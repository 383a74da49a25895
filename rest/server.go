package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/credik/underwrite/logger"
	"github.com/credik/underwrite/service"
	"go.uber.org/zap"
)

type Server struct {
	http.Server
	Port                int
	underwritingService *service.UnderwritingService
}

func NewServer(httpPort int, underwritingService *service.UnderwritingService) (*Server, error) {
	s := &Server{
		Server: http.Server{
			Addr: fmt.Sprintf(":%d", httpPort),
		},
		Port:                httpPort,
		underwritingService: underwritingService,
	}

	router := mux.NewRouter()
	router.HandleFunc("/underwriting", s.HandleStartApplication).Methods(http.MethodPost)
	router.HandleFunc("/underwriting/{id}", s.HandleGetRecord).Methods(http.MethodGet)
	router.HandleFunc("/underwriting/{id}/resume", s.HandleResumeApplication).Methods(http.MethodPost)
	router.Use(loggingMiddleware)
	s.Handler = router
	return s, nil
}

func (s *Server) Start() error {
	logger.Info("starting http server", zap.Int("port", s.Port))
	if err := s.ListenAndServe(); err != nil {
		return err
	}
	return nil
}

func (s *Server) Stop() error {
	logger.Info("stopping http server")
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		logger.Error("error shutting down http server", zap.Error(err))
	}
	return nil
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Info(r.RequestURI)
		next.ServeHTTP(w, r)
	})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}
