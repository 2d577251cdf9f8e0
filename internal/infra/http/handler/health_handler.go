package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/sanjbhakta/fintx-surveillance/internal/gateway"
)

// NewHealthRouter monta o endpoint de operação de um stage do pipeline.
// GET /health responde 200 enquanto a conexão com o broker não for
// terminal; caído o broker (Failed), responde 503 para o orquestrador
// reciclar o processo.
func NewHealthRouter(stage string, state func() gateway.ConnState) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer) // Evita crash se der panic
	router.Use(middleware.Timeout(5 * time.Second))

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		s := state()

		status := http.StatusOK
		if s == gateway.StateFailed {
			status = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		err := json.NewEncoder(w).Encode(map[string]string{
			"stage":      stage,
			"connection": s.String(),
		})
		if err != nil {
			log.Error().Err(err).Msg("Falha ao escrever resposta de health check")
		}
	})

	return router
}
