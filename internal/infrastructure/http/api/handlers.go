package api

import (
	"errors"
	"io"
	"net/http"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/whiteelite/relay/internal/application/gasless"
	relayerrors "github.com/whiteelite/relay/internal/domain/errors"
)

const (
	maxBodyBytes = 1 << 20

	// metrics label for requests that never decoded into an action
	actionInvalid = "invalid"
	actionStatus  = "status"

	msgNotConfigured    = "Gasless not configured"
	msgStatusDisabled   = "Gasless transactions not configured. Set RELAY_RPC_URL."
	msgRelayUnreachable = "Failed to connect to relay"
	msgBodyTooLarge     = "Request body too large"
	msgOperationFailed  = "Gasless operation failed"
)

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func handlePreflight(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

// handleGaslessStatus handles GET /api/gasless
func (s *Server) handleGaslessStatus(w http.ResponseWriter, r *http.Request) {
	if s.gasless == nil {
		s.writeJSON(w, actionStatus, http.StatusOK, gasless.StatusResponse{
			Enabled: false,
			Message: msgStatusDisabled,
		})
		return
	}

	status, err := s.gasless.Status(r.Context())
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("Relay status probe failed")
		s.writeJSON(w, actionStatus, http.StatusInternalServerError, gasless.StatusResponse{
			Enabled: false,
			Error:   msgRelayUnreachable,
		})
		return
	}
	s.writeJSON(w, actionStatus, http.StatusOK, status)
}

// handleGasless handles POST /api/gasless
func (s *Server) handleGasless(w http.ResponseWriter, r *http.Request) {
	if s.gasless == nil {
		s.writeJSON(w, actionInvalid, http.StatusBadRequest, ErrorResponse{Error: msgNotConfigured})
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeJSON(w, actionInvalid, http.StatusRequestEntityTooLarge, ErrorResponse{Error: msgBodyTooLarge})
			return
		}
		s.fail(w, r, actionInvalid, relayerrors.InvalidRequest("Invalid JSON body"))
		return
	}

	action, err := gasless.ParseAction(body)
	if err != nil {
		s.fail(w, r, actionInvalid, err)
		return
	}

	logger := zerolog.Ctx(r.Context()).With().Str("action", action.Name()).Logger()
	ctx := logger.WithContext(r.Context())

	resp, err := s.gasless.Handle(ctx, action)
	if err != nil {
		s.fail(w, r.WithContext(ctx), action.Name(), err)
		return
	}
	s.writeJSON(w, action.Name(), http.StatusOK, resp)
}

// fail answers with the error's own message when it is a relay flow error
// and a generic one otherwise.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, action string, err error) {
	status := relayerrors.HTTPStatus(err)
	logger := zerolog.Ctx(r.Context())

	message := msgOperationFailed
	if e, ok := relayerrors.As(err); ok {
		message = e.Message
	}

	relay := relayerrors.IsRelayError(err)
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Int("status", status).Bool("relay", relay).Msg("Gasless request failed")
	} else {
		logger.Warn().Err(err).Int("status", status).Bool("relay", relay).Msg("Gasless request rejected")
	}
	s.writeJSON(w, action, status, ErrorResponse{Error: message})
}

func (s *Server) writeJSON(w http.ResponseWriter, action string, status int, body any) {
	s.metrics.ObserveRequest(action, status)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error().Err(err).Str("action", action).Msg("Failed to write response")
	}
}
