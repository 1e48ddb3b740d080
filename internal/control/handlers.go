package control

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/indie-priyanshu12/WattWise-An-Energy-Saving-App/internal/advisor"
	"github.com/indie-priyanshu12/WattWise-An-Energy-Saving-App/internal/markup"
	"github.com/indie-priyanshu12/WattWise-An-Energy-Saving-App/internal/stats"
	"github.com/indie-priyanshu12/WattWise-An-Energy-Saving-App/internal/tracker"
)

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code"`
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		http.Error(w, `{"error":"Internal Server Error","message":"Failed to encode response"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_, _ = w.Write(buf.Bytes())
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	devices := s.tracker.Snapshot()

	on := 0
	for _, d := range devices {
		if d.On {
			on++
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"username":    s.tracker.Username(),
		"devices":     len(devices),
		"devices_on":  on,
		"total_units": s.tracker.TotalUnits(),
	})
}

func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	devices := s.tracker.Snapshot()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"devices": devices,
		"count":   len(devices),
	})
}

type addDeviceRequest struct {
	Name  string  `json:"name"`
	Power float64 `json:"power"`
}

func (s *Server) handleAddDevice(w http.ResponseWriter, r *http.Request) {
	var req addDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := s.tracker.AddDevice(req.Name, req.Power); err != nil {
		switch {
		case errors.Is(err, tracker.ErrInvalidDevice):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, tracker.ErrDuplicateDevice):
			writeError(w, http.StatusConflict, err.Error())
		default:
			s.logger.Error().Err(err).Str("device", req.Name).Msg("Failed to add device")
			writeError(w, http.StatusInternalServerError, "Failed to add device")
		}
		return
	}

	for _, d := range s.tracker.Snapshot() {
		if d.Name == req.Name {
			writeJSON(w, http.StatusCreated, d)
			return
		}
	}
	writeJSON(w, http.StatusCreated, addDeviceRequest{Name: req.Name, Power: req.Power})
}

func (s *Server) handleRemoveDevice(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	if err := s.tracker.RemoveDevice(name); err != nil {
		if errors.Is(err, tracker.ErrUnknownDevice) {
			writeError(w, http.StatusNotFound, "Device not found")
			return
		}
		s.logger.Error().Err(err).Str("device", name).Msg("Failed to remove device")
		writeError(w, http.StatusInternalServerError, "Failed to remove device")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Device removed",
	})
}

func (s *Server) handleToggleDevice(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	state, err := s.tracker.Toggle(name)
	if err != nil {
		if errors.Is(err, tracker.ErrUnknownDevice) {
			writeError(w, http.StatusNotFound, "Device not found")
			return
		}
		s.logger.Error().Err(err).Str("device", name).Msg("Failed to toggle device")
		writeError(w, http.StatusInternalServerError, "Failed to toggle device")
		return
	}

	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	if err := s.tracker.Save(); err != nil {
		s.logger.Error().Err(err).Msg("Failed to save state")
		writeError(w, http.StatusInternalServerError, "Failed to save state")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "State saved",
	})
}

func (s *Server) handleDailyStats(w http.ResponseWriter, r *http.Request) {
	snap, err := s.store.ReadUser(r.Context(), s.tracker.Username())
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to read ledger for stats")
		writeError(w, http.StatusInternalServerError, "Failed to read usage log")
		return
	}

	table := stats.Daily(snap.Events, s.tracker.Snapshot(), s.clock.Now())
	writeJSON(w, http.StatusOK, table)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := s.board.Compute(r.Context(), s.tracker.Username(), s.tracker.TotalUnits())
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to compute leaderboard")
		writeError(w, http.StatusInternalServerError, "Failed to compute leaderboard")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"count":   len(entries),
	})
}

func (s *Server) handleStartRecommendations(w http.ResponseWriter, r *http.Request) {
	id, _, err := s.advice.Request(r.Context(), s.tracker.Username(), s.tracker.Snapshot())
	if err != nil {
		switch {
		case errors.Is(err, advisor.ErrBusy):
			writeError(w, http.StatusConflict, "A recommendation request is already running")
		case errors.Is(err, advisor.ErrNoCredential):
			writeError(w, http.StatusServiceUnavailable, "API key not set")
		case errors.Is(err, advisor.ErrNoUsageData):
			writeError(w, http.StatusBadRequest, "No usage data to analyze")
		default:
			s.logger.Error().Err(err).Msg("Failed to start recommendation request")
			writeError(w, http.StatusInternalServerError, "Failed to start recommendation request")
		}
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"id":     id,
		"status": advisor.StatusRunning,
	})
}

type spanResponse struct {
	Text  string `json:"text"`
	Style string `json:"style"`
}

type recommendationResponse struct {
	ID     string         `json:"id"`
	Status advisor.Status `json:"status"`
	Text   string         `json:"text,omitempty"`
	Spans  []spanResponse `json:"spans,omitempty"`
	Error  string         `json:"error,omitempty"`
}

func (s *Server) handleGetRecommendations(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	snap := s.advice.State()
	if snap.ID == "" || snap.ID != id {
		writeError(w, http.StatusNotFound, "Unknown recommendation request")
		return
	}

	resp := recommendationResponse{ID: snap.ID, Status: snap.Status}
	switch snap.Status {
	case advisor.StatusDone:
		resp.Text = snap.Text
		for _, span := range markup.Parse(snap.Text) {
			resp.Spans = append(resp.Spans, spanResponse{Text: span.Text, Style: span.Style.String()})
		}
	case advisor.StatusFailed:
		resp.Error = snap.Err.Error()
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCancelRecommendations(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if !s.advice.Cancel(id) {
		writeError(w, http.StatusNotFound, "No matching running request")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Recommendation request canceled",
	})
}
