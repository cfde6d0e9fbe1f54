package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/vclink/vclink-bridge/internal/models"
	"github.com/vclink/vclink-bridge/internal/storage"
	"github.com/vclink/vclink-bridge/internal/validation"
)

// HandleSendCommand queues a remote control command for dispatch
func (s *RESTServer) HandleSendCommand(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	vin := chi.URLParam(r, "vin")
	if err := validation.ValidateVIN(vin); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req struct {
		Action     string            `json:"action"`
		Params     map[string]string `json:"params"`
		ControlPIN string            `json:"controlPin"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := validation.ValidateAction(req.Action); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.ControlPIN != "" {
		if err := validation.ValidatePIN(req.ControlPIN); err != nil {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	// Only known vehicles can be commanded
	if _, err := s.store.GetVehicle(ctx, vin); err != nil {
		if err == storage.ErrNotFound {
			s.respondError(w, http.StatusNotFound, "vehicle not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	params := make(models.Variables, len(req.Params))
	for k, v := range req.Params {
		params[k] = v
	}

	// The control PIN travels only on the message plane, never into storage
	command := &models.Command{
		ID:     uuid.New(),
		VIN:    vin,
		Action: req.Action,
		Params: params,
		Status: models.CommandStatusPending,
	}

	if err := s.store.CreateCommand(ctx, command); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	msg := models.CommandRequest{
		ID:         command.ID.String(),
		VIN:        vin,
		Action:     req.Action,
		Params:     req.Params,
		ControlPIN: req.ControlPIN,
	}

	data, err := json.Marshal(msg)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to encode command")
		return
	}

	if err := s.publisher.Publish("vclink.command.request", data); err != nil {
		log.Error().Err(err).Str("vin", vin).Str("action", req.Action).Msg("Failed to dispatch command")
		s.store.CompleteCommand(ctx, command.ID, models.CommandStatusFailed, "dispatch failed", nil, command.CreatedAt)
		s.respondError(w, http.StatusBadGateway, "failed to dispatch command")
		return
	}

	// Log event
	event := &models.EventLog{
		VIN:         &vin,
		Type:        models.EventTypeCommandSent,
		Level:       models.EventLevelInfo,
		Description: fmt.Sprintf("Command %s queued for dispatch", req.Action),
		Details: models.Variables{
			"commandId": command.ID.String(),
			"action":    req.Action,
		},
	}
	if err := s.store.CreateEventLog(ctx, event); err != nil {
		log.Warn().Err(err).Msg("Failed to log command event")
	}

	s.respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"id":      command.ID,
		"vin":     vin,
		"action":  req.Action,
		"status":  command.Status,
		"message": "command queued for dispatch",
	})
}

// HandleGetCommand gets a command by ID
func (s *RESTServer) HandleGetCommand(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	idStr := chi.URLParam(r, "id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid command id")
		return
	}

	command, err := s.store.GetCommand(ctx, id)
	if err != nil {
		if err == storage.ErrNotFound {
			s.respondError(w, http.StatusNotFound, "command not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, command)
}

// HandleListCommands lists commands, optionally filtered by vehicle
func (s *RESTServer) HandleListCommands(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	vin := r.URL.Query().Get("vin")
	if vin != "" {
		if err := validation.ValidateVIN(vin); err != nil {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit == 0 {
		limit = 20
	}
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	commands, total, err := s.store.ListCommands(ctx, vin, limit, offset)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"commands": commands,
		"total":    total,
	})
}

// HandleListVehicleCommands lists commands for one vehicle
func (s *RESTServer) HandleListVehicleCommands(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	vin := chi.URLParam(r, "vin")
	if err := validation.ValidateVIN(vin); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit == 0 {
		limit = 20
	}
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	commands, total, err := s.store.ListCommands(ctx, vin, limit, offset)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"commands": commands,
		"total":    total,
	})
}
