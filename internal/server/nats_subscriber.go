package server

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/vclink/vclink-bridge/internal/models"
	"github.com/vclink/vclink-bridge/internal/storage"
)

// NATSSubscriber NATS subscriber
type NATSSubscriber struct {
	nc    *nats.Conn
	store storage.Store
	subs  []*nats.Subscription
}

// NewNATSSubscriber creates NATS subscriber
func NewNATSSubscriber(nc *nats.Conn, store storage.Store) *NATSSubscriber {
	return &NATSSubscriber{
		nc:    nc,
		store: store,
		subs:  make([]*nats.Subscription, 0),
	}
}

// Start starts subscriptions
func (s *NATSSubscriber) Start(ctx context.Context) error {
	// Subscribe to the vehicle list published by the bridge
	sub1, err := s.nc.Subscribe("vclink.vehicle.list", s.handleVehicleList)
	if err != nil {
		return fmt.Errorf("subscribe vehicle list: %w", err)
	}
	s.subs = append(s.subs, sub1)

	// Subscribe to telemetry for all vehicles
	sub2, err := s.nc.Subscribe("vclink.telemetry.>", s.handleTelemetry)
	if err != nil {
		return fmt.Errorf("subscribe telemetry: %w", err)
	}
	s.subs = append(s.subs, sub2)

	// Subscribe to command results
	sub3, err := s.nc.Subscribe("vclink.command.result", s.handleCommandResult)
	if err != nil {
		return fmt.Errorf("subscribe command result: %w", err)
	}
	s.subs = append(s.subs, sub3)

	// Subscribe to protocol events
	sub4, err := s.nc.Subscribe("vclink.event.protocol", s.handleProtocolEvent)
	if err != nil {
		return fmt.Errorf("subscribe protocol event: %w", err)
	}
	s.subs = append(s.subs, sub4)

	log.Info().
		Int("subscriptions", len(s.subs)).
		Msg("NATS subscriber started")

	<-ctx.Done()

	// Unsubscribe
	for _, sub := range s.subs {
		sub.Unsubscribe()
	}

	return ctx.Err()
}

// handleVehicleList handles the vehicle list published by the bridge
func (s *NATSSubscriber) handleVehicleList(msg *nats.Msg) {
	log.Debug().
		Str("subject", msg.Subject).
		Int("size", len(msg.Data)).
		Msg("Received vehicle list")

	var listMsg models.VehicleListMessage
	if err := json.Unmarshal(msg.Data, &listMsg); err != nil {
		log.Error().Err(err).Msg("Failed to unmarshal vehicle list")
		return
	}

	ctx := context.Background()

	for _, info := range listMsg.Vehicles {
		vehicle := &models.Vehicle{
			VIN:   info.VIN,
			Brand: info.Brand,
			Model: info.Model,
			Name:  info.Name,
		}

		if err := s.store.UpsertVehicle(ctx, vehicle); err != nil {
			log.Error().Err(err).Str("vin", info.VIN).Msg("Failed to upsert vehicle")
		}
	}

	event := &models.EventLog{
		Type:        models.EventTypeVehicleSync,
		Level:       models.EventLevelInfo,
		Description: fmt.Sprintf("Vehicle list synced - %d vehicles", len(listMsg.Vehicles)),
		Details: models.Variables{
			"count": len(listMsg.Vehicles),
		},
	}

	if err := s.store.CreateEventLog(ctx, event); err != nil {
		log.Error().Err(err).Msg("Failed to create event log")
	}

	log.Info().
		Int("vehicles", len(listMsg.Vehicles)).
		Msg("Vehicle list processed")
}

// handleTelemetry handles decoded status and position reports
func (s *NATSSubscriber) handleTelemetry(msg *nats.Msg) {
	log.Debug().
		Str("subject", msg.Subject).
		Int("size", len(msg.Data)).
		Msg("Received telemetry update")

	var update models.TelemetryUpdate
	if err := json.Unmarshal(msg.Data, &update); err != nil {
		log.Error().Err(err).Msg("Failed to unmarshal telemetry update")
		return
	}

	if update.VIN == "" || update.Kind == "" {
		log.Warn().Str("subject", msg.Subject).Msg("Telemetry update missing vin or kind")
		return
	}

	ctx := context.Background()

	snap := &models.TelemetrySnapshot{
		VIN:        update.VIN,
		Kind:       update.Kind,
		Source:     update.Source,
		Payload:    models.Variables(update.Payload),
		CapturedAt: update.CapturedAt,
	}

	if err := s.store.CreateTelemetrySnapshot(ctx, snap); err != nil {
		log.Error().Err(err).Str("vin", update.VIN).Msg("Failed to store telemetry snapshot")
		return
	}

	// The vehicle row may not exist yet when telemetry races the first
	// vehicle list sync
	if err := s.store.TouchVehicle(ctx, update.VIN, snap.CapturedAt); err != nil && err != storage.ErrNotFound {
		log.Error().Err(err).Str("vin", update.VIN).Msg("Failed to touch vehicle")
	}

	log.Info().
		Str("vin", update.VIN).
		Str("kind", update.Kind).
		Str("source", update.Source).
		Msg("Telemetry snapshot stored")
}

// handleCommandResult handles terminal command outcomes from the bridge
func (s *NATSSubscriber) handleCommandResult(msg *nats.Msg) {
	log.Debug().
		Str("subject", msg.Subject).
		Msg("Received command result")

	var result models.CommandResultMessage
	if err := json.Unmarshal(msg.Data, &result); err != nil {
		log.Error().Err(err).Msg("Failed to unmarshal command result")
		return
	}

	id, err := uuid.Parse(result.ID)
	if err != nil {
		log.Error().Err(err).Str("id", result.ID).Msg("Invalid command ID in result")
		return
	}

	status := models.CommandStatusFailed
	if result.Success {
		status = models.CommandStatusSucceeded
	}

	completedAt := result.CompletedAt
	if completedAt.IsZero() {
		completedAt = time.Now()
	}

	ctx := context.Background()

	if err := s.store.CompleteCommand(ctx, id, status, result.Error, models.Variables(result.Payload), completedAt); err != nil {
		log.Error().Err(err).Str("id", result.ID).Msg("Failed to complete command")
		return
	}

	level := models.EventLevelInfo
	if !result.Success {
		level = models.EventLevelWarning
	}

	vin := result.VIN
	event := &models.EventLog{
		VIN:         &vin,
		Type:        models.EventTypeCommandResult,
		Level:       level,
		Description: fmt.Sprintf("Command %s %s", result.ID, status),
		Details: models.Variables{
			"commandId": result.ID,
			"success":   result.Success,
			"error":     result.Error,
		},
	}

	if err := s.store.CreateEventLog(ctx, event); err != nil {
		log.Error().Err(err).Msg("Failed to create event log")
	}

	log.Info().
		Str("id", result.ID).
		Str("vin", result.VIN).
		Bool("success", result.Success).
		Msg("Command result processed")
}

// handleProtocolEvent handles protocol events published by the bridge
func (s *NATSSubscriber) handleProtocolEvent(msg *nats.Msg) {
	log.Debug().
		Str("subject", msg.Subject).
		Msg("Received protocol event")

	var eventMsg models.EventMessage
	if err := json.Unmarshal(msg.Data, &eventMsg); err != nil {
		log.Error().Err(err).Msg("Failed to unmarshal protocol event")
		return
	}

	event := &models.EventLog{
		Type:        models.EventType(eventMsg.Type),
		Level:       models.EventLevel(eventMsg.Level),
		Code:        eventMsg.Code,
		Description: eventMsg.Description,
		Details:     models.Variables(eventMsg.Details),
	}

	if !eventMsg.At.IsZero() {
		event.CreatedAt = eventMsg.At
	}

	if eventMsg.VIN != "" {
		vin := eventMsg.VIN
		event.VIN = &vin
	}

	ctx := context.Background()

	if err := s.store.CreateEventLog(ctx, event); err != nil {
		log.Error().Err(err).Msg("Failed to create event log")
		return
	}

	log.Debug().
		Str("type", eventMsg.Type).
		Str("level", eventMsg.Level).
		Msg("Protocol event stored")
}
