package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/vclink/vclink-bridge/internal/models"
	"github.com/vclink/vclink-bridge/internal/storage"
	"github.com/vclink/vclink-bridge/internal/validation"
)

// HandleListVehicles lists vehicles
func (s *RESTServer) HandleListVehicles(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit == 0 {
		limit = 20
	}
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	vehicles, total, err := s.store.ListVehicles(ctx, limit, offset)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"vehicles": vehicles,
		"total":    total,
	})
}

// HandleGetVehicle gets a vehicle
func (s *RESTServer) HandleGetVehicle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	vin := chi.URLParam(r, "vin")
	if err := validation.ValidateVIN(vin); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	vehicle, err := s.store.GetVehicle(ctx, vin)
	if err != nil {
		if err == storage.ErrNotFound {
			s.respondError(w, http.StatusNotFound, "vehicle not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, vehicle)
}

// HandleGetVehicleStatus returns the latest realtime snapshot
func (s *RESTServer) HandleGetVehicleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	vin := chi.URLParam(r, "vin")
	if err := validation.ValidateVIN(vin); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	snap, err := s.store.GetLatestTelemetry(ctx, vin, models.TelemetryKindRealtime)
	if err != nil {
		if err == storage.ErrNotFound {
			s.respondError(w, http.StatusNotFound, "no status reported yet")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, snap)
}

// HandleGetVehiclePosition returns the latest GPS fix
func (s *RESTServer) HandleGetVehiclePosition(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	vin := chi.URLParam(r, "vin")
	if err := validation.ValidateVIN(vin); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	snap, err := s.store.GetLatestTelemetry(ctx, vin, models.TelemetryKindGPS)
	if err != nil {
		if err == storage.ErrNotFound {
			s.respondError(w, http.StatusNotFound, "no position reported yet")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	lat, lon, ok := snap.Position()
	if !ok {
		s.respondError(w, http.StatusNotFound, "no position fix in latest snapshot")
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"vin":        snap.VIN,
		"latitude":   lat,
		"longitude":  lon,
		"source":     snap.Source,
		"capturedAt": snap.CapturedAt,
	})
}

// HandleListVehicleTelemetry lists stored snapshots for a vehicle
func (s *RESTServer) HandleListVehicleTelemetry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	vin := chi.URLParam(r, "vin")
	if err := validation.ValidateVIN(vin); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	kind := r.URL.Query().Get("kind")
	if kind != "" && kind != models.TelemetryKindRealtime && kind != models.TelemetryKindGPS {
		s.respondError(w, http.StatusBadRequest, "invalid kind")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit == 0 {
		limit = 20
	}
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	snapshots, total, err := s.store.ListTelemetry(ctx, vin, kind, limit, offset)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"telemetry": snapshots,
		"total":     total,
	})
}
