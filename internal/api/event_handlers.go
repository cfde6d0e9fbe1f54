package api

import (
    "net/http"
    "strconv"
    "time"

    "github.com/vclink/vclink-bridge/internal/models"
    "github.com/vclink/vclink-bridge/internal/storage"
)

// HandleListEvents lists event logs
func (s *RESTServer) HandleListEvents(w http.ResponseWriter, r *http.Request) {
    ctx := r.Context()

    limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
    if limit == 0 {
        limit = 20
    }
    offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

    filters := storage.EventLogFilters{}

    if vin := r.URL.Query().Get("vin"); vin != "" {
        filters.VIN = &vin
    }

    if eventType := r.URL.Query().Get("type"); eventType != "" {
        t := models.EventType(eventType)
        filters.Type = &t
    }

    if level := r.URL.Query().Get("level"); level != "" {
        l := models.EventLevel(level)
        filters.Level = &l
    }

    if start := r.URL.Query().Get("start"); start != "" {
        t, err := time.Parse(time.RFC3339, start)
        if err != nil {
            s.respondError(w, http.StatusBadRequest, "invalid start time")
            return
        }
        filters.StartTime = &t
    }

    if end := r.URL.Query().Get("end"); end != "" {
        t, err := time.Parse(time.RFC3339, end)
        if err != nil {
            s.respondError(w, http.StatusBadRequest, "invalid end time")
            return
        }
        filters.EndTime = &t
    }

    events, total, err := s.store.ListEventLogs(ctx, filters, limit, offset)
    if err != nil {
        s.respondError(w, http.StatusInternalServerError, err.Error())
        return
    }

    s.respondJSON(w, http.StatusOK, map[string]interface{}{
        "events": events,
        "total":  total,
    })
}
