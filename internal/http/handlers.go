// Package http expone el front end del servicio: registro de devices,
// fetch de payloads pendientes e ingesta de snapshots.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/statuswatch/internal/engine"
	"github.com/dropDatabas3/statuswatch/internal/feature"
	"github.com/dropDatabas3/statuswatch/internal/observability/logger"
	"github.com/dropDatabas3/statuswatch/internal/push"
	"github.com/dropDatabas3/statuswatch/internal/registry"
	"github.com/dropDatabas3/statuswatch/internal/store"
)

// API agrupa las dependencias de los handlers.
type API struct {
	Registry    *registry.Registry
	Dispatcher  *push.Dispatcher
	Engine      *engine.Engine
	Coordinator *engine.Coordinator
	KV          store.KV
}

// handleRegister — POST /v1/register
func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !ReadJSON(w, r, &req) {
		return
	}
	if req.DeviceID == "" {
		WriteError(w, http.StatusBadRequest, "invalid_request", "deviceId requerido")
		return
	}

	feats, err := a.Registry.Register(r.Context(), req.DeviceID, req.Features, req.Endpoint, req.Key, req.AuthSecret)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, registerResponse{DeviceID: req.DeviceID, Features: feats})
}

// handleUnregister — POST /v1/unregister
func (a *API) handleUnregister(w http.ResponseWriter, r *http.Request) {
	var req unregisterRequest
	if !ReadJSON(w, r, &req) {
		return
	}
	if req.DeviceID == "" {
		WriteError(w, http.StatusBadRequest, "invalid_request", "deviceId requerido")
		return
	}

	var feats []string
	if req.Features != nil {
		feats = *req.Features
	}
	if err := a.Registry.Unregister(r.Context(), req.DeviceID, feats); err != nil {
		WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleUpdateDevice — PUT /v1/device
func (a *API) handleUpdateDevice(w http.ResponseWriter, r *http.Request) {
	var req updateDeviceRequest
	if !ReadJSON(w, r, &req) {
		return
	}
	if req.DeviceID == "" {
		WriteError(w, http.StatusBadRequest, "invalid_request", "deviceId requerido")
		return
	}

	if err := a.Registry.UpdateDevice(r.Context(), req.DeviceID, req.Endpoint, req.Key, req.AuthSecret); err != nil {
		WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleGetFeatures — GET /v1/devices/{deviceID}/features
func (a *API) handleGetFeatures(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "deviceID")

	feats, err := a.Registry.GetRegisteredFeatures(r.Context(), deviceID)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, featuresResponse{DeviceID: deviceID, Features: feats})
}

// handleGetPayload — GET /v1/devices/{deviceID}/payload
// Consume el payload pendiente: la segunda lectura da 404.
func (a *API) handleGetPayload(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "deviceID")

	payload, ok, err := a.Dispatcher.GetPayload(r.Context(), deviceID)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	if !ok {
		WriteError(w, http.StatusNotFound, "not_found", "no pending payload")
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(payload))
}

// handleIngest — POST /v1/ingest
// Corre el pipeline completo sobre un batch: clasificar, persistir, notificar.
func (a *API) handleIngest(w http.ResponseWriter, r *http.Request) {
	var recs []feature.Record
	if !ReadJSON(w, r, &recs) {
		return
	}

	ctx := r.Context()
	recs, err := a.Engine.CheckForNewData(ctx, recs)
	if err != nil {
		logger.From(ctx).Error("ingest: classification failed", logger.Err(err))
		WriteError(w, http.StatusBadGateway, "store_error", "status store unavailable")
		return
	}
	recs, err = a.Engine.SaveData(ctx, recs)
	if err != nil {
		logger.From(ctx).Error("ingest: persist failed", logger.Err(err))
		WriteError(w, http.StatusBadGateway, "store_error", "status store unavailable")
		return
	}
	if err := a.Coordinator.NotifyChanges(ctx, recs); err != nil {
		logger.From(ctx).Error("ingest: dispatch failed", logger.Err(err))
		WriteError(w, http.StatusBadGateway, "store_error", "notification dispatch failed")
		return
	}

	resp := ingestResponse{Received: len(recs)}
	for _, rec := range recs {
		switch {
		case rec.JustStarted():
			resp.Started++
		case rec.HasChanges():
			resp.Updated++
		}
	}
	WriteJSON(w, http.StatusOK, resp)
}

// handleHealthz — GET /healthz
func (a *API) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if err := a.KV.Ping(r.Context()); err != nil {
		WriteError(w, http.StatusServiceUnavailable, "store_unavailable", err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
