// Package registry mantiene la relación many-to-many entre devices y
// features, espejada en ambas direcciones para lookup O(1), más el hash de
// conexión de cada device ({endpoint, key, auth}).
package registry

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/dropDatabas3/statuswatch/internal/feature"
	"github.com/dropDatabas3/statuswatch/internal/observability/logger"
	"github.com/dropDatabas3/statuswatch/internal/store"
)

// Campos del hash de conexión de un device.
const (
	FieldEndpoint = "endpoint"
	FieldKey      = "key"
	FieldAuth     = "auth"
)

// Confirmer valida la reachability de un endpoint al momento del registro
// (un POST con body vacío). Lo implementa push.Dispatcher.
type Confirmer interface {
	Confirm(ctx context.Context, endpoint string) error
}

// Registry es el repositorio de suscripciones sobre el KV. No guarda estado
// en memoria: cada set add/remove individual contra el store es atómico, y
// una operación parcial se auto-repara en la próxima pasada sobre el mismo
// device (adds/removes idempotentes).
type Registry struct {
	kv        store.KV
	confirmer Confirmer
	log       *zap.Logger
}

// New crea un Registry. confirmer puede ser nil (sin POST de confirmación).
func New(kv store.KV, confirmer Confirmer) *Registry {
	return &Registry{kv: kv, confirmer: confirmer, log: logger.Named("registry")}
}

// Register suscribe un device a una lista de features y devuelve el set
// completo de features del device después de la operación.
//
// Reglas:
//   - endpoint vacío y sin endpoint almacenado ⇒ ErrNoEndpoint.
//   - features vacía ⇒ ErrNoFeatures.
//   - endpoint provisto ⇒ upsert del hash de conexión + un POST de
//     confirmación (su falla se loguea, no bloquea el registro).
//   - "all" en la lista ⇒ se limpian todas las suscripciones previas del
//     device (en ambas direcciones) y queda solo "all".
//   - resto ⇒ add idempotente por slug, en ambas direcciones.
func (r *Registry) Register(ctx context.Context, deviceID string, features []string, endpoint, key, auth string) ([]string, error) {
	if len(features) == 0 {
		return nil, feature.ErrNoFeatures
	}

	if endpoint == "" {
		stored, err := r.kv.HGet(ctx, store.DeviceKey(deviceID), FieldEndpoint)
		if err != nil && !store.IsNotFound(err) {
			return nil, fmt.Errorf("registry: load device: %w", err)
		}
		if stored == "" {
			return nil, feature.ErrNoEndpoint
		}
	} else {
		fields := map[string]string{FieldEndpoint: endpoint}
		if key != "" {
			fields[FieldKey] = key
		}
		if auth != "" {
			fields[FieldAuth] = auth
		}
		if err := r.kv.HSet(ctx, store.DeviceKey(deviceID), fields); err != nil {
			return nil, fmt.Errorf("registry: save device: %w", err)
		}

		if r.confirmer != nil {
			if err := r.confirmer.Confirm(ctx, endpoint); err != nil {
				r.log.Warn("confirmation delivery failed",
					logger.DeviceID(deviceID), logger.Endpoint(endpoint), logger.Err(err))
			}
		}
	}

	if contains(features, feature.PseudoAll) {
		if err := r.clearEdges(ctx, deviceID); err != nil {
			return nil, err
		}
		features = []string{feature.PseudoAll}
	}

	for _, slug := range features {
		if err := r.kv.SAdd(ctx, store.FeatureDevicesKey(slug), deviceID); err != nil {
			return nil, fmt.Errorf("registry: add edge: %w", err)
		}
		if err := r.kv.SAdd(ctx, store.DeviceFeaturesKey(deviceID), slug); err != nil {
			return nil, fmt.Errorf("registry: add edge: %w", err)
		}
	}

	return r.features(ctx, deviceID)
}

// Unregister borra suscripciones de un device.
//
// features == nil ⇒ deregistración completa: se quitan todas las
// suscripciones y se borra el hash de conexión.
// features != nil ⇒ se quitan solo las listadas ("all" acá es un slug más);
// el hash de conexión se retiene aunque el set quede vacío.
func (r *Registry) Unregister(ctx context.Context, deviceID string, features []string) error {
	registered, err := r.hasRegistration(ctx, deviceID)
	if err != nil {
		return err
	}
	if !registered {
		return feature.ErrNotRegistered
	}

	if features == nil {
		if err := r.clearEdges(ctx, deviceID); err != nil {
			return err
		}
		if err := r.kv.Del(ctx, store.DeviceKey(deviceID)); err != nil {
			return fmt.Errorf("registry: delete device: %w", err)
		}
		return nil
	}

	for _, slug := range features {
		if err := r.kv.SRem(ctx, store.FeatureDevicesKey(slug), deviceID); err != nil {
			return fmt.Errorf("registry: remove edge: %w", err)
		}
		if err := r.kv.SRem(ctx, store.DeviceFeaturesKey(deviceID), slug); err != nil {
			return fmt.Errorf("registry: remove edge: %w", err)
		}
	}
	return nil
}

// GetRegisteredFeatures retorna las features a las que está suscrito un
// device, ordenadas. ErrNotRegistered si el set está vacío o el device no
// existe.
func (r *Registry) GetRegisteredFeatures(ctx context.Context, deviceID string) ([]string, error) {
	feats, err := r.features(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if len(feats) == 0 {
		return nil, feature.ErrNotRegistered
	}
	return feats, nil
}

// UpdateDevice sobreescribe el hash de conexión completo. Semántica de
// overwrite, no merge: key/auth omitidos quedan vacíos.
func (r *Registry) UpdateDevice(ctx context.Context, deviceID, endpoint, key, auth string) error {
	registered, err := r.hasRegistration(ctx, deviceID)
	if err != nil {
		return err
	}
	if !registered {
		return feature.ErrNotRegistered
	}
	if endpoint == "" {
		return feature.ErrNoEndpoint
	}

	if err := r.kv.Del(ctx, store.DeviceKey(deviceID)); err != nil {
		return fmt.Errorf("registry: reset device: %w", err)
	}
	fields := map[string]string{FieldEndpoint: endpoint, FieldKey: key, FieldAuth: auth}
	if err := r.kv.HSet(ctx, store.DeviceKey(deviceID), fields); err != nil {
		return fmt.Errorf("registry: save device: %w", err)
	}
	return nil
}

// hasRegistration verifica si el device tiene algún estado: hash de conexión
// o al menos una suscripción.
func (r *Registry) hasRegistration(ctx context.Context, deviceID string) (bool, error) {
	hash, err := r.kv.HGetAll(ctx, store.DeviceKey(deviceID))
	if err != nil {
		return false, fmt.Errorf("registry: load device: %w", err)
	}
	if len(hash) > 0 {
		return true, nil
	}
	feats, err := r.kv.SMembers(ctx, store.DeviceFeaturesKey(deviceID))
	if err != nil {
		return false, fmt.Errorf("registry: load features: %w", err)
	}
	return len(feats) > 0, nil
}

// clearEdges quita todas las suscripciones del device, en ambas direcciones.
func (r *Registry) clearEdges(ctx context.Context, deviceID string) error {
	feats, err := r.kv.SMembers(ctx, store.DeviceFeaturesKey(deviceID))
	if err != nil {
		return fmt.Errorf("registry: load features: %w", err)
	}
	for _, slug := range feats {
		if err := r.kv.SRem(ctx, store.FeatureDevicesKey(slug), deviceID); err != nil {
			return fmt.Errorf("registry: remove edge: %w", err)
		}
	}
	if err := r.kv.Del(ctx, store.DeviceFeaturesKey(deviceID)); err != nil {
		return fmt.Errorf("registry: clear features: %w", err)
	}
	return nil
}

func (r *Registry) features(ctx context.Context, deviceID string) ([]string, error) {
	feats, err := r.kv.SMembers(ctx, store.DeviceFeaturesKey(deviceID))
	if err != nil {
		return nil, fmt.Errorf("registry: load features: %w", err)
	}
	sort.Strings(feats)
	return feats, nil
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
