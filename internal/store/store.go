// Package store provee la frontera con el key-value store.
//
// Soporta:
//   - Memory (in-process, para desarrollo/testing)
//   - Redis (producción)
//
// El store es la única fuente de verdad del servicio: no hay cache local de
// estado. Los errores de acceso al store se propagan al caller tal cual; este
// core no reintenta (el scheduler externo reintenta batches completos).
package store

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound indica que la key solicitada no existe.
var ErrNotFound = errors.New("key not found")

// IsNotFound verifica si el error es ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// KV define las operaciones que el core persiste con.
type KV interface {
	// Get obtiene un string. Retorna ErrNotFound si no existe.
	Get(ctx context.Context, key string) (string, error)

	// Set guarda un string (sin expiración).
	Set(ctx context.Context, key, value string) error

	// GetDel obtiene y elimina un string en una sola operación atómica.
	// Retorna ErrNotFound si no existe.
	GetDel(ctx context.Context, key string) (string, error)

	// HSet guarda campos en un hash (upsert por campo).
	HSet(ctx context.Context, key string, fields map[string]string) error

	// HGet obtiene un campo de un hash. Retorna ErrNotFound si no existe.
	HGet(ctx context.Context, key, field string) (string, error)

	// HGetAll obtiene todos los campos de un hash. Mapa vacío si no existe.
	HGetAll(ctx context.Context, key string) (map[string]string, error)

	// SAdd agrega miembros a un set (idempotente).
	SAdd(ctx context.Context, key string, members ...string) error

	// SRem quita miembros de un set (idempotente).
	SRem(ctx context.Context, key string, members ...string) error

	// SMembers retorna los miembros de un set. Slice vacío si no existe.
	SMembers(ctx context.Context, key string) ([]string, error)

	// Del elimina keys completas.
	Del(ctx context.Context, keys ...string) error

	// Ping verifica la conexión.
	Ping(ctx context.Context) error

	// Close cierra la conexión.
	Close() error
}

// Config selecciona e inicializa el backend.
type Config struct {
	// Kind: "redis" | "memory". Default: "redis".
	Kind string

	Redis RedisConfig
}

// New crea el KV según la configuración.
func New(cfg Config) (KV, error) {
	switch cfg.Kind {
	case "", "redis":
		return NewRedis(cfg.Redis)
	case "memory":
		return NewMemory(cfg.Redis.Prefix), nil
	default:
		return nil, fmt.Errorf("store: unknown kind %q", cfg.Kind)
	}
}
