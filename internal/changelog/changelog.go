// Package changelog persiste el registro inmutable de cambios, un entry por
// batch, bajo keys derivadas del reloj.
package changelog

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/dropDatabas3/statuswatch/internal/feature"
	"github.com/dropDatabas3/statuswatch/internal/store"
)

// Store escribe y lee entradas del changelog. Las entradas nunca se mutan ni
// se mergean entre sí, aunque sus keys difieran por milisegundos.
type Store struct {
	kv store.KV

	// now es inyectable para tests.
	now func() time.Time
}

// New crea un Store sobre el KV dado.
func New(kv store.KV) *Store {
	return &Store{kv: kv, now: time.Now}
}

// NewWithClock crea un Store con un reloj inyectado (tests).
func NewWithClock(kv store.KV, now func() time.Time) *Store {
	return &Store{kv: kv, now: now}
}

// Append escribe una entrada bajo una key derivada del timestamp actual.
// Es un no-op si la entrada está vacía. Si la key ya existe (dos appends en
// el mismo tick de reloj) se agrega un sufijo monotónico "-1", "-2", … en vez
// de pisar la entrada anterior.
func (s *Store) Append(ctx context.Context, entry feature.ChangelogEntry) error {
	if entry.Empty() {
		return nil
	}

	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("changelog: encode entry: %w", err)
	}

	base := s.now().UTC().Format(time.RFC3339Nano)
	key := base
	for i := 1; ; i++ {
		_, err := s.kv.HGet(ctx, store.KeyChangelog, key)
		if store.IsNotFound(err) {
			break
		}
		if err != nil {
			return fmt.Errorf("changelog: check key: %w", err)
		}
		key = base + "-" + strconv.Itoa(i)
	}

	if err := s.kv.HSet(ctx, store.KeyChangelog, map[string]string{key: string(raw)}); err != nil {
		return fmt.Errorf("changelog: append: %w", err)
	}
	return nil
}

// ReadAll retorna todas las entradas almacenadas, key → entry. El orden por
// key (timestamp) lo resuelve el caller si lo necesita.
func (s *Store) ReadAll(ctx context.Context) (map[string]feature.ChangelogEntry, error) {
	raw, err := s.kv.HGetAll(ctx, store.KeyChangelog)
	if err != nil {
		return nil, fmt.Errorf("changelog: read: %w", err)
	}

	out := make(map[string]feature.ChangelogEntry, len(raw))
	for k, v := range raw {
		var e feature.ChangelogEntry
		if err := json.Unmarshal([]byte(v), &e); err != nil {
			return nil, fmt.Errorf("changelog: decode entry %q: %w", k, err)
		}
		out[k] = e
	}
	return out, nil
}
