// Package status mantiene el último snapshot conocido de cada feature y
// produce los diffs contra registros entrantes.
package status

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dropDatabas3/statuswatch/internal/feature"
	"github.com/dropDatabas3/statuswatch/internal/store"
)

// Store es el repositorio del snapshot de estado. No cachea nada en memoria:
// cada operación adquiere el snapshot desde el KV (única frontera de
// consistencia entre instancias).
type Store struct {
	kv store.KV
}

// New crea un Store sobre el KV dado.
func New(kv store.KV) *Store {
	return &Store{kv: kv}
}

// Snapshot retorna el snapshot persistido completo (slug → record).
// Mapa vacío si nunca se guardó nada.
func (s *Store) Snapshot(ctx context.Context) (map[string]feature.Record, error) {
	raw, err := s.kv.Get(ctx, store.KeyStatus)
	if store.IsNotFound(err) {
		return map[string]feature.Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("status: load snapshot: %w", err)
	}

	var snap map[string]feature.Record
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return nil, fmt.Errorf("status: decode snapshot: %w", err)
	}
	if snap == nil {
		snap = map[string]feature.Record{}
	}
	return snap, nil
}

// Diff clasifica un record contra el último snapshot persistido. Nunca
// persiste: es seguro llamarlo repetidamente.
//
// Slug ausente en el snapshot ⇒ JustStarted=true, Updated vacío.
// Slug presente ⇒ se compara cada campo no reservado del record entrante;
// un campo ausente antes y presente ahora cuenta como cambio con From=nil.
func (s *Store) Diff(ctx context.Context, rec feature.Record) (feature.DiffResult, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return feature.DiffResult{}, err
	}

	prev, ok := snap[rec.Slug()]
	if !ok {
		return feature.DiffResult{JustStarted: true, Updated: map[string]feature.FieldChange{}}, nil
	}

	updated := map[string]feature.FieldChange{}
	for k, v := range rec {
		if k == feature.FieldSlug || k == feature.FieldUpdated || k == feature.FieldJustStarted {
			continue
		}
		pv, had := prev[k]
		if !had {
			updated[k] = feature.FieldChange{From: nil, To: v}
			continue
		}
		if !feature.ValueEqual(pv, v) {
			updated[k] = feature.FieldChange{From: pv, To: v}
		}
	}

	return feature.DiffResult{JustStarted: false, Updated: updated}, nil
}

// Commit mergea cada record (sin campos reservados) en el snapshot bajo su
// slug y escribe el snapshot de vuelta como una unidad. Es un upsert por
// slug: las features ausentes del batch actual no se pierden.
func (s *Store) Commit(ctx context.Context, recs []feature.Record) error {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return err
	}

	for _, rec := range recs {
		slug := rec.Slug()
		if slug == "" {
			continue
		}
		snap[slug] = rec.Clean()
	}

	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("status: encode snapshot: %w", err)
	}
	if err := s.kv.Set(ctx, store.KeyStatus, string(raw)); err != nil {
		return fmt.Errorf("status: save snapshot: %w", err)
	}
	return nil
}
