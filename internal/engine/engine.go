// Package engine orquesta la detección de cambios: diff + persistencia +
// changelog para cada batch de features entrante, y la coordinación del
// fan-out de notificaciones.
package engine

import (
	"context"

	"go.uber.org/zap"

	"github.com/dropDatabas3/statuswatch/internal/changelog"
	"github.com/dropDatabas3/statuswatch/internal/feature"
	"github.com/dropDatabas3/statuswatch/internal/metrics"
	"github.com/dropDatabas3/statuswatch/internal/observability/logger"
	"github.com/dropDatabas3/statuswatch/internal/status"
)

// Engine clasifica y persiste batches de records.
type Engine struct {
	status    *status.Store
	changelog *changelog.Store
	log       *zap.Logger
}

// New crea un Engine.
func New(st *status.Store, cl *changelog.Store) *Engine {
	return &Engine{
		status:    st,
		changelog: cl,
		log:       logger.Named("engine"),
	}
}

// CheckForNewData corre el diff de cada record contra el snapshot persistido
// y escribe el resultado en los campos reservados del record. Es una pasada
// de clasificación pura: no persiste nada y es idempotente.
func (e *Engine) CheckForNewData(ctx context.Context, recs []feature.Record) ([]feature.Record, error) {
	for _, rec := range recs {
		diff, err := e.status.Diff(ctx, rec)
		if err != nil {
			return nil, err
		}
		rec.ApplyDiff(diff)

		switch {
		case diff.JustStarted:
			metrics.IncTracked("started")
		case len(diff.Updated) > 0:
			metrics.IncTracked("updated")
		default:
			metrics.IncTracked("unchanged")
		}
	}
	return recs, nil
}

// SaveData persiste un batch ya clasificado (normalmente la salida de
// CheckForNewData) y escribe a lo sumo una entrada de changelog para todo el
// batch. Retorna los mismos records para encadenar con el dispatch.
//
// Un record con justStarted=true nunca cuenta como "updated": nueva y
// cambiada son categorías mutuamente excluyentes.
func (e *Engine) SaveData(ctx context.Context, recs []feature.Record) ([]feature.Record, error) {
	if err := e.status.Commit(ctx, recs); err != nil {
		return nil, err
	}

	entry := feature.ChangelogEntry{Updated: map[string]feature.Record{}}
	for _, rec := range recs {
		switch {
		case rec.JustStarted():
			entry.Started = append(entry.Started, rec)
		case rec.HasChanges():
			entry.Updated[rec.Slug()] = rec
		}
	}

	if entry.Empty() {
		return recs, nil
	}
	if err := e.changelog.Append(ctx, entry); err != nil {
		return nil, err
	}
	metrics.IncChangelog()

	e.log.Info("changelog entry appended",
		logger.Count(len(entry.Started)+len(entry.Updated)),
		zap.Int("started", len(entry.Started)),
		zap.Int("updated", len(entry.Updated)),
	)
	return recs, nil
}
