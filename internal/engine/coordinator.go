package engine

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/dropDatabas3/statuswatch/internal/feature"
	"github.com/dropDatabas3/statuswatch/internal/observability/logger"
)

// Notifier es el contrato mínimo que el coordinator necesita del dispatcher.
type Notifier interface {
	SendNotifications(ctx context.Context, slug string, payload []byte, isNew bool) error
}

// Coordinator dispara una notificación por cada feature que arrancó o cambió
// en un batch. Si ningún record califica, resuelve sin llamadas salientes.
type Coordinator struct {
	notifier Notifier
	log      *zap.Logger
}

// NewCoordinator crea un Coordinator.
func NewCoordinator(n Notifier) *Coordinator {
	return &Coordinator{notifier: n, log: logger.Named("coordinator")}
}

// NotifyChanges recibe la salida de SaveData y dispara el dispatch por
// feature. El payload de cada notificación es el record completo (con sus
// campos updated/justStarted ya calculados).
func (c *Coordinator) NotifyChanges(ctx context.Context, recs []feature.Record) error {
	for _, rec := range recs {
		isNew := rec.JustStarted()
		if !isNew && !rec.HasChanges() {
			continue
		}

		payload, err := json.Marshal(rec)
		if err != nil {
			c.log.Warn("record not serializable, skipping notification",
				logger.Feature(rec.Slug()), logger.Err(err))
			continue
		}

		if err := c.notifier.SendNotifications(ctx, rec.Slug(), payload, isNew); err != nil {
			return err
		}
	}
	return nil
}
