// Package ingest implementa el job periódico que baja el documento de status
// upstream y alimenta el pipeline de detección de cambios.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/dropDatabas3/statuswatch/internal/engine"
	"github.com/dropDatabas3/statuswatch/internal/feature"
	"github.com/dropDatabas3/statuswatch/internal/metrics"
	"github.com/dropDatabas3/statuswatch/internal/observability/logger"
)

// upstreamState memoiza la última respuesta vista de una URL para saltear
// pasadas sin cambios sin tocar el store.
type upstreamState struct {
	ETag     string
	BodyHash string
}

// Config configura el poller.
type Config struct {
	// URL del documento de status (JSON: lista de records).
	URL string
	// Interval entre pasadas en Run.
	Interval time.Duration
	// Timeout del fetch upstream.
	Timeout time.Duration
}

// Poller baja snapshots y corre clasificar → persistir → notificar.
type Poller struct {
	cfg         Config
	client      *http.Client
	engine      *engine.Engine
	coordinator *engine.Coordinator
	memo        *gocache.Cache
	log         *zap.Logger
}

// New crea un Poller.
func New(cfg Config, eng *engine.Engine, coord *engine.Coordinator) *Poller {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Poller{
		cfg:         cfg,
		client:      &http.Client{Timeout: timeout},
		engine:      eng,
		coordinator: coord,
		memo:        gocache.New(24*time.Hour, time.Hour),
		log:         logger.Named("ingest"),
	}
}

// Run corre pasadas cada Interval hasta que el contexto se cancele. Una
// pasada fallida se loguea y se reintenta recién en el próximo tick (el core
// no reintenta: el batch completo es la unidad de reintento).
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	if err := p.RunOnce(ctx); err != nil {
		p.log.Error("ingest pass failed", logger.Err(err))
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := p.RunOnce(ctx); err != nil {
				p.log.Error("ingest pass failed", logger.Err(err))
			}
		}
	}
}

// RunOnce ejecuta una pasada completa. Si el upstream responde 304 o el body
// no cambió desde la última pasada, no toca el store.
func (p *Poller) RunOnce(ctx context.Context) error {
	recs, changed, err := p.fetch(ctx)
	if err != nil {
		metrics.IncIngest("error")
		return err
	}
	if !changed {
		p.log.Debug("upstream unchanged, skipping pass")
		metrics.IncIngest("unchanged")
		return nil
	}

	recs, err = p.engine.CheckForNewData(ctx, recs)
	if err != nil {
		metrics.IncIngest("error")
		return err
	}
	recs, err = p.engine.SaveData(ctx, recs)
	if err != nil {
		metrics.IncIngest("error")
		return err
	}
	if err := p.coordinator.NotifyChanges(ctx, recs); err != nil {
		metrics.IncIngest("error")
		return err
	}

	metrics.IncIngest("ok")
	p.log.Info("ingest pass complete", logger.Count(len(recs)))
	return nil
}

// fetch baja el documento upstream. changed=false cuando el ETag o el hash
// del body coinciden con la última pasada.
func (p *Poller) fetch(ctx context.Context) (recs []feature.Record, changed bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.URL, nil)
	if err != nil {
		return nil, false, err
	}

	var prev upstreamState
	if v, ok := p.memo.Get(p.cfg.URL); ok {
		prev = v.(upstreamState)
		if prev.ETag != "" {
			req.Header.Set("If-None-Match", prev.ETag)
		}
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("ingest: fetch %s: %w", p.cfg.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		return nil, false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("ingest: upstream returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, err
	}

	sum := sha256.Sum256(body)
	hash := hex.EncodeToString(sum[:])
	if prev.BodyHash == hash {
		return nil, false, nil
	}
	p.memo.Set(p.cfg.URL, upstreamState{ETag: resp.Header.Get("ETag"), BodyHash: hash}, gocache.DefaultExpiration)

	if err := json.Unmarshal(body, &recs); err != nil {
		return nil, false, fmt.Errorf("ingest: decode upstream document: %w", err)
	}
	return recs, true, nil
}
