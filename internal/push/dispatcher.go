// Package push resuelve los devices destino de una notificación y entrega el
// mensaje por el protocolo que corresponda según la forma del endpoint:
// store-and-fetch para los endpoints legacy (el payload se deja pendiente en
// el store y el device lo busca aparte) o payload-bearing (cuerpo cifrado)
// para endpoints Web Push estándar.
package push

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dropDatabas3/statuswatch/internal/feature"
	"github.com/dropDatabas3/statuswatch/internal/metrics"
	"github.com/dropDatabas3/statuswatch/internal/observability/logger"
	"github.com/dropDatabas3/statuswatch/internal/registry"
	"github.com/dropDatabas3/statuswatch/internal/store"
)

// Endpoints del relay legacy: no aceptan payload en el cuerpo, el device lo
// busca por separado vía GetPayload.
var defaultLegacyHosts = []string{
	"android.googleapis.com",
	"gcm-http.googleapis.com",
}

const maxConcurrentDeliveries = 16

// Config configura el Dispatcher.
type Config struct {
	// VAPID firma los pushes salientes. Opcional.
	VAPID *VAPID

	// TTL en segundos para el header TTL del push. Default: 86400.
	TTL int

	// Timeout por request saliente. Default: 10s.
	Timeout time.Duration

	// LegacyHosts sobreescribe la lista de hosts store-and-fetch (tests).
	LegacyHosts []string
}

// Dispatcher entrega notificaciones push. Cada entrega por device es una
// unidad de trabajo independiente: la falla de una no aborta las demás.
type Dispatcher struct {
	kv          store.KV
	client      *http.Client
	vapid       *VAPID
	ttl         int
	legacyHosts []string
	log         *zap.Logger
}

// New crea un Dispatcher sobre el KV dado.
func New(kv store.KV, cfg Config) *Dispatcher {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	ttl := cfg.TTL
	if ttl == 0 {
		ttl = 86400
	}
	hosts := cfg.LegacyHosts
	if hosts == nil {
		hosts = defaultLegacyHosts
	}
	return &Dispatcher{
		kv:          kv,
		client:      &http.Client{Timeout: timeout},
		vapid:       cfg.VAPID,
		ttl:         ttl,
		legacyHosts: hosts,
		log:         logger.Named("push"),
	}
}

// ResolveTargets retorna el set deduplicado de device ids a notificar para
// una feature: los suscritos al slug, los suscritos a "all" y, solo si
// includeNew, los suscritos a "new".
func (d *Dispatcher) ResolveTargets(ctx context.Context, slug string, includeNew bool) ([]string, error) {
	buckets := []string{slug, feature.PseudoAll}
	if includeNew {
		buckets = append(buckets, feature.PseudoNew)
	}

	seen := map[string]struct{}{}
	var targets []string
	for _, b := range buckets {
		ids, err := d.kv.SMembers(ctx, store.FeatureDevicesKey(b))
		if err != nil {
			return nil, fmt.Errorf("push: resolve targets: %w", err)
		}
		for _, id := range ids {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			targets = append(targets, id)
		}
	}
	return targets, nil
}

// SendNotifications resuelve los targets y entrega un push a cada uno en
// paralelo. Las fallas de entrega (transporte o no-2xx) se loguean y cuentan
// en métricas pero nunca fallan el batch; solo un error del store es fatal.
func (d *Dispatcher) SendNotifications(ctx context.Context, slug string, payload []byte, isNew bool) error {
	targets, err := d.ResolveTargets(ctx, slug, isNew)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		return nil
	}

	d.log.Info("dispatching notification",
		logger.Feature(slug), logger.Count(len(targets)), zap.Bool("is_new", isNew))

	var g errgroup.Group
	g.SetLimit(maxConcurrentDeliveries)
	for _, id := range targets {
		id := id
		g.Go(func() error {
			// la falla de un device no cancela a los demás
			d.deliver(ctx, id, payload)
			return nil
		})
	}
	return g.Wait()
}

// deliver entrega a un device. Los errores terminan acá: se loguean y se
// cuentan, nada más.
func (d *Dispatcher) deliver(ctx context.Context, deviceID string, payload []byte) {
	conn, err := d.kv.HGetAll(ctx, store.DeviceKey(deviceID))
	if err != nil {
		d.log.Error("load device failed", logger.DeviceID(deviceID), logger.Err(err))
		metrics.IncDelivery("unknown", "error")
		return
	}

	endpoint := conn[registry.FieldEndpoint]
	if endpoint == "" {
		// membership sin hash de conexión: skip suave
		d.log.Debug("device has no endpoint, skipping", logger.DeviceID(deviceID))
		metrics.IncDelivery("unknown", "skipped")
		return
	}

	if d.isLegacy(endpoint) {
		d.deliverLegacy(ctx, deviceID, endpoint, payload)
		return
	}
	d.deliverWebPush(ctx, deviceID, endpoint, conn[registry.FieldKey], conn[registry.FieldAuth], payload)
}

// deliverLegacy deja el payload pendiente en el store y manda un POST vacío;
// el device lo busca después vía GetPayload.
func (d *Dispatcher) deliverLegacy(ctx context.Context, deviceID, endpoint string, payload []byte) {
	if len(payload) > 0 {
		if err := d.kv.Set(ctx, store.DevicePayloadKey(deviceID), string(payload)); err != nil {
			d.log.Error("store pending payload failed", logger.DeviceID(deviceID), logger.Err(err))
			metrics.IncDelivery("legacy", "error")
			return
		}
	}
	if err := d.post(ctx, endpoint, nil, nil); err != nil {
		d.log.Warn("legacy delivery failed",
			logger.DeviceID(deviceID), logger.Endpoint(endpoint), logger.Err(err))
		metrics.IncDelivery("legacy", "error")
		return
	}
	metrics.IncDelivery("legacy", "ok")
}

// deliverWebPush manda el payload cifrado cuando el device tiene key y auth;
// si no, un POST vacío como señal de wake best-effort.
func (d *Dispatcher) deliverWebPush(ctx context.Context, deviceID, endpoint, key, auth string, payload []byte) {
	headers := map[string]string{"TTL": strconv.Itoa(d.ttl)}

	var body []byte
	if len(payload) > 0 && key != "" && auth != "" {
		enc, err := encrypt(payload, key, auth)
		if err != nil {
			d.log.Error("payload encryption failed", logger.DeviceID(deviceID), logger.Err(err))
			metrics.IncDelivery("webpush", "error")
			return
		}
		body = enc.Ciphertext
		headers["Content-Encoding"] = "aesgcm"
		headers["Encryption"] = "salt=" + base64.RawURLEncoding.EncodeToString(enc.Salt)
		headers["Crypto-Key"] = "dh=" + base64.RawURLEncoding.EncodeToString(enc.SenderKey)
	}

	if d.vapid != nil {
		authz, err := d.vapid.Authorization(endpoint)
		if err != nil {
			d.log.Error("vapid signing failed", logger.Endpoint(endpoint), logger.Err(err))
		} else {
			headers["Authorization"] = authz
			if ck, ok := headers["Crypto-Key"]; ok {
				headers["Crypto-Key"] = ck + ";p256ecdsa=" + d.vapid.PublicKey()
			} else {
				headers["Crypto-Key"] = "p256ecdsa=" + d.vapid.PublicKey()
			}
		}
	}

	if err := d.post(ctx, endpoint, body, headers); err != nil {
		d.log.Warn("webpush delivery failed",
			logger.DeviceID(deviceID), logger.Endpoint(endpoint), logger.Err(err))
		metrics.IncDelivery("webpush", "error")
		return
	}
	metrics.IncDelivery("webpush", "ok")
}

// GetPayload lee y elimina el payload pendiente de un device en una sola
// operación atómica: un payload se entrega a lo sumo a un fetch.
// ok=false cuando no había nada pendiente.
func (d *Dispatcher) GetPayload(ctx context.Context, deviceID string) (payload string, ok bool, err error) {
	v, err := d.kv.GetDel(ctx, store.DevicePayloadKey(deviceID))
	if store.IsNotFound(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("push: get payload: %w", err)
	}
	return v, true, nil
}

// Confirm manda el POST de confirmación de registro (body vacío) a un
// endpoint. Lo usa el registry al registrar un device con endpoint nuevo.
func (d *Dispatcher) Confirm(ctx context.Context, endpoint string) error {
	headers := map[string]string{"TTL": strconv.Itoa(d.ttl)}
	if d.vapid != nil && !d.isLegacy(endpoint) {
		if authz, err := d.vapid.Authorization(endpoint); err == nil {
			headers["Authorization"] = authz
			headers["Crypto-Key"] = "p256ecdsa=" + d.vapid.PublicKey()
		}
	}
	if err := d.post(ctx, endpoint, nil, headers); err != nil {
		metrics.IncDelivery("confirm", "error")
		return err
	}
	metrics.IncDelivery("confirm", "ok")
	return nil
}

// isLegacy clasifica el endpoint por host contra la lista de relays
// store-and-fetch conocidos.
func (d *Dispatcher) isLegacy(endpoint string) bool {
	u, err := url.Parse(endpoint)
	if err != nil {
		return false
	}
	host := u.Hostname()
	for _, h := range d.legacyHosts {
		if strings.EqualFold(host, h) {
			return true
		}
	}
	return false
}

func (d *Dispatcher) post(ctx context.Context, endpoint string, body []byte, headers map[string]string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	if len(body) > 0 {
		req.Header.Set("Content-Type", "application/octet-stream")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("push: endpoint returned %d", resp.StatusCode)
	}
	return nil
}
