// Package logger provee un singleton de zap para todo el servicio.
//
// Uso típico:
//
//	logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level})
//	defer logger.Sync()
//
//	log := logger.Named("push")
//	log.Info("delivery ok", logger.DeviceID(id), logger.Protocol("webpush"))
//
// En handlers, el middleware inyecta un logger scoped con request_id en el
// contexto; se recupera con logger.From(ctx).
package logger
