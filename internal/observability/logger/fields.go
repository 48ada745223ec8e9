package logger

import (
	"time"

	"go.uber.org/zap"
)

// Campos estándar para que los logs queden consistentes entre paquetes.

// RequestID crea un campo para el ID del request.
func RequestID(v string) zap.Field { return zap.String("request_id", v) }

// Method crea un campo para el método HTTP.
func Method(v string) zap.Field { return zap.String("method", v) }

// Path crea un campo para el path del request.
func Path(v string) zap.Field { return zap.String("path", v) }

// Status crea un campo para el status code HTTP.
func Status(v int) zap.Field { return zap.Int("status", v) }

// Duration crea un campo para la duración del request.
func Duration(v time.Duration) zap.Field { return zap.Duration("duration", v) }

// DeviceID crea un campo para el ID de un device suscripto.
func DeviceID(v string) zap.Field { return zap.String("device_id", v) }

// Feature crea un campo para el slug de una feature.
func Feature(v string) zap.Field { return zap.String("feature", v) }

// Endpoint crea un campo para el endpoint push de un device.
func Endpoint(v string) zap.Field { return zap.String("endpoint", v) }

// Protocol crea un campo para el protocolo de entrega ("webpush" | "legacy").
func Protocol(v string) zap.Field { return zap.String("protocol", v) }

// Component crea un campo para el componente/módulo.
func Component(v string) zap.Field { return zap.String("component", v) }

// Op crea un campo para la operación actual.
func Op(v string) zap.Field { return zap.String("op", v) }

// Count crea un campo para un conteo.
func Count(v int) zap.Field { return zap.Int("count", v) }

// Err crea un campo para un error.
func Err(err error) zap.Field { return zap.Error(err) }
