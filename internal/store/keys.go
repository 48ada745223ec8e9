package store

// Layout de keys que persiste el core. Centralizado acá para que los tests y
// los repositorios no dupliquen strings.

const (
	// KeyStatus guarda el snapshot completo slug → record (JSON).
	KeyStatus = "status"

	// KeyChangelog es el hash timestamp → ChangelogEntry (JSON).
	KeyChangelog = "changelog"
)

// DeviceKey retorna la key del hash de conexión de un device
// ({endpoint, key, auth}).
func DeviceKey(deviceID string) string { return "device:" + deviceID }

// DeviceFeaturesKey retorna la key del set de slugs a los que está suscrito
// un device.
func DeviceFeaturesKey(deviceID string) string { return "device:" + deviceID + ":features" }

// DevicePayloadKey retorna la key del payload pendiente de un device legacy.
func DevicePayloadKey(deviceID string) string { return "device:" + deviceID + ":payload" }

// FeatureDevicesKey retorna la key del set de device ids suscritos a un slug
// (incluye los pseudo-features "all" y "new").
func FeatureDevicesKey(slug string) string { return "feature:" + slug + ":devices" }
