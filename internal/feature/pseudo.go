package feature

// Pseudo-features: slugs reservados que funcionan como buckets de
// suscripción, no como features trackeadas.
const (
	// PseudoAll recibe toda notificación, sin importar la feature.
	// Registrarse a "all" descarta cualquier otra suscripción del device.
	PseudoAll = "all"

	// PseudoNew recibe solo notificaciones de features recién trackeadas.
	PseudoNew = "new"
)
