package feature

import "errors"

var (
	// ErrNoEndpoint indica que el caller no proveyó endpoint y el device no
	// tiene uno almacenado.
	ErrNoEndpoint = errors.New("no endpoint provided")

	// ErrNoFeatures indica que la lista de features vino vacía.
	ErrNoFeatures = errors.New("no features provided")

	// ErrNotRegistered indica que el device no tiene registro alguno.
	ErrNotRegistered = errors.New("device not registered")
)

// IsValidation verifica si el error es de validación (input insuficiente).
// Estos errores se devuelven al caller, nunca se reintentan.
func IsValidation(err error) bool {
	return errors.Is(err, ErrNoEndpoint) || errors.Is(err, ErrNoFeatures)
}

// IsNotFound verifica si el error es ErrNotRegistered.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotRegistered)
}
