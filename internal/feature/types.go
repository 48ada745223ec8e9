// Package feature define los tipos de dominio compartidos entre paquetes:
// el registro de una feature, el resultado de un diff y las entradas del changelog.
package feature

import "encoding/json"

// Campos reservados de un Record. Son calculados por el engine; el valor que
// traiga el caller se descarta.
const (
	FieldSlug        = "slug"
	FieldUpdated     = "updated"
	FieldJustStarted = "justStarted"
)

// Record es el snapshot de una feature: un mapa de campos arbitrarios con un
// `slug` obligatorio que la identifica. Los campos reservados `updated` y
// `justStarted` los escribe el ChangeDetectionEngine, nunca el caller.
type Record map[string]any

// Slug retorna el identificador de la feature ("" si falta o no es string).
func (r Record) Slug() string {
	s, _ := r[FieldSlug].(string)
	return s
}

// JustStarted retorna true si el engine clasificó la feature como nueva.
func (r Record) JustStarted() bool {
	b, _ := r[FieldJustStarted].(bool)
	return b
}

// Updated retorna el mapa de cambios escrito por el engine (nil si no hay).
func (r Record) Updated() map[string]FieldChange {
	m, _ := r[FieldUpdated].(map[string]FieldChange)
	return m
}

// HasChanges retorna true si el engine detectó al menos un campo cambiado.
func (r Record) HasChanges() bool {
	return len(r.Updated()) > 0
}

// ApplyDiff escribe el resultado de un diff en los campos reservados.
func (r Record) ApplyDiff(d DiffResult) {
	r[FieldJustStarted] = d.JustStarted
	if d.Updated == nil {
		d.Updated = map[string]FieldChange{}
	}
	r[FieldUpdated] = d.Updated
}

// Clean retorna una copia del record sin los campos reservados calculados.
// Es la forma en que un record se persiste en el snapshot de estado.
func (r Record) Clean() Record {
	out := make(Record, len(r))
	for k, v := range r {
		if k == FieldUpdated || k == FieldJustStarted {
			continue
		}
		out[k] = v
	}
	return out
}

// FieldChange describe el cambio de un campo entre dos snapshots.
// From es nil cuando el campo no existía antes.
type FieldChange struct {
	From any `json:"from"`
	To   any `json:"to"`
}

// DiffResult es la clasificación de un record contra el último snapshot
// persistido. "Nueva" y "cambiada" son categorías mutuamente excluyentes.
type DiffResult struct {
	JustStarted bool
	Updated     map[string]FieldChange
}

// ChangelogEntry es el registro inmutable de todo lo que arrancó o cambió en
// un batch. Una vez escrita, nunca se muta.
type ChangelogEntry struct {
	Started []Record          `json:"started"`
	Updated map[string]Record `json:"updated"`
}

// Empty retorna true si la entrada no tiene nada que registrar.
func (e ChangelogEntry) Empty() bool {
	return len(e.Started) == 0 && len(e.Updated) == 0
}

// jsonEqual compara dos valores por su forma JSON canónica. Los records llegan
// de decodificar JSON (del ingest o del snapshot en el store), así que la
// representación serializada es la identidad que importa, no el tipo Go.
func jsonEqual(a, b any) bool {
	ab, errA := json.Marshal(a)
	bb, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return string(ab) == string(bb)
}

// ValueEqual compara dos valores de campo como los compara el diff.
func ValueEqual(a, b any) bool { return jsonEqual(a, b) }
