package postgres

import "github.com/google/uuid"

// isUUID evita mandar a Postgres ids que fallarían el cast a uuid: un id mal
// formado es simplemente un recurso inexistente.
func isUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// uuids filtra los ids válidos.
func uuids(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if isUUID(id) {
			out = append(out, id)
		}
	}
	return out
}
