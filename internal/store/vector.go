package store

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
)

// Embeddings live in two on-disk representations: a native pgvector column
// when the extension is installed, or a JSON float array in a text column
// (SQLite always, Postgres before the extension migration). Both render as
// "[0.1,0.2,...]" text, so a single decoder covers every read path.

// encodeVectorJSON serializes an embedding for the text representation.
func encodeVectorJSON(vec []float32) (string, error) {
	raw, err := json.Marshal(vec)
	if err != nil {
		return "", eris.Wrap(err, "store: encode embedding")
	}
	return string(raw), nil
}

// decodeVector normalizes a stored embedding back to floats. Blank values,
// empty arrays and JSON null all decode to nil, matching the "no embedding
// yet" state regardless of which writer produced the row.
func decodeVector(src string) ([]float32, error) {
	src = strings.TrimSpace(src)
	if src == "" || src == "[]" || src == "null" {
		return nil, nil
	}

	var vec []float32
	if err := json.Unmarshal([]byte(src), &vec); err != nil {
		return nil, eris.Wrap(err, "store: decode embedding")
	}
	if len(vec) == 0 {
		return nil, nil
	}
	return vec, nil
}
