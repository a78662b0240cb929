package core

import (
	"bytes"
	"encoding/json"
)

// MarshalJSON is the one serialization used for artifacts, routeInfo.json and
// inlined route data. Map keys come out sorted, so equal values produce equal
// bytes. HTML escaping is off; EscapeScriptJSON handles the one sequence that
// matters when inlining.
func MarshalJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
