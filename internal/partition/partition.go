// Package partition splits each route's props into values kept inline and
// values replaced by a reference to a shared artifact.
package partition

import (
	"encoding/json"
	"fmt"

	"github.com/3-lines-studio/prerender/internal/core"
)

// Lookuper resolves a materialized value to its artifact hash.
type Lookuper interface {
	Lookup(v any) (string, bool)
}

// Route fills LocalProps and SharedPropsHashes from AllProps. It must run
// after every value of every route has been recorded and the shared ones
// materialized.
func Route(route *core.Route, store Lookuper) {
	route.LocalProps = make(map[string]any, len(route.AllProps))
	route.SharedPropsHashes = make(map[string]string)

	for key, value := range route.AllProps {
		if hash, ok := store.Lookup(value); ok {
			route.SharedPropsHashes[key] = hash
			continue
		}
		route.LocalProps[key] = value
	}
}

// Routes partitions every route in place.
func Routes(routes []core.Route, store Lookuper) {
	for i := range routes {
		Route(&routes[i], store)
	}
}

// Reconstruct rebuilds a route's full props from its local props and the
// artifacts its hashes refer to. Artifact values are decoded JSON.
func Reconstruct(route core.Route, artifacts map[string]any) (map[string]any, error) {
	props := make(map[string]any, len(route.LocalProps)+len(route.SharedPropsHashes))
	for key, value := range route.LocalProps {
		props[key] = value
	}
	for key, hash := range route.SharedPropsHashes {
		value, ok := artifacts[hash]
		if !ok {
			return nil, fmt.Errorf("route %s: prop %q refers to unknown artifact %s", route.Path, key, hash)
		}
		props[key] = value
	}
	return props, nil
}

// DecodeArtifacts turns written artifacts back into values keyed by hash.
func DecodeArtifacts(artifacts []core.Artifact) (map[string]any, error) {
	decoded := make(map[string]any, len(artifacts))
	for _, a := range artifacts {
		var v any
		if err := json.Unmarshal(a.JSON, &v); err != nil {
			return nil, fmt.Errorf("%w: artifact %s: %w", core.ErrSerialize, a.Hash, err)
		}
		decoded[a.Hash] = v
	}
	return decoded, nil
}
