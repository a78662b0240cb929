package core

import (
	"encoding/json"
	"fmt"
)

// Route is a single page of the exported site. The export orchestrator owns
// it; workers receive copies over the wire codec. AllProps, LocalProps and
// SharedPropsHashes are filled in by the data passes and must not change once
// rendering starts.
//
// The prop maps never cross the wire codec. EncodeProps fixes their JSON form
// in the parent and workers embed those bytes unchanged, so a value reads the
// same in the page, in routeInfo.json and in the shared artifacts.
type Route struct {
	Path              string            `json:"path"`
	Component         string            `json:"component,omitempty"`
	TemplateID        int               `json:"templateID"`
	Is404             bool              `json:"is404,omitempty"`
	NoIndex           bool              `json:"noindex,omitempty"`
	LastModified      string            `json:"lastModified,omitempty"`
	Priority          float64           `json:"priority,omitempty"`
	AllProps          map[string]any    `json:"allProps,omitempty" cbor:"-"`
	LocalProps        map[string]any    `json:"localProps,omitempty" cbor:"-"`
	SharedPropsHashes map[string]string `json:"sharedPropsHashes,omitempty"`

	AllPropsJSON   json.RawMessage `json:"-" cbor:"allPropsJSON,omitempty"`
	LocalPropsJSON json.RawMessage `json:"-" cbor:"localPropsJSON,omitempty"`
}

// RouteInfo is the client-side rehydration document written next to each
// page as routeInfo.json. It deliberately carries local props only.
type RouteInfo struct {
	Path              string            `json:"path"`
	SharedPropsHashes map[string]string `json:"sharedPropsHashes"`
	TemplateID        int               `json:"templateID"`
	LocalProps        json.RawMessage   `json:"localProps"`
}

// EmbeddedRouteInfo is what gets inlined into the page for hydration.
type EmbeddedRouteInfo struct {
	RouteInfo
	AllProps json.RawMessage `json:"allProps"`
	SiteData json.RawMessage `json:"siteData"`
}

// EncodeProps serializes AllProps and LocalProps. A nil map encodes as {}.
func (r *Route) EncodeProps() error {
	all, err := encodeProps(r.AllProps)
	if err != nil {
		return fmt.Errorf("%w: props of %s: %w", ErrSerialize, r.Path, err)
	}
	local, err := encodeProps(r.LocalProps)
	if err != nil {
		return fmt.Errorf("%w: local props of %s: %w", ErrSerialize, r.Path, err)
	}
	r.AllPropsJSON = all
	r.LocalPropsJSON = local
	return nil
}

// DecodeProps rebuilds AllProps from its JSON form, giving the renderer the
// same data the client hydrates with. Routes without a JSON form are left
// alone.
func (r *Route) DecodeProps() error {
	if len(r.AllPropsJSON) == 0 {
		return nil
	}
	var props map[string]any
	if err := json.Unmarshal(r.AllPropsJSON, &props); err != nil {
		return fmt.Errorf("%w: props of %s: %w", ErrSerialize, r.Path, err)
	}
	r.AllProps = props
	return nil
}

func encodeProps(props map[string]any) (json.RawMessage, error) {
	if props == nil {
		props = map[string]any{}
	}
	return MarshalJSON(props)
}

func (r Route) Info() (RouteInfo, error) {
	local := r.LocalPropsJSON
	if len(local) == 0 {
		var err error
		if local, err = encodeProps(r.LocalProps); err != nil {
			return RouteInfo{}, fmt.Errorf("%w: local props of %s: %w", ErrSerialize, r.Path, err)
		}
	}

	info := RouteInfo{
		Path:              r.Path,
		SharedPropsHashes: r.SharedPropsHashes,
		TemplateID:        r.TemplateID,
		LocalProps:        local,
	}
	if info.SharedPropsHashes == nil {
		info.SharedPropsHashes = map[string]string{}
	}
	return info, nil
}

// Embedded builds the inline hydration data. siteData is already JSON; empty
// means null.
func (r Route) Embedded(siteData json.RawMessage) (EmbeddedRouteInfo, error) {
	info, err := r.Info()
	if err != nil {
		return EmbeddedRouteInfo{}, err
	}

	all := r.AllPropsJSON
	if len(all) == 0 {
		if all, err = encodeProps(r.AllProps); err != nil {
			return EmbeddedRouteInfo{}, fmt.Errorf("%w: props of %s: %w", ErrSerialize, r.Path, err)
		}
	}
	if len(siteData) == 0 {
		siteData = json.RawMessage("null")
	}

	return EmbeddedRouteInfo{
		RouteInfo: info,
		AllProps:  all,
		SiteData:  siteData,
	}, nil
}

// Artifact is one deduplicated shared value, stored at {hash}.json.
type Artifact struct {
	Hash string
	JSON []byte
}
