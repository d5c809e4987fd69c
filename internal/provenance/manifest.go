package provenance

// Asset is an in-memory media asset awaiting signing.
type Asset struct {
	Data     []byte
	MimeType string
}

// Assertion is a single manifest assertion entry.
type Assertion struct {
	Label string         `json:"label"`
	Data  map[string]any `json:"data"`
}

// ManifestDefinition is the manifest embedded into a rendition when signing.
type ManifestDefinition struct {
	ClaimGenerator string      `json:"claim_generator"`
	Format         string      `json:"format"`
	Title          string      `json:"title"`
	Assertions     []Assertion `json:"assertions"`
}

// NewRenditionManifest builds the manifest definition for a freshly produced
// rendition: a c2pa.created action plus the rendition-origin assertion.
func NewRenditionManifest(generator, title, format string) ManifestDefinition {
	return ManifestDefinition{
		ClaimGenerator: generator,
		Format:         format,
		Title:          title,
		Assertions: []Assertion{
			{
				Label: "c2pa.actions",
				Data: map[string]any{
					"actions": []map[string]any{
						{"action": "c2pa.created"},
					},
				},
			},
			{
				Label: "com.sigil.rendition",
				Data: map[string]any{
					"title":     title,
					"generator": generator,
				},
			},
		},
	}
}

// Metadata is the parsed manifest store read from a source asset.
type Metadata struct {
	Raw map[string]any
}

// ActiveManifest extracts the currently valid manifest's content from the
// store. Returns nil when the store names no active manifest or the named
// entry is missing.
func (m *Metadata) ActiveManifest() map[string]any {
	if m == nil || m.Raw == nil {
		return nil
	}
	label, _ := m.Raw["active_manifest"].(string)
	if label == "" {
		return nil
	}
	manifests, _ := m.Raw["manifests"].(map[string]any)
	content, _ := manifests[label].(map[string]any)
	return content
}
