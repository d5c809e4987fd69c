package worker

import (
	"sigil/internal/c2patool"
)

// Instructions are the per-job processing options, resolved once at
// invocation start so downstream code never consults raw instruction maps.
type Instructions struct {
	UseLocalSigner    bool
	AddSourceManifest bool
	SignParams        c2patool.SignParams
}

// DefaultInstructions returns the resolved defaults: local signing on,
// manifest propagation off.
func DefaultInstructions() Instructions {
	return Instructions{UseLocalSigner: true}
}

// ResolveInstructions converts a raw instruction bag into Instructions.
// useLocalSigner stays true unless explicitly false; addSourceManifest must
// be explicitly true. Unknown keys and mistyped values fall back to the
// defaults.
func ResolveInstructions(raw map[string]any) Instructions {
	instructions := DefaultInstructions()
	if raw == nil {
		return instructions
	}

	if value, ok := raw["useLocalSigner"].(bool); ok {
		instructions.UseLocalSigner = value
	}
	if value, ok := raw["addSourceManifest"].(bool); ok && value {
		instructions.AddSourceManifest = true
	}

	params, ok := raw["c2paSignParams"].(map[string]any)
	if !ok {
		return instructions
	}
	sign := &instructions.SignParams
	sign.ClientSecret, _ = params["clientSecret"].(string)
	sign.AccessCode, _ = params["accessCode"].(string)
	sign.Tier, _ = params["tier"].(string)
	sign.UseInternalTooling, _ = params["useInternalTooling"].(bool)
	sign.CleanUpTmpFiles, _ = params["cleanUpTmpFiles"].(bool)
	return instructions
}
