package worker

import "testing"

func TestResolveInstructionsDefaults(t *testing.T) {
	instructions := ResolveInstructions(nil)
	if !instructions.UseLocalSigner {
		t.Fatal("expected local signer by default")
	}
	if instructions.AddSourceManifest {
		t.Fatal("expected propagation off by default")
	}

	instructions = ResolveInstructions(map[string]any{})
	if !instructions.UseLocalSigner {
		t.Fatal("expected local signer for empty instruction bag")
	}
}

func TestResolveInstructionsExplicitValues(t *testing.T) {
	instructions := ResolveInstructions(map[string]any{
		"useLocalSigner":    false,
		"addSourceManifest": true,
		"c2paSignParams": map[string]any{
			"clientSecret":       "secret",
			"accessCode":         "code",
			"tier":               "STAGE",
			"useInternalTooling": true,
			"cleanUpTmpFiles":    true,
		},
	})
	if instructions.UseLocalSigner {
		t.Fatal("expected remote signer when useLocalSigner is false")
	}
	if !instructions.AddSourceManifest {
		t.Fatal("expected propagation enabled")
	}
	sign := instructions.SignParams
	if sign.ClientSecret != "secret" || sign.AccessCode != "code" || sign.Tier != "STAGE" {
		t.Fatalf("expected credentials resolved, got %+v", sign)
	}
	if !sign.UseInternalTooling || !sign.CleanUpTmpFiles {
		t.Fatalf("expected boolean params set, got %+v", sign)
	}
}

func TestResolveInstructionsIgnoresMistypedValues(t *testing.T) {
	instructions := ResolveInstructions(map[string]any{
		"useLocalSigner":    "no",
		"addSourceManifest": 1,
		"c2paSignParams":    "not a map",
	})
	if !instructions.UseLocalSigner {
		t.Fatal("expected mistyped useLocalSigner to keep the default")
	}
	if instructions.AddSourceManifest {
		t.Fatal("expected mistyped addSourceManifest to keep the default")
	}
}
