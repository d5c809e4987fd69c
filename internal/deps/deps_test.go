package deps

import (
	"testing"

	"sigil/internal/config"
)

func TestCheckBinaries(t *testing.T) {
	statuses := CheckBinaries([]Requirement{
		{Name: "shell", Command: "sh"},
		{Name: "missing", Command: "definitely-not-a-real-binary-xyz"},
		{Name: "unset", Command: "  "},
		{Name: "optional missing", Command: "also-not-real-xyz", Optional: true},
	})
	if len(statuses) != 4 {
		t.Fatalf("statuses = %d, want 4", len(statuses))
	}
	if !statuses[0].Available {
		t.Fatalf("expected sh to be available: %+v", statuses[0])
	}
	if statuses[1].Available || statuses[1].Detail == "" {
		t.Fatalf("expected missing binary with detail: %+v", statuses[1])
	}
	if statuses[2].Available || statuses[2].Detail != "command not configured" {
		t.Fatalf("expected unconfigured detail: %+v", statuses[2])
	}

	missing := MissingRequired(statuses)
	if len(missing) != 2 {
		t.Fatalf("missing = %v, want 2 required entries", missing)
	}
}

func TestRequirementsFromConfig(t *testing.T) {
	cfg := config.Default()
	requirements := Requirements(&cfg)
	if len(requirements) != 2 {
		t.Fatalf("requirements = %d, want 2", len(requirements))
	}
	if requirements[0].Command != cfg.Tools.PublicBinary || requirements[0].Optional {
		t.Fatalf("public tool requirement = %+v", requirements[0])
	}
	if requirements[1].Command != cfg.Tools.InternalBinary || !requirements[1].Optional {
		t.Fatalf("internal tool requirement = %+v", requirements[1])
	}

	if Requirements(nil) != nil {
		t.Fatal("expected nil requirements for nil config")
	}
}
