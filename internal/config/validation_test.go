package config

import (
	"strings"
	"testing"

	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/v2"
)

// registerTestKeys populates the registry with the module's own keys so the
// validation tests don't depend on package init order. The original registry
// is restored on cleanup.
func registerTestKeys(t *testing.T) {
	t.Helper()

	registryMu.Lock()
	original := registry
	registry = make(map[string]ConfigKeyInfo)
	for _, key := range []string{
		"auth.adminUsers",
		"auth.adminGroups",
		"auth.connectionAdminGroups",
		"auth.signingKey",
		"storage.driver",
		"storage.dsn",
		"storage.tablePrefix",
		"logging.level",
		"workspace.exemptTypes",
	} {
		registry[key] = ConfigKeyInfo{Key: key}
	}
	registryMu.Unlock()

	t.Cleanup(func() {
		registryMu.Lock()
		registry = original
		registryMu.Unlock()
	})
}

func TestValidateConfigKeys_Integration(t *testing.T) {
	registerTestKeys(t)

	// Load test config with intentional typos
	testConfig := koanf.New(".")
	err := testConfig.Load(confmap.Provider(map[string]interface{}{
		"storage.driver":        "sqlite3",
		"storage.dsn":           ":memory:",
		"auth.adminUser":        []string{"ops"}, // Typo: should be adminUsers
		"auth.signngKey":        "test",          // Typo: should be signingKey
		"workspace.exemtpTypes": []string{"config"},
		"unknownKey":            "value",
	}, "."), nil)
	if err != nil {
		t.Fatalf("Failed to load test config: %v", err)
	}

	warnings := ValidateConfigKeys(testConfig)
	if len(warnings) == 0 {
		t.Fatal("Expected warnings but got none")
	}

	wantSuggestions := map[string]string{
		"auth.adminUser":        "auth.adminUsers",
		"auth.signngKey":        "auth.signingKey",
		"workspace.exemtpTypes": "workspace.exemptTypes",
	}
	found := map[string]bool{}

	for _, w := range warnings {
		t.Logf("Warning: %s", w.String())

		want, ok := wantSuggestions[w.Key]
		if !ok {
			continue
		}
		found[w.Key] = true

		hasSuggestion := false
		for _, s := range w.Suggestions {
			if s == want {
				hasSuggestion = true
				break
			}
		}
		if !hasSuggestion {
			t.Errorf("Expected %q in suggestions for %q, got %v", want, w.Key, w.Suggestions)
		}
	}

	for key := range wantSuggestions {
		if !found[key] {
			t.Errorf("Expected warning for %q typo", key)
		}
	}

	// Known keys should not generate warnings
	testConfig2 := koanf.New(".")
	err = testConfig2.Load(confmap.Provider(map[string]interface{}{
		"storage.driver":        "postgres",
		"storage.dsn":           "postgres://localhost/docguard",
		"storage.tablePrefix":   "dg_",
		"auth.adminUsers":       []string{"ops"},
		"logging.level":         "debug",
		"workspace.exemptTypes": []string{"config"},
	}, "."), nil)
	if err != nil {
		t.Fatalf("Failed to load test config: %v", err)
	}

	warnings = ValidateConfigKeys(testConfig2)
	if len(warnings) > 0 {
		t.Errorf("Expected no warnings for correct config keys, but got %d warnings:", len(warnings))
		for _, w := range warnings {
			t.Logf("  - %s", w.String())
		}
	}
}

func TestValidateConfigKeys_deprecated(t *testing.T) {
	registerTestKeys(t)
	RegisterDeprecatedKey("auth.admins", "auth.adminUsers")

	testConfig := koanf.New(".")
	err := testConfig.Load(confmap.Provider(map[string]interface{}{
		"auth.admins": []string{"ops"},
	}, "."), nil)
	if err != nil {
		t.Fatalf("Failed to load test config: %v", err)
	}

	warnings := ValidateConfigKeys(testConfig)
	if len(warnings) != 1 {
		t.Fatalf("Expected one deprecation warning, got %d", len(warnings))
	}
	if warnings[0].Suggestions[0] != "auth.adminUsers" {
		t.Errorf("Expected replacement suggestion, got %v", warnings[0].Suggestions)
	}
}

func TestFormatValidationWarnings(t *testing.T) {
	warnings := []ValidationWarning{
		{
			Key:         "auth.adminUser",
			Suggestions: []string{"auth.adminUsers"},
		},
		{
			Key:         "unknownKey",
			Suggestions: []string{},
		},
	}

	result := FormatValidationWarnings(warnings)

	// Should contain the warning emoji
	if !strings.Contains(result, "⚠️") {
		t.Error("Expected warning emoji in formatted output")
	}

	// Should mention the keys
	if !strings.Contains(result, "auth.adminUser") {
		t.Error("Expected formatted output to mention auth.adminUser")
	}

	// Should have instructions
	if !strings.Contains(result, "RegisterConfigKey") {
		t.Error("Expected formatted output to mention RegisterConfigKey")
	}

	t.Logf("Formatted warnings:\n%s", result)
}
