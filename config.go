package docguard

import (
	"time"

	"github.com/docguardhq/docguard/internal/config"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Filename of the standard configuration file.
const ConfigFile = "docguard.yaml"

// ConfigKeyInfo contains metadata about a known configuration key.
// This is re-exported from internal/config for public API use.
type ConfigKeyInfo = config.ConfigKeyInfo

// Config is a global koanf instance used to access application level
// configuration options.
//
// Config is loaded in the following order (later sources override earlier):
// 1. Built-in defaults (in init())
// 2. Auto-discovered docguard.yaml (in init())
// 3. Environment variables with DG__ prefix (in init())
// 4. Additional sources loaded via LoadConfigFile() or LoadConfigDefaults()
//
// Environment variable transformation:
//   - DG__STORAGE__DRIVER → storage.driver
//   - DG__AUTH__ADMIN_USERS → auth.adminUsers (underscores become camelCase)
//   - DG__FOO_BAR__BAZ → fooBar.baz
var Config = koanf.New(".")

func init() {
	// Register all core configuration keys with their defaults (loaded lazily).
	registerCoreConfigKeys()

	// Look for a docguard.yaml file in the current directory or any parent.
	if cfg := config.SearchForConfig(ConfigFile, "."); cfg != "" {
		if err := Config.Load(file.Provider(cfg), yaml.Parser()); err != nil {
			panic("error loading config: " + err.Error())
		}
	}

	// Load environment variables with the prefix DG__.
	if err := Config.Load(env.Provider("DG__", ".", config.TransformEnv), nil); err != nil {
		panic("error loading env config: " + err.Error())
	}
}

// RegisterConfigKey registers a known configuration key with metadata.
// Applications embedding docguard can document their own keys to avoid
// unknown-key warnings at startup.
//
// Example:
//
//	docguard.RegisterConfigKey(docguard.ConfigKeyInfo{
//	    Key:         "myapp.cacheTTL",
//	    Description: "How long fetched documents may be reused",
//	    Type:        "duration",
//	})
func RegisterConfigKey(info ConfigKeyInfo) {
	config.RegisterConfigKey(info)
}

// RegisterConfigKeys registers multiple configuration keys at once.
func RegisterConfigKeys(infos ...ConfigKeyInfo) {
	config.RegisterConfigKeys(infos...)
}

// RegisterDeprecatedKey registers a deprecated configuration key and its
// replacement.
func RegisterDeprecatedKey(oldKey, newKey string) {
	config.RegisterDeprecatedKey(oldKey, newKey)
}

// LoadConfigFile loads additional configuration from a YAML file into the
// global Config instance.
func LoadConfigFile(path string) {
	if err := Config.Load(file.Provider(path), yaml.Parser()); err != nil {
		panic("error loading config file '" + path + "': " + err.Error())
	}
}

// LoadConfigDefaults loads default configuration values into the global
// Config instance. Call this before creating a Guard to provide
// application-specific defaults that can be overridden by files or env vars.
func LoadConfigDefaults(defaults map[string]interface{}) {
	if err := Config.Load(confmap.Provider(defaults, "."), nil); err != nil {
		panic("error loading config defaults: " + err.Error())
	}
}

// Configuration Access Functions
//
// These functions provide a clean API for accessing configuration values.
// They delegate to the underlying Config instance.

// ConfigString returns the string value for the given key.
func ConfigString(key string) string {
	return Config.String(key)
}

// ConfigInt returns the int value for the given key.
func ConfigInt(key string) int {
	return Config.Int(key)
}

// ConfigBool returns the bool value for the given key.
func ConfigBool(key string) bool {
	return Config.Bool(key)
}

// ConfigDuration returns the duration value for the given key.
// Duration strings like "5m", "1h", "30s" are parsed automatically.
func ConfigDuration(key string) time.Duration {
	return Config.Duration(key)
}

// ConfigStrings returns the string slice value for the given key.
func ConfigStrings(key string) []string {
	return Config.Strings(key)
}

// ConfigBytes returns the byte slice value for the given key.
func ConfigBytes(key string) []byte {
	return Config.Bytes(key)
}

// ConfigExists checks if the given key exists in the configuration.
func ConfigExists(key string) bool {
	return Config.Exists(key)
}

// ConfigAll returns all configuration as a map.
func ConfigAll() map[string]interface{} {
	return Config.All()
}

// ValidateConfig checks every loaded key against the registry and returns a
// human-readable warning block, or an empty string when everything is known.
// Guard logs this at startup; applications may also call it directly.
func ValidateConfig() string {
	return config.FormatValidationWarnings(config.ValidateConfigKeys(Config))
}

// registerCoreConfigKeys registers all core docguard configuration keys with
// their defaults. This is called from init() before any config loading
// happens.
func registerCoreConfigKeys() {
	config.RegisterConfigKeys(
		// Administrative principals
		ConfigKeyInfo{
			Key:         "auth.adminUsers",
			Description: "User names granted the workspace-admin bypass",
			Type:        "[]string",
		},
		ConfigKeyInfo{
			Key:         "auth.adminGroups",
			Description: "Backend roles granted the workspace-admin bypass",
			Type:        "[]string",
		},
		ConfigKeyInfo{
			Key:         "auth.connectionAdminGroups",
			Description: "Backend roles permitted to manage cross-workspace connection objects",
			Type:        "[]string",
		},
		ConfigKeyInfo{
			Key:         "auth.signingKey",
			Description: "HMAC key for signing identity tokens",
			Type:        "string",
		},

		// Storage configuration
		ConfigKeyInfo{
			Key:         "storage.driver",
			Description: "Document store backend: memory, sqlite3 or postgres",
			Type:        "string",
			Default:     "memory",
		},
		ConfigKeyInfo{
			Key:         "storage.dsn",
			Description: "Connection string for SQL-backed stores",
			Type:        "string",
		},
		ConfigKeyInfo{
			Key:         "storage.tablePrefix",
			Description: "Prefix for the document store's tables",
			Type:        "string",
			Default:     "dg_",
		},

		// Logging
		ConfigKeyInfo{
			Key:         "logging.level",
			Description: "Minimum log level: debug, info, warn or error",
			Type:        "string",
			Default:     "info",
		},

		// Authorization behavior
		ConfigKeyInfo{
			Key:         "workspace.exemptTypes",
			Description: "Document types with no workspace or ACL relevance",
			Type:        "[]string",
		},
	)
}
