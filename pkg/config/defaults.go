package config

const (
	defaultAPIListen = ":8000"

	defaultLLMProvider = "echo"
	defaultLLMUpstream = "https://api.openai.com"
	defaultLLMModel    = "gpt-4o-mini"

	defaultClientAPITarget = "http://localhost:8000"
	defaultClientTimeout   = 30

	defaultStorageDriver = "sqlite"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values. The defaults
// favor a fully offline setup: echo provider, local SQLite history.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		LLM: LLMConfig{
			Provider: defaultLLMProvider,
			Upstream: defaultLLMUpstream,
			Model:    defaultLLMModel,
		},
		Client: ClientConfig{
			APITarget:      defaultClientAPITarget,
			TimeoutSeconds: defaultClientTimeout,
			Stream:         false,
		},
		Storage: StorageConfig{
			Driver: defaultStorageDriver,
		},
	}
}
