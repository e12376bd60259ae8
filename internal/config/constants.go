package config

// Constants defining default values for application configuration
const (
	DefaultSourcesPath = "./sources.yaml"
	DefaultDBPath      = "./newsdesk.db"

	DefaultServerPort = 8080
	DefaultServerHost = "" // Empty string means all interfaces

	DefaultWorkerCount         = 1
	DefaultFetchTimeoutSeconds = 8
	DefaultClusterWindowHours  = 48
	DefaultClusterThreshold    = 80

	DefaultLLMTimeoutSeconds = 60

	DefaultLogLevel = "info"

	// EnvPrefix prefixes every environment variable read by the application.
	EnvPrefix = "NEWSDESK_"
)
