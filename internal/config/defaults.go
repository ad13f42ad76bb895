package config

const (
	// Filesystem paths
	DefaultConfigPath  = "/etc/webbrand/config.yml"
	DefaultDataDir     = "/var/lib/webbrand"
	DefaultOverrideDir = "/var/lib/webbrand/overrides"
	DefaultWebDir      = "/usr/share/jellyfin/web"

	// Server defaults
	DefaultBindAddress  = "127.0.0.1"
	DefaultPort         = 8097
	DefaultDashboardURL = "/web/#/dashboard/plugins"
	DefaultRateLimit    = 30 // mutating requests per minute per client

	// Upload defaults
	DefaultMaxUploadBytes = 10 << 20

	// Distribution defaults
	DefaultWorkers = 4

	// Environment variable prefix for the overlay
	EnvPrefix = "WEBBRAND_"

	// Branding modes
	ModeIntercept = "intercept"
	ModePush      = "push"
	ModeBoth      = "both"

	// Log formats
	LogFormatAuto    = "auto"
	LogFormatConsole = "console"
	LogFormatJSON    = "json"

	historyFile = "history.db"
	backupDir   = "originals"
)
