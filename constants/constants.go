package constants

// Pipeline

const (
	ServiceName                  = "starpipe"
	DefaultConfigFileName        = "dwh.cfg"
	DefaultS3Region              = "us-west-2" // region of the source buckets used in every COPY statement.
	DefaultSslMode               = "require"
	TimeFormatYearSeconds        = "20060102T150405" // used for human readable run summaries
	TimeFormatYearSecondsRegex   = "[0-9]{4}[0-9]{2}[0-9]{2}T[0-9]{6}"
	StatsLogFrequencySeconds     = 5
	EnvVarPrefix                 = "STARPIPE" // prefixed for environment variables in twelveFactorMode
	ConnectionTypeRedshift       = "redshift"
	ConnectionTypePostgres       = "postgres"
	PhaseLoad                    = "load"
	PhaseTransform               = "transform"
	PhaseCreate                  = "create"
	PhaseDrop                    = "drop"
	WebServerDefaultPort         = 8080
	WebServerShutdownWaitSeconds = 15
)

// Config file sections and keys as they appear in dwh.cfg.

const (
	ConfigSectionWarehouse = "DWH"
	ConfigSectionRole      = "IAM_ROLE"
	ConfigSectionS3        = "S3"
)
