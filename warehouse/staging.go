package warehouse

import (
	"github.com/relloyd/starpipe/config"
	"github.com/relloyd/starpipe/pipeline"
)

// COPY settings for the source data.
const (
	copyTimeFormatEpochMillis = "epochmillisecs"
	copyJsonAuto              = "auto"
)

// LoadSteps returns the bulk loads that fill the staging tables from S3, events first.
// Event timestamps arrive as epoch milliseconds and are mapped to columns by the JSONPaths file.
// Song records map by field name and over-long text is truncated to fit.
func LoadSteps(cfg config.Config) []pipeline.Step {
	return []pipeline.Step{
		pipeline.BulkLoad{
			Table:  TableStagingEvents,
			Source: cfg.S3.LogData,
			Options: pipeline.CopyOptions{
				IamRoleArn:  cfg.Role.Arn,
				JsonFormat:  cfg.S3.LogJsonPath,
				TimeFormat:  copyTimeFormatEpochMillis,
				EmptyAsNull: true,
				Region:      cfg.S3.Region,
			},
		},
		pipeline.BulkLoad{
			Table:  TableStagingSongs,
			Source: cfg.S3.SongData,
			Options: pipeline.CopyOptions{
				IamRoleArn:      cfg.Role.Arn,
				JsonFormat:      copyJsonAuto,
				TruncateColumns: true,
				EmptyAsNull:     true,
				Region:          cfg.S3.Region,
			},
		},
	}
}
