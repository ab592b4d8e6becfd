package pipeline

import (
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/relloyd/starpipe/constants"
)

// Kind tags the variant of a Step.
type Kind string

const (
	KindBulkLoad  Kind = "bulkLoad"
	KindTransform Kind = "transform"
	KindDDL       Kind = "ddl"
)

// Step is one named SQL statement in a Plan.
type Step interface {
	GetName() string
	GetKind() Kind
	GetPhase() string
	GetSql() string
}

// CopyOptions are the Redshift COPY parameters used by a BulkLoad.
type CopyOptions struct {
	IamRoleArn      string `json:"iamRoleArn" yaml:"iamRoleArn" errorTxt:"IAM role ARN" mandatory:"yes"`
	JsonFormat      string `json:"json" yaml:"json" errorTxt:"JSON format" mandatory:"yes"` // a JSONPaths URI or "auto"
	TimeFormat      string `json:"timeFormat,omitempty" yaml:"timeFormat,omitempty"`
	TruncateColumns bool   `json:"truncateColumns" yaml:"truncateColumns"`
	EmptyAsNull     bool   `json:"emptyAsNull" yaml:"emptyAsNull"`
	Region          string `json:"region" yaml:"region"`
}

// BulkLoad copies objects found under Source into Table.
type BulkLoad struct {
	Table   string      `json:"table" yaml:"table"`
	Source  string      `json:"source" yaml:"source"`
	Options CopyOptions `json:"options" yaml:"options"`
}

func (b BulkLoad) GetName() string  { return b.Table }
func (b BulkLoad) GetKind() Kind    { return KindBulkLoad }
func (b BulkLoad) GetPhase() string { return constants.PhaseLoad }

// GetSql renders the COPY statement. Every literal is quoted so config values cannot break out of the statement.
func (b BulkLoad) GetSql() string {
	region := b.Options.Region
	if region == "" {
		region = constants.DefaultS3Region
	}
	lines := []string{
		fmt.Sprintf("COPY %v", b.Table),
		fmt.Sprintf("FROM %v", pq.QuoteLiteral(b.Source)),
		fmt.Sprintf("CREDENTIALS %v", pq.QuoteLiteral("aws_iam_role="+b.Options.IamRoleArn)),
		fmt.Sprintf("JSON %v", pq.QuoteLiteral(b.Options.JsonFormat)),
	}
	if b.Options.TimeFormat != "" {
		lines = append(lines, fmt.Sprintf("TIMEFORMAT %v", pq.QuoteLiteral(b.Options.TimeFormat)))
	}
	if b.Options.TruncateColumns {
		lines = append(lines, "TRUNCATECOLUMNS")
	}
	if b.Options.EmptyAsNull {
		lines = append(lines, "EMPTYASNULL")
	}
	lines = append(lines, fmt.Sprintf("REGION %v", pq.QuoteLiteral(region)))
	return strings.Join(lines, "\n")
}

// Transform populates a target table from staging data.
type Transform struct {
	Name      string `json:"name" yaml:"name"`
	Statement string `json:"statement" yaml:"statement"`
}

func (t Transform) GetName() string  { return t.Name }
func (t Transform) GetKind() Kind    { return KindTransform }
func (t Transform) GetPhase() string { return constants.PhaseTransform }
func (t Transform) GetSql() string   { return t.Statement }

// DDL creates or drops a table.
type DDL struct {
	Name      string `json:"name" yaml:"name"`
	Phase     string `json:"phase" yaml:"phase"`
	Statement string `json:"statement" yaml:"statement"`
}

func (d DDL) GetName() string  { return d.Name }
func (d DDL) GetKind() Kind    { return KindDDL }
func (d DDL) GetPhase() string { return d.Phase }
func (d DDL) GetSql() string   { return d.Statement }

// StepError attributes a failure to the step that caused it.
type StepError struct {
	Step string
	Kind Kind
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %v (%v) failed: %v", e.Step, e.Kind, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Cause lets github.com/pkg/errors find the driver error.
func (e *StepError) Cause() error {
	return e.Err
}
