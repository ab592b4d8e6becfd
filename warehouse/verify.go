package warehouse

import (
	"context"
	"fmt"
	"strings"

	"github.com/relloyd/starpipe/logger"
	"github.com/relloyd/starpipe/rdbms"
	"github.com/relloyd/starpipe/rdbms/shared"
)

// Check compares the row count of a target table with the number of distinct keys in staging.
// A Check without ExpectedSql only reports the target count.
type Check struct {
	Name        string
	TargetSql   string
	ExpectedSql string
}

// CheckResult is the outcome of one Check.
type CheckResult struct {
	Name     string `json:"name"`
	Actual   int64  `json:"actual"`
	Expected int64  `json:"expected"`
	Checked  bool   `json:"checked"`
	Passed   bool   `json:"passed"`
}

func (r CheckResult) String() string {
	if !r.Checked {
		return fmt.Sprintf("%v: %v rows", r.Name, r.Actual)
	}
	status := "ok"
	if !r.Passed {
		status = "MISMATCH"
	}
	return fmt.Sprintf("%v: %v rows, %v expected: %v", r.Name, r.Actual, r.Expected, status)
}

// Checks are the cardinality properties of a completed run.
// Songplays is reported only since rerunning the transform appends again.
var Checks = []Check{
	{
		Name:        TableUsers,
		TargetSql:   "SELECT COUNT(*) FROM users",
		ExpectedSql: "SELECT COUNT(DISTINCT userId) FROM staging_events WHERE userId IS NOT NULL",
	},
	{
		Name:        TableSongs,
		TargetSql:   "SELECT COUNT(*) FROM songs",
		ExpectedSql: "SELECT COUNT(DISTINCT song_id) FROM staging_songs WHERE song_id IS NOT NULL",
	},
	{
		Name:        TableArtists,
		TargetSql:   "SELECT COUNT(*) FROM artists",
		ExpectedSql: "SELECT COUNT(DISTINCT artist_id) FROM staging_songs WHERE artist_id IS NOT NULL",
	},
	{
		Name:        TableTime,
		TargetSql:   "SELECT COUNT(*) FROM time",
		ExpectedSql: "SELECT COUNT(DISTINCT ts) FROM staging_events",
	},
	{
		Name:      TableSongplays,
		TargetSql: "SELECT COUNT(*) FROM songplays",
	},
}

// VerificationError lists the checks that failed.
type VerificationError struct {
	Failed []CheckResult
}

func (e VerificationError) Error() string {
	x := make([]string, len(e.Failed))
	for idx, r := range e.Failed {
		x[idx] = r.String()
	}
	return fmt.Sprintf("verification failed: %v", strings.Join(x, "; "))
}

// Verify runs every check and returns all results.
// A VerificationError is returned if any count does not match.
func Verify(ctx context.Context, log logger.Logger, db shared.Connector, checks []Check) ([]CheckResult, error) {
	results := make([]CheckResult, 0, len(checks))
	var failed []CheckResult
	for _, c := range checks {
		r := CheckResult{Name: c.Name}
		var err error
		r.Actual, err = rdbms.SqlQueryInt64(ctx, db, c.TargetSql)
		if err != nil {
			return results, fmt.Errorf("check %v: %w", c.Name, err)
		}
		if c.ExpectedSql != "" {
			r.Checked = true
			r.Expected, err = rdbms.SqlQueryInt64(ctx, db, c.ExpectedSql)
			if err != nil {
				return results, fmt.Errorf("check %v: %w", c.Name, err)
			}
			r.Passed = r.Actual == r.Expected
			if !r.Passed {
				failed = append(failed, r)
			}
		}
		log.Info(r)
		results = append(results, r)
	}
	if len(failed) > 0 {
		return results, VerificationError{Failed: failed}
	}
	return results, nil
}
