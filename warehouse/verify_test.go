package warehouse_test

import (
	"context"
	"errors"
	"strings"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/relloyd/starpipe/constants"
	"github.com/relloyd/starpipe/logger"
	"github.com/relloyd/starpipe/rdbms/shared"
	"github.com/relloyd/starpipe/warehouse"
)

var _ = Describe("Verify", func() {
	var (
		log    logger.Logger
		db     *shared.MockConnection
		counts map[string]int64
	)

	BeforeEach(func() {
		log = logger.NewLogger("starpipe", "error", false)
		db, _ = shared.NewMockConnectionWithMockTx(log, constants.ConnectionTypeRedshift)
		counts = map[string]int64{
			"FROM users":         96,
			"DISTINCT userId":    96,
			"FROM songs":         14896,
			"DISTINCT song_id":   14896,
			"FROM artists":       10025,
			"DISTINCT artist_id": 10025,
			"FROM time":          8023,
			"DISTINCT ts":        8023,
			"FROM songplays":     333,
		}
		db.QueryFn = func(query string) ([]string, [][]interface{}, error) {
			for k, v := range counts {
				if strings.Contains(query, k) {
					return []string{"count"}, [][]interface{}{{v}}, nil
				}
			}
			return nil, nil, errors.New("unexpected query " + query)
		}
	})

	It("passes when every dimension has one row per distinct key", func() {
		results, err := warehouse.Verify(context.Background(), log, db, warehouse.Checks)
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(5))
		Expect(results[4].Checked).To(BeFalse())
		Expect(results[4].Actual).To(Equal(int64(333)))
	})

	It("reports a mismatch", func() {
		counts["FROM users"] = 97
		_, err := warehouse.Verify(context.Background(), log, db, warehouse.Checks)
		var v warehouse.VerificationError
		Expect(errors.As(err, &v)).To(BeTrue())
		Expect(v.Failed).To(HaveLen(1))
		Expect(v.Failed[0].Name).To(Equal("users"))
		Expect(err.Error()).To(ContainSubstring("users: 97 rows, 96 expected: MISMATCH"))
	})
})
