package warehouse_test

import (
	"strings"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/relloyd/starpipe/config"
	"github.com/relloyd/starpipe/pipeline"
	"github.com/relloyd/starpipe/warehouse"
)

var testConfig = config.Config{
	Role: config.RoleConfig{Arn: "arn:aws:iam::123456789012:role/dwhRole"},
	S3: config.S3Config{
		SongData:    "s3://udacity-dend/song_data",
		LogData:     "s3://udacity-dend/log_data",
		LogJsonPath: "s3://udacity-dend/log_json_path.json",
		Region:      "us-west-2",
	},
}

// squash collapses whitespace so that assertions do not depend on SQL layout.
func squash(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func transformSql(name string) string {
	for _, s := range warehouse.TransformSteps() {
		if s.GetName() == name {
			return squash(s.GetSql())
		}
	}
	Fail("missing transform " + name)
	return ""
}

var _ = Describe("Load steps", func() {
	steps := warehouse.LoadSteps(testConfig)

	It("loads events before songs", func() {
		Expect(steps).To(HaveLen(2))
		Expect(steps[0].GetName()).To(Equal("staging_events"))
		Expect(steps[1].GetName()).To(Equal("staging_songs"))
	})

	It("copies events with the JSONPaths file and epoch millisecond timestamps", func() {
		Expect(steps[0].GetSql()).To(Equal("COPY staging_events\n" +
			"FROM 's3://udacity-dend/log_data'\n" +
			"CREDENTIALS 'aws_iam_role=arn:aws:iam::123456789012:role/dwhRole'\n" +
			"JSON 's3://udacity-dend/log_json_path.json'\n" +
			"TIMEFORMAT 'epochmillisecs'\n" +
			"EMPTYASNULL\n" +
			"REGION 'us-west-2'"))
	})

	It("copies songs with automatic JSON mapping and truncation", func() {
		Expect(steps[1].GetSql()).To(Equal("COPY staging_songs\n" +
			"FROM 's3://udacity-dend/song_data'\n" +
			"CREDENTIALS 'aws_iam_role=arn:aws:iam::123456789012:role/dwhRole'\n" +
			"JSON 'auto'\n" +
			"TRUNCATECOLUMNS\n" +
			"EMPTYASNULL\n" +
			"REGION 'us-west-2'"))
	})
})

var _ = Describe("Transform steps", func() {
	It("runs in fact then dimension order", func() {
		var names []string
		for _, s := range warehouse.TransformSteps() {
			names = append(names, s.GetName())
			Expect(s.GetKind()).To(Equal(pipeline.KindTransform))
		}
		Expect(names).To(Equal([]string{"songplays", "users", "songs", "artists", "time"}))
	})

	It("joins songplays on exact title and artist name with an inner join", func() {
		sql := transformSql("songplays")
		Expect(sql).To(ContainSubstring("FROM staging_songs ss JOIN staging_events AS se ON ss.artist_name = se.artist AND ss.title = se.song"))
		Expect(strings.ToUpper(sql)).NotTo(ContainSubstring("LEFT"))
		Expect(sql).NotTo(ContainSubstring("songplay_id"))
	})

	It("keeps the latest event per user and excludes null users before ranking", func() {
		sql := transformSql("users")
		Expect(sql).To(ContainSubstring("ROW_NUMBER () OVER(PARTITION BY se.userId ORDER BY se.ts DESC) AS ts_order"))
		Expect(sql).To(ContainSubstring("WHERE se.userId IS NOT NULL ) AS temp_se"))
		Expect(sql).To(ContainSubstring("WHERE temp_se.ts_order = 1"))
	})

	It("keeps one song per song_id without a secondary ordering", func() {
		sql := transformSql("songs")
		Expect(sql).To(ContainSubstring("ROW_NUMBER () OVER(PARTITION BY ss.song_id) AS row_num"))
		Expect(sql).To(ContainSubstring("NULLIF(ss.title, '') AS title"))
		Expect(sql).To(ContainSubstring("NULLIF(ss.year, 0) AS year"))
		Expect(sql).To(ContainSubstring("WHERE ss.song_id IS NOT NULL"))
		Expect(sql).To(ContainSubstring("WHERE ss_with_row_num.row_num = 1"))
	})

	It("keeps one artist per artist_id without a secondary ordering", func() {
		sql := transformSql("artists")
		Expect(sql).To(ContainSubstring("ROW_NUMBER () OVER(PARTITION BY ss.artist_id) AS row_num"))
		Expect(sql).To(ContainSubstring("NULLIF(ss.artist_name, '') AS artist_name"))
		Expect(sql).To(ContainSubstring("WHERE ss.artist_id IS NOT NULL"))
	})

	It("derives one time row per distinct timestamp", func() {
		sql := transformSql("time")
		Expect(sql).To(HavePrefix("INSERT INTO time SELECT DISTINCT se.ts,"))
		for _, part := range []string{"hr", "d", "w", "mon", "y", "dow"} {
			Expect(sql).To(ContainSubstring("DATE_PART(" + part + ", se.ts)"))
		}
	})
})

var _ = Describe("Schema steps", func() {
	It("creates every table idempotently in dependency order", func() {
		steps := warehouse.CreateSteps()
		Expect(steps).To(HaveLen(7))
		Expect(steps[0].GetName()).To(Equal("create_staging_events"))
		Expect(steps[6].GetName()).To(Equal("create_time"))
		for _, s := range steps {
			Expect(s.GetSql()).To(HavePrefix("CREATE TABLE IF NOT EXISTS "))
			Expect(s.GetPhase()).To(Equal("create"))
		}
		Expect(squash(steps[2].GetSql())).To(ContainSubstring("songplay_id integer identity(0,1) not null"))
	})

	It("drops every table with cascade", func() {
		steps := warehouse.DropSteps()
		Expect(steps).To(HaveLen(7))
		Expect(steps[6].GetSql()).To(Equal("DROP TABLE IF EXISTS time CASCADE"))
	})
})

var _ = Describe("Plans", func() {
	It("loads then transforms in a run", func() {
		p, err := warehouse.NewPlan(warehouse.PlanRun, testConfig)
		Expect(err).NotTo(HaveOccurred())
		Expect(p.Names()).To(Equal([]string{"staging_events", "staging_songs", "songplays", "users", "songs", "artists", "time"}))
	})

	It("drops before creating in a reset", func() {
		p, err := warehouse.NewPlan(warehouse.PlanReset, testConfig)
		Expect(err).NotTo(HaveOccurred())
		Expect(p.Len()).To(Equal(14))
		Expect(p.Names()[0]).To(Equal("drop_staging_events"))
		Expect(p.Names()[7]).To(Equal("create_staging_events"))
	})

	It("selects steps for a selective re-run", func() {
		p, err := warehouse.NewSelectedPlan(warehouse.PlanRun, testConfig, []string{"transform"})
		Expect(err).NotTo(HaveOccurred())
		Expect(p.Len()).To(Equal(5))
		_, err = warehouse.NewSelectedPlan(warehouse.PlanRun, testConfig, []string{"nope"})
		Expect(err).To(HaveOccurred())
	})

	It("rejects unknown plans", func() {
		_, err := warehouse.NewPlan("bogus", testConfig)
		Expect(err).To(HaveOccurred())
	})
})
