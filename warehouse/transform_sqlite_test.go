package warehouse_test

import (
	"database/sql"
	"strings"

	_ "github.com/glebarez/go-sqlite"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/relloyd/starpipe/warehouse"
)

// Minimal staging and target tables holding only the columns the inserts use.
var sqliteTables = []string{
	`CREATE TABLE staging_events (artist TEXT, firstName TEXT, gender TEXT, lastName TEXT, level TEXT,
		location TEXT, sessionId INTEGER, song TEXT, ts INTEGER, userAgent TEXT, userId INTEGER)`,
	`CREATE TABLE staging_songs (artist_id TEXT, artist_latitude REAL, artist_longitude REAL, artist_location TEXT,
		artist_name TEXT, song_id TEXT, title TEXT, duration REAL, year INTEGER)`,
	`CREATE TABLE songplays (start_time INTEGER, user_id INTEGER, level TEXT, song_id TEXT, artist_id TEXT,
		session_id INTEGER, location TEXT, user_agent TEXT)`,
	`CREATE TABLE users (user_id INTEGER, first_name TEXT, last_name TEXT, gender TEXT, level TEXT)`,
	`CREATE TABLE songs (song_id TEXT, title TEXT, artist_id TEXT, year INTEGER, duration REAL)`,
	`CREATE TABLE artists (artist_id TEXT, name TEXT, location TEXT, latitude REAL, longitude REAL)`,
}

var sqliteStaging = []string{
	`INSERT INTO staging_songs (artist_id, artist_name, song_id, title, duration, year) VALUES
		('AR1', 'Artist One', 'S1', 'Song One', 200.5, 2001),
		('AR2', 'Artist Two', 'S2', '', 100.0, 0),
		('AR2', 'Artist Two', 'S2', '', 100.0, 0),
		('AR3', 'Artist Three', NULL, 'Orphan', 50.0, 1999)`,
	`INSERT INTO staging_events (artist, song, ts, userId, firstName, level, sessionId) VALUES
		('Artist One', 'Song One', 100, 10, 'Ann', 'free', 1),
		('Nobody', 'Unknown', 200, 10, 'Ann', 'paid', 2),
		('Artist One', 'Song One', 300, NULL, NULL, 'free', 3)`,
}

// sqliteInsert rewrites INSERT INTO t (SELECT ...) as INSERT INTO t SELECT ..., which SQLite requires.
func sqliteInsert(stmt string) string {
	i := strings.Index(stmt, "SELECT")
	head := strings.TrimSpace(stmt[:i])
	body := strings.TrimSpace(stmt[i:])
	if strings.HasSuffix(head, "(") {
		head = strings.TrimSpace(strings.TrimSuffix(head, "("))
		body = strings.TrimSuffix(body, ")")
	}
	return head + "\n" + body
}

func transformStatement(name string) string {
	for _, s := range warehouse.TransformSteps() {
		if s.GetName() == name {
			return sqliteInsert(s.GetSql())
		}
	}
	Fail("missing transform " + name)
	return ""
}

func countRows(db *sql.DB, query string) int {
	var n int
	Expect(db.QueryRow(query).Scan(&n)).To(Succeed())
	return n
}

var _ = Describe("Transform statements executed on SQLite", func() {
	var db *sql.DB

	BeforeEach(func() {
		var err error
		db, err = sql.Open("sqlite", ":memory:")
		Expect(err).NotTo(HaveOccurred())
		db.SetMaxOpenConns(1) // every connection to :memory: is a new database.
		for _, stmt := range append(sqliteTables, sqliteStaging...) {
			_, err = db.Exec(stmt)
			Expect(err).NotTo(HaveOccurred(), stmt)
		}
		for _, name := range []string{warehouse.TableSongplays, warehouse.TableUsers, warehouse.TableSongs, warehouse.TableArtists} {
			_, err = db.Exec(transformStatement(name))
			Expect(err).NotTo(HaveOccurred(), name)
		}
	})

	AfterEach(func() {
		Expect(db.Close()).To(Succeed())
	})

	It("creates songplays only for events matching a song on title and artist", func() {
		Expect(countRows(db, "SELECT COUNT(*) FROM songplays")).To(Equal(2))
		Expect(countRows(db, "SELECT COUNT(*) FROM songplays WHERE song_id = 'S1' AND artist_id = 'AR1'")).To(Equal(2))
		Expect(countRows(db, "SELECT COUNT(*) FROM songplays WHERE start_time = 200")).To(Equal(0))
	})

	It("keeps the attributes of the latest event per user and ignores null users", func() {
		Expect(countRows(db, "SELECT COUNT(*) FROM users")).To(Equal(1))
		Expect(countRows(db, "SELECT COUNT(*) FROM users WHERE user_id IS NULL")).To(Equal(0))
		var level string
		Expect(db.QueryRow("SELECT level FROM users WHERE user_id = 10").Scan(&level)).To(Succeed())
		Expect(level).To(Equal("paid"))
	})

	It("collapses duplicate songs and stores empty titles and zero years as NULL", func() {
		Expect(countRows(db, "SELECT COUNT(*) FROM songs")).To(Equal(2))
		var title sql.NullString
		var year sql.NullInt64
		Expect(db.QueryRow("SELECT title, year FROM songs WHERE song_id = 'S2'").Scan(&title, &year)).To(Succeed())
		Expect(title.Valid).To(BeFalse())
		Expect(year.Valid).To(BeFalse())
	})

	It("keeps one artist per artist_id including artists of songs without an id", func() {
		Expect(countRows(db, "SELECT COUNT(*) FROM artists")).To(Equal(3))
		Expect(countRows(db, "SELECT COUNT(DISTINCT artist_id) FROM artists")).To(Equal(3))
	})

	It("appends to dimension tables when the transform runs again", func() {
		_, err := db.Exec(transformStatement(warehouse.TableUsers))
		Expect(err).NotTo(HaveOccurred())
		Expect(countRows(db, "SELECT COUNT(*) FROM users")).To(Equal(2))
	})
})
