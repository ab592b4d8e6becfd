package warehouse

import (
	"fmt"

	"github.com/relloyd/starpipe/constants"
	"github.com/relloyd/starpipe/pipeline"
)

// Table names.
const (
	TableStagingEvents = "staging_events"
	TableStagingSongs  = "staging_songs"
	TableSongplays     = "songplays"
	TableUsers         = "users"
	TableSongs         = "songs"
	TableArtists       = "artists"
	TableTime          = "time"
)

// Table is a warehouse table and the column list used to create it.
type Table struct {
	Name    string
	Columns string
}

// Tables lists every table in creation order: staging first, then the fact and dimension tables.
var Tables = []Table{
	{Name: TableStagingEvents, Columns: `
    artist          varchar,
    auth            varchar,
    firstName       varchar,
    gender          char,
    itemInSession   integer,
    lastName        varchar,
    length          float,
    level           varchar,
    location        varchar,
    method          varchar,
    page            varchar,
    registration    varchar,
    sessionId       integer,
    song            varchar,
    status          integer,
    ts              timestamp,
    userAgent       varchar,
    userId          integer`},
	{Name: TableStagingSongs, Columns: `
    artist_id           varchar,
    artist_latitude     float,
    artist_location     varchar,
    artist_longitude    float,
    artist_name         varchar,
    duration            float,
    num_songs           integer,
    song_id             varchar,
    title               varchar,
    year                integer`},
	{Name: TableSongplays, Columns: `
    songplay_id   integer identity(0,1) not null,
    start_time    timestamp not null,
    user_id       varchar not null,
    level         varchar,
    song_id       varchar not null,
    artist_id     varchar not null,
    session_id    varchar not null,
    location      varchar,
    user_agent    varchar`},
	{Name: TableUsers, Columns: `
    user_id       varchar not null,
    first_name    varchar,
    last_name     varchar,
    gender        char,
    level         varchar`},
	{Name: TableSongs, Columns: `
    song_id   varchar not null,
    title     varchar,
    artist_id varchar,
    year      integer,
    duration  float`},
	{Name: TableArtists, Columns: `
    artist_id varchar not null,
    name      varchar,
    location  varchar,
    latitude  float,
    longitude float`},
	{Name: TableTime, Columns: `
    start_time timestamp not null,
    hour       integer not null,
    day        integer not null,
    week       integer not null,
    month      integer not null,
    year       integer not null,
    weekday    integer not null`},
}

// CreateSql returns the idempotent CREATE TABLE statement for t.
func (t Table) CreateSql() string {
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %v (%v)", t.Name, t.Columns)
}

// DropSql returns the DROP TABLE statement for t.
func (t Table) DropSql() string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %v CASCADE", t.Name)
}

// CreateSteps returns one DDL step per table in creation order.
func CreateSteps() []pipeline.Step {
	retval := make([]pipeline.Step, len(Tables))
	for idx, t := range Tables {
		retval[idx] = pipeline.DDL{Name: "create_" + t.Name, Phase: constants.PhaseCreate, Statement: t.CreateSql()}
	}
	return retval
}

// DropSteps returns one DDL step per table.
func DropSteps() []pipeline.Step {
	retval := make([]pipeline.Step, len(Tables))
	for idx, t := range Tables {
		retval[idx] = pipeline.DDL{Name: "drop_" + t.Name, Phase: constants.PhaseDrop, Statement: t.DropSql()}
	}
	return retval
}
