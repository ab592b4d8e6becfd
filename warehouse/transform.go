package warehouse

import (
	"github.com/relloyd/starpipe/pipeline"
)

// Songplays are events joined to the song catalog on exact title and artist name.
// Events with no matching song are dropped by the inner join.
const songplayTableInsert = `
INSERT INTO songplays(start_time, user_id, level, song_id, artist_id, session_id, location, user_agent)
SELECT  se.ts,
        se.userId,
        se.level,
        ss.song_id,
        ss.artist_id,
        se.sessionId,
        se.location,
        se.userAgent
FROM staging_songs ss
JOIN staging_events AS se
    ON ss.artist_name = se.artist
    AND ss.title = se.song`

// Users keep the attributes from their most recent event.
// Events sharing the latest timestamp for a user are ranked in engine-defined order.
const userTableInsert = `
INSERT INTO users
(
SELECT  temp_se.userId,
        temp_se.firstName,
        temp_se.lastName,
        temp_se.gender,
        temp_se.level
FROM (
    SELECT  se.userId,
            se.firstName,
            se.lastName,
            se.gender,
            se.level,
            ROW_NUMBER () OVER(PARTITION BY se.userId ORDER BY se.ts DESC) AS ts_order
    FROM staging_events AS se
    WHERE se.userId IS NOT NULL
) AS temp_se
WHERE temp_se.ts_order = 1
)`

// Songs keep one arbitrary row per song_id. There is no secondary ordering so conflicting
// catalog duplicates resolve to whichever row the engine ranks first.
const songTableInsert = `
INSERT INTO songs
(
    SELECT  ss_with_row_num.song_id,
            ss_with_row_num.title,
            ss_with_row_num.artist_id,
            ss_with_row_num.year,
            ss_with_row_num.duration
    FROM (
        SELECT  ss.song_id,
                NULLIF(ss.title, '') AS title,
                ss.artist_id,
                NULLIF(ss.year, 0) AS year,
                ss.duration,
                ROW_NUMBER () OVER(PARTITION BY ss.song_id) AS row_num
        FROM staging_songs ss
        WHERE ss.song_id IS NOT NULL
    ) AS ss_with_row_num
    WHERE ss_with_row_num.row_num = 1
)`

// Artists keep one arbitrary row per artist_id, as for songs.
const artistTableInsert = `
INSERT INTO artists
(
    SELECT  ss_with_row_num.artist_id,
            ss_with_row_num.artist_name,
            ss_with_row_num.artist_location,
            ss_with_row_num.artist_latitude,
            ss_with_row_num.artist_longitude
    FROM (
        SELECT  ss.artist_id,
                NULLIF(ss.artist_name, '') AS artist_name,
                ss.artist_location,
                ss.artist_latitude,
                ss.artist_longitude,
                ROW_NUMBER () OVER(PARTITION BY ss.artist_id) AS row_num
        FROM staging_songs ss
        WHERE ss.artist_id IS NOT NULL
    ) AS ss_with_row_num
    WHERE ss_with_row_num.row_num = 1
)`

// Time has one row per distinct event timestamp.
// week is the ISO-8601 week number. weekday counts from 0 = Sunday to 6 = Saturday.
const timeTableInsert = `
INSERT INTO time
SELECT DISTINCT se.ts,
                DATE_PART(hr, se.ts) AS hour,
                DATE_PART(d, se.ts) AS day,
                DATE_PART(w, se.ts) AS week,
                DATE_PART(mon, se.ts) AS month,
                DATE_PART(y, se.ts) AS year,
                DATE_PART(dow, se.ts) AS weekday
FROM staging_events AS se`

// TransformSteps returns the inserts that populate the fact and dimension tables, in run order.
func TransformSteps() []pipeline.Step {
	return []pipeline.Step{
		pipeline.Transform{Name: TableSongplays, Statement: songplayTableInsert},
		pipeline.Transform{Name: TableUsers, Statement: userTableInsert},
		pipeline.Transform{Name: TableSongs, Statement: songTableInsert},
		pipeline.Transform{Name: TableArtists, Statement: artistTableInsert},
		pipeline.Transform{Name: TableTime, Statement: timeTableInsert},
	}
}
