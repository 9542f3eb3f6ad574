package model

import "time"

// MetricRow is one daily entry in a metric table. Because the five tables
// differ only in their column sets, a single row type carries the values in
// maps keyed by the schema's JSON field names. Nil map values represent SQL
// NULL; storage keeps nulls as nulls, only aggregates normalize them to 0.
//
// Fields:
//  ID        – primary key identifier.
//  OwnerID   – users.id of the reporting user; every access path must filter on it.
//  Date      – calendar day the counts refer to, distinct from CreatedAt.
//  Numbers   – nullable integer counts keyed by JSON field name.
//  Texts     – nullable free-text values keyed by JSON field name.
//  CreatedAt – timestamp of row creation.
//  UpdatedAt – timestamp of last modification.
type MetricRow struct {
	ID        uint64
	OwnerID   uint64
	Date      time.Time
	Numbers   map[string]*int64
	Texts     map[string]*string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RollupBucket is one month or quarter of summed counts for a single owner.
// Label is "YYYY-MM" for monthly rollups and "Q1".."Q4" for quarterly ones.
// Buckets exist only for periods that had at least one contributing row.
type RollupBucket struct {
	Label string
	Sums  map[string]int64
}

// JoinedPart holds one source table's contribution to a joined overview row.
// Numbers carries the per-day column sums (nil when every contributing value
// was NULL); Texts carries the day's text values.
type JoinedPart struct {
	Numbers map[string]*int64
	Texts   map[string]*string
}

// JoinedRow is one day of the read-only overview view: the union of all five
// tables' columns for a given (owner, date). Parts is keyed by schema name
// ("tableOne".."tableFive"); a missing key means the source table had no row
// for that day.
type JoinedRow struct {
	Date  time.Time
	Parts map[string]JoinedPart
}
