// Package period computes the time-bucket identifiers used by the stats and
// leaderboard rollups. Every function is a pure UTC calculation; a bucket is
// identified by its inclusive start timestamp in epoch seconds.
package period

import (
	"time"

	"github.com/brndhq/brndindexer/internal/domain"
)

const (
	daySeconds  = 86400
	weekSeconds = 7 * daySeconds

	// Weeks roll over at Friday 13:13:00 UTC. The first such instant on or
	// after the epoch is 1970-01-02T13:13:00Z (Jan 2 1970 was a Friday).
	weekAnchor = daySeconds + 13*3600 + 13*60
)

// DayNumber is the vote-ledger day index: whole days since the epoch.
// Distinct from DayBucket, which is a timestamp.
func DayNumber(ts uint64) uint64 {
	return ts / daySeconds
}

// DayBucket returns the UTC midnight starting the day containing ts.
func DayBucket(ts uint64) uint64 {
	return ts - ts%daySeconds
}

// WeekBucket returns the start of the week containing ts. A timestamp exactly
// on the Friday 13:13:00 boundary starts a new week. Timestamps before the
// first anchor collapse into bucket zero; buckets must never decrease as ts
// grows, and unsigned wrap-around below the anchor would break that.
func WeekBucket(ts uint64) uint64 {
	if ts < weekAnchor {
		return 0
	}
	return weekAnchor + (ts-weekAnchor)/weekSeconds*weekSeconds
}

// MonthBucket returns the UTC midnight of the first day of the month
// containing ts.
func MonthBucket(ts uint64) uint64 {
	t := time.Unix(int64(ts), 0).UTC()
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return uint64(first.Unix())
}

// DayKey formats the UTC calendar date of ts as YYYY-MM-DD, the primary key
// of the daily stats table.
func DayKey(ts uint64) string {
	return time.Unix(int64(ts), 0).UTC().Format("2006-01-02")
}

// Bucket returns the bucket start for ts at granularity g. The all-time
// granularity has a single bucket identified by zero.
func Bucket(g domain.Granularity, ts uint64) uint64 {
	switch g {
	case domain.GranularityDay:
		return DayBucket(ts)
	case domain.GranularityWeek:
		return WeekBucket(ts)
	case domain.GranularityMonth:
		return MonthBucket(ts)
	default:
		return 0
	}
}
