package period

import (
	"testing"
	"time"

	"github.com/brndhq/brndindexer/internal/domain"
)

func TestDayBucket(t *testing.T) {
	midnight := uint64(time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC).Unix())
	cases := []struct {
		ts   uint64
		want uint64
	}{
		{midnight, midnight},
		{midnight + 1, midnight},
		{midnight + 86399, midnight},
		{midnight + 86400, midnight + 86400},
	}
	for _, c := range cases {
		if got := DayBucket(c.ts); got != c.want {
			t.Errorf("DayBucket(%d) = %d, want %d", c.ts, got, c.want)
		}
	}
}

func TestDayNumber(t *testing.T) {
	if got := DayNumber(0); got != 0 {
		t.Errorf("DayNumber(0) = %d", got)
	}
	if got := DayNumber(86399); got != 0 {
		t.Errorf("DayNumber(86399) = %d", got)
	}
	if got := DayNumber(86400); got != 1 {
		t.Errorf("DayNumber(86400) = %d", got)
	}
}

func TestWeekBucketBoundary(t *testing.T) {
	// A week boundary far in the present.
	boundary := uint64(weekAnchor + 2950*weekSeconds)

	at := time.Unix(int64(boundary), 0).UTC()
	if at.Weekday() != time.Friday || at.Hour() != 13 || at.Minute() != 13 || at.Second() != 0 {
		t.Fatalf("boundary %v is not Friday 13:13:00 UTC", at)
	}

	// Exactly on the boundary belongs to the new week.
	if got := WeekBucket(boundary); got != boundary {
		t.Errorf("WeekBucket(at boundary) = %d, want %d", got, boundary)
	}
	// One second earlier belongs to the previous week.
	if got := WeekBucket(boundary - 1); got != boundary-weekSeconds {
		t.Errorf("WeekBucket(boundary-1) = %d, want %d", got, boundary-weekSeconds)
	}
	// The last second of the week still maps to its start.
	if got := WeekBucket(boundary + weekSeconds - 1); got != boundary {
		t.Errorf("WeekBucket(end of week) = %d, want %d", got, boundary)
	}
}

func TestWeekBucketBeforeFirstAnchor(t *testing.T) {
	// Pre-anchor timestamps collapse into bucket zero instead of wrapping
	// around below it.
	if got := WeekBucket(3600); got != 0 {
		t.Errorf("WeekBucket(3600) = %d, want 0", got)
	}
	if got := WeekBucket(weekAnchor - 1); got != 0 {
		t.Errorf("WeekBucket(anchor-1) = %d, want 0", got)
	}
	if got := WeekBucket(weekAnchor); got != weekAnchor {
		t.Errorf("WeekBucket(anchor) = %d, want %d", got, uint64(weekAnchor))
	}
}

func TestWeekBucketMonotone(t *testing.T) {
	// Buckets never decrease as timestamps grow, including across the
	// first anchor.
	ts := []uint64{0, 3600, weekAnchor - 1, weekAnchor, weekAnchor + 1,
		weekAnchor + weekSeconds, weekAnchor + 2950*weekSeconds}
	for i := 1; i < len(ts); i++ {
		lo, hi := WeekBucket(ts[i-1]), WeekBucket(ts[i])
		if lo > hi {
			t.Errorf("WeekBucket(%d) = %d > WeekBucket(%d) = %d", ts[i-1], lo, ts[i], hi)
		}
	}
}

func TestMonthBucket(t *testing.T) {
	first := uint64(time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC).Unix())
	mid := uint64(time.Date(2026, 9, 17, 8, 30, 0, 0, time.UTC).Unix())
	if got := MonthBucket(mid); got != first {
		t.Errorf("MonthBucket(mid-month) = %d, want %d", got, first)
	}
	if got := MonthBucket(first); got != first {
		t.Errorf("MonthBucket(first instant) = %d, want %d", got, first)
	}
	// Last second of the previous month.
	if got := MonthBucket(first - 1); got == first {
		t.Error("MonthBucket(prev month) leaked into next month")
	}
}

func TestDayKey(t *testing.T) {
	ts := uint64(time.Date(2026, 2, 3, 23, 59, 59, 0, time.UTC).Unix())
	if got := DayKey(ts); got != "2026-02-03" {
		t.Errorf("DayKey = %q", got)
	}
}

func TestBucketDispatch(t *testing.T) {
	ts := uint64(time.Date(2026, 6, 10, 15, 0, 0, 0, time.UTC).Unix())
	if got := Bucket(domain.GranularityDay, ts); got != DayBucket(ts) {
		t.Errorf("day bucket = %d", got)
	}
	if got := Bucket(domain.GranularityWeek, ts); got != WeekBucket(ts) {
		t.Errorf("week bucket = %d", got)
	}
	if got := Bucket(domain.GranularityMonth, ts); got != MonthBucket(ts) {
		t.Errorf("month bucket = %d", got)
	}
	if got := Bucket(domain.GranularityAllTime, ts); got != 0 {
		t.Errorf("alltime bucket = %d, want 0", got)
	}
}
