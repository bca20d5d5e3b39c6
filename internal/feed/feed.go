// Package feed parses the line-oriented upstream schedule. Each line
// is "<unix-timestamp>,<node-id>[,free-form text]" with one entry per
// hour; the trailing text sometimes carries a "(X tier)" hint.
package feed

import (
	"bufio"
	"errors"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/arbywatch/arbywatch/internal/tier"
)

var ErrNotFound = errors.New("feed: no entry for current hour")

var hintRe = regexp.MustCompile(`(?i)\(([A-F])\s+tier\)`)

// Entry is one parsed schedule line. Entries are immutable; lookups
// only filter and sort them into derived views.
type Entry struct {
	Timestamp int64
	NodeID    string
	Hint      tier.Tier
	HasHint   bool
}

// Parse scans the raw feed text. Blank lines, lines without a comma
// and lines whose timestamp is not an integer are skipped; a bad line
// never aborts the rest of the scan.
func Parse(text string) []Entry {
	var out []Entry
	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || !strings.Contains(line, ",") {
			continue
		}
		parts := strings.SplitN(line, ",", 3)
		ts, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
		if err != nil {
			continue
		}
		e := Entry{Timestamp: ts, NodeID: strings.TrimSpace(parts[1])}
		if len(parts) == 3 {
			if m := hintRe.FindStringSubmatch(parts[2]); m != nil {
				e.Hint, e.HasHint = tier.Parse(m[1])
			}
		}
		out = append(out, e)
	}
	return out
}

// HourStart buckets a wall-clock instant to the start of its UTC hour.
func HourStart(now time.Time) int64 {
	return now.Unix() / 3600 * 3600
}

// Current returns the entry whose timestamp equals the start of the
// current hour. Timestamps are expected unique; on a duplicate the
// first entry in scan order wins.
func Current(entries []Entry, now time.Time) (Entry, error) {
	hour := HourStart(now)
	for _, e := range entries {
		if e.Timestamp == hour {
			return e, nil
		}
	}
	return Entry{}, ErrNotFound
}

// Upcoming returns entries after the current hour start, ascending by
// timestamp. With inclusive set, an entry for the current hour itself
// is kept too; the on-demand query path uses that so "next S tiers"
// also surfaces a qualifying current hour.
func Upcoming(entries []Entry, now time.Time, inclusive bool) []Entry {
	hour := HourStart(now)
	var out []Entry
	for _, e := range entries {
		if e.Timestamp > hour || (inclusive && e.Timestamp == hour) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out
}
