// Package tierhint pulls the embedded tier marker out of the HTML
// schedule page. The page lists one row per hour tagged "HH00 •" with
// a "(X tier)" suffix; the curated classifier stays authoritative and
// this only serves as a cross-check signal.
package tierhint

import (
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/arbywatch/arbywatch/internal/tier"
)

var hintRe = regexp.MustCompile(`(?i)\(([A-F])\s+tier\)`)

// Extract scans the page text for the current UTC hour's row and
// returns its tier marker, if any.
func Extract(page string, now time.Time) (tier.Tier, bool) {
	hourTag := fmt.Sprintf("%02d00", now.UTC().Hour())
	for _, line := range textLines(page) {
		if !strings.Contains(line, hourTag+" •") && !strings.Contains(line, hourTag+"•") {
			continue
		}
		if m := hintRe.FindStringSubmatch(line); m != nil {
			return tier.Parse(m[1])
		}
	}
	return tier.Unknown, false
}

// textLines flattens the document to its text nodes, one line per
// node, skipping script and style bodies.
func textLines(page string) []string {
	z := html.NewTokenizer(strings.NewReader(page))
	var out []string
	skip := 0
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if z.Err() == io.EOF {
				return out
			}
			return out
		}
		switch tt {
		case html.StartTagToken:
			t := z.Token()
			if t.Data == "script" || t.Data == "style" {
				skip++
			}
		case html.EndTagToken:
			t := z.Token()
			if (t.Data == "script" || t.Data == "style") && skip > 0 {
				skip--
			}
		case html.TextToken:
			if skip > 0 {
				continue
			}
			if s := strings.TrimSpace(z.Token().Data); s != "" {
				out = append(out, s)
			}
		}
	}
}
