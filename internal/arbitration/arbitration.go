// Package arbitration assembles the current-hour record and scans the
// schedule forward. One invocation is a single sequential chain of
// fetches; nothing is cached across invocations, so concurrent
// on-demand runs share no state with the hourly tick.
package arbitration

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/arbywatch/arbywatch/internal/feed"
	"github.com/arbywatch/arbywatch/internal/fetch"
	"github.com/arbywatch/arbywatch/internal/logging"
	"github.com/arbywatch/arbywatch/internal/metrics"
	"github.com/arbywatch/arbywatch/internal/tier"
	"github.com/arbywatch/arbywatch/internal/tierhint"
	"github.com/arbywatch/arbywatch/internal/worldstate"
)

const Unknown = "Unknown"

// Record is the fully-populated unit of output. Every field carries
// the Unknown sentinel when its upstream could not be resolved; a
// record is never exposed half-built.
type Record struct {
	MapLabel    string    `json:"map_label"`
	Faction     string    `json:"faction"`
	MissionType string    `json:"mission_type"`
	Tier        tier.Tier `json:"tier"`
}

// Future is a forward-scan hit: a record plus the hour it starts.
type Future struct {
	Record
	Timestamp int64 `json:"timestamp"`
}

type Service struct {
	fetch    *fetch.Client
	feedURL  string
	stateURL string
	hintURL  string
	log      *logging.Logger
	now      func() time.Time
}

func New(fc *fetch.Client, feedURL, stateURL, hintURL string, log *logging.Logger) *Service {
	return &Service{
		fetch:    fc,
		feedURL:  feedURL,
		stateURL: stateURL,
		hintURL:  hintURL,
		log:      log,
		now:      time.Now,
	}
}

func unknownRecord() Record {
	return Record{MapLabel: Unknown, Faction: Unknown, MissionType: Unknown, Tier: tier.Unknown}
}

// Current runs the whole pipeline once and always comes back with a
// complete record. Each stage degrades its own fields independently;
// no failure propagates out of this method.
func (s *Service) Current(ctx context.Context, trigger string) Record {
	tr := otel.Tracer("arbywatch/pipeline")
	ctx, span := tr.Start(ctx, "Current")
	defer span.End()
	metrics.PipelineRuns.WithLabelValues(trigger).Inc()

	result := unknownRecord()
	now := s.now()

	text, err := s.fetch.Text(ctx, s.feedURL)
	if err != nil {
		s.log.Errorw("schedule feed unavailable, reporting unknown arbitration", "err", err)
		return result
	}

	entry, err := feed.Current(feed.Parse(text), now)
	if err != nil {
		s.log.Warnw("no schedule entry for current hour", "hour_start", feed.HourStart(now))
		return result
	}
	span.SetAttributes(attribute.String("node_id", entry.NodeID))

	var nodes worldstate.Nodes
	if err := s.fetch.JSON(ctx, s.stateURL, &nodes); err != nil {
		s.log.Errorw("node metadata unavailable", "node_id", entry.NodeID, "err", err)
		return result
	}

	info, err := worldstate.Resolve(nodes, entry.NodeID)
	if err != nil {
		s.log.Warnw("node missing from metadata", "node_id", entry.NodeID)
		return result
	}

	result.MapLabel = info.NodeName + ", " + info.Planet
	result.Faction = info.Faction
	result.MissionType = info.MissionType
	if info.MissionType != worldstate.Unknown {
		result.Tier = tier.Classify(info.MissionType, result.MapLabel)
	}

	s.crossCheck(ctx, now, result)
	return result
}

// crossCheck compares the curated classification against the tier
// marker on the HTML schedule page. The curated result always wins; a
// mismatch is only surfaced for operators.
func (s *Service) crossCheck(ctx context.Context, now time.Time, rec Record) {
	if s.hintURL == "" || rec.Tier == tier.Unknown {
		return
	}
	page, err := s.fetch.Text(ctx, s.hintURL)
	if err != nil {
		s.log.Warnw("tier hint page unavailable, skipping cross-check", "err", err)
		return
	}
	hint, ok := tierhint.Extract(page, now)
	if !ok {
		return
	}
	if hint != rec.Tier {
		metrics.TierHintMismatches.Inc()
		s.log.Warnw("curated tier disagrees with schedule page hint",
			"map", rec.MapLabel,
			"curated", rec.Tier.String(),
			"hint", hint.String(),
		)
	}
}

// UpcomingAtTier scans the schedule forward and collects the next
// occurrences classified at the target tier, up to limit. One feed
// fetch and one metadata fetch serve the whole scan. An empty result
// is a valid outcome. With inclusive set the current hour competes
// too (on-demand query variant).
func (s *Service) UpcomingAtTier(ctx context.Context, target tier.Tier, limit int, inclusive bool) []Future {
	tr := otel.Tracer("arbywatch/pipeline")
	ctx, span := tr.Start(ctx, "UpcomingAtTier")
	defer span.End()
	span.SetAttributes(attribute.String("target", target.String()))

	text, err := s.fetch.Text(ctx, s.feedURL)
	if err != nil {
		s.log.Errorw("schedule feed unavailable, skipping forward scan", "err", err)
		return nil
	}
	var nodes worldstate.Nodes
	if err := s.fetch.JSON(ctx, s.stateURL, &nodes); err != nil {
		s.log.Errorw("node metadata unavailable, skipping forward scan", "err", err)
		return nil
	}

	var out []Future
	for _, e := range feed.Upcoming(feed.Parse(text), s.now(), inclusive) {
		info, err := worldstate.Resolve(nodes, e.NodeID)
		if err != nil {
			continue
		}
		label := info.NodeName + ", " + info.Planet
		if info.MissionType == worldstate.Unknown {
			continue
		}
		if tier.Classify(info.MissionType, label) != target {
			continue
		}
		out = append(out, Future{
			Record: Record{
				MapLabel:    label,
				Faction:     info.Faction,
				MissionType: info.MissionType,
				Tier:        target,
			},
			Timestamp: e.Timestamp,
		})
		if len(out) >= limit {
			break
		}
	}
	return out
}
