package arbitration

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/arbywatch/arbywatch/internal/fetch"
	"github.com/arbywatch/arbywatch/internal/logging"
	"github.com/arbywatch/arbywatch/internal/tier"
)

var testNow = time.Unix(1700326800, 0) // hour-aligned

const hourStart = int64(1700326800)

func newTestService(t *testing.T, feedBody, stateBody string) *Service {
	t.Helper()
	feedSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(feedBody))
	}))
	t.Cleanup(feedSrv.Close)
	stateSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(stateBody))
	}))
	t.Cleanup(stateSrv.Close)

	fc := fetch.New(nil, logging.NewNop(), fetch.Options{
		Attempts: 1, Delay: time.Millisecond,
		TextTimeout: 2 * time.Second, JSONTimeout: 2 * time.Second,
		RatePerSec: 1000, Burst: 1000,
	})
	svc := New(fc, feedSrv.URL, stateSrv.URL, "", logging.NewNop())
	svc.now = func() time.Time { return testNow }
	return svc
}

func TestCurrentEndToEnd(t *testing.T) {
	feedBody := fmt.Sprintf("%d,SolNodeX\n", hourStart)
	stateBody := `{"SolNodeX":{"value":"Akkad (Eris)","type":"Defense","enemy":"Infested"}}`
	svc := newTestService(t, feedBody, stateBody)

	rec := svc.Current(context.Background(), "test")
	want := Record{MapLabel: "Akkad, Eris", Faction: "Infested", MissionType: "Defense", Tier: tier.S}
	if rec != want {
		t.Errorf("Current = %+v, want %+v", rec, want)
	}
}

func TestCurrentFeedUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	fc := fetch.New(nil, logging.NewNop(), fetch.Options{
		Attempts: 1, Delay: time.Millisecond,
		TextTimeout: 2 * time.Second, JSONTimeout: 2 * time.Second,
		RatePerSec: 1000, Burst: 1000,
	})
	svc := New(fc, srv.URL, srv.URL, "", logging.NewNop())
	svc.now = func() time.Time { return testNow }

	rec := svc.Current(context.Background(), "test")
	if rec != unknownRecord() {
		t.Errorf("expected all-unknown record, got %+v", rec)
	}
}

func TestCurrentNoEntryForHour(t *testing.T) {
	feedBody := fmt.Sprintf("%d,SolNodeX\n", hourStart+3600)
	svc := newTestService(t, feedBody, `{}`)

	rec := svc.Current(context.Background(), "test")
	if rec != unknownRecord() {
		t.Errorf("expected all-unknown record, got %+v", rec)
	}
}

func TestCurrentNodeMissingFromMetadata(t *testing.T) {
	feedBody := fmt.Sprintf("%d,SolNodeX\n", hourStart)
	svc := newTestService(t, feedBody, `{"SolNodeOther":{"value":"Casta (Ceres)"}}`)

	rec := svc.Current(context.Background(), "test")
	if rec != unknownRecord() {
		t.Errorf("expected all-unknown record, got %+v", rec)
	}
}

func TestCurrentUnresolvedMissionKeepsTierUnknown(t *testing.T) {
	feedBody := fmt.Sprintf("%d,SolNodeX\n", hourStart)
	stateBody := `{"SolNodeX":{"value":"Akkad (Eris)","enemy":"Infested"}}`
	svc := newTestService(t, feedBody, stateBody)

	rec := svc.Current(context.Background(), "test")
	if rec.MapLabel != "Akkad, Eris" || rec.Faction != "Infested" {
		t.Errorf("resolved fields lost: %+v", rec)
	}
	if rec.MissionType != Unknown {
		t.Errorf("mission type should be Unknown: %+v", rec)
	}
	if rec.Tier != tier.Unknown {
		t.Errorf("unclassifiable record must keep tier Unknown, got %v", rec.Tier)
	}
}

func TestCurrentCrossCheckKeepsCuratedTier(t *testing.T) {
	feedBody := fmt.Sprintf("%d,SolNodeX\n", hourStart)
	stateBody := `{"SolNodeX":{"value":"Akkad (Eris)","type":"Defense","enemy":"Infested"}}`
	svc := newTestService(t, feedBody, stateBody)

	hintSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hour := testNow.UTC().Hour()
		fmt.Fprintf(w, "<html><body><p>%02d00 • Akkad, Eris (D tier)</p></body></html>", hour)
	}))
	t.Cleanup(hintSrv.Close)
	svc.hintURL = hintSrv.URL

	rec := svc.Current(context.Background(), "test")
	if rec.Tier != tier.S {
		t.Errorf("curated tier must win over the page hint, got %v", rec.Tier)
	}
}

func scannerFixture(t *testing.T) *Service {
	// Five future hours; Akkad and Hydron classify S, the rest lower.
	feedBody := fmt.Sprintf(
		"%d,NodeNow\n%d,NodeA\n%d,NodeB\n%d,NodeC\n%d,NodeD\n%d,NodeE\n",
		hourStart, hourStart+3600, hourStart+7200, hourStart+10800, hourStart+14400, hourStart+18000,
	)
	stateBody := `{
		"NodeNow": {"value": "Hydron (Sedna)", "type": "Defense", "enemy": "Grineer"},
		"NodeA": {"value": "Stofler (Lua)", "type": "Defense", "enemy": "Grineer"},
		"NodeB": {"value": "Akkad (Eris)", "type": "Defense", "enemy": "Infested"},
		"NodeC": {"value": "Tessera (Venus)", "type": "Defense", "enemy": "Corpus"},
		"NodeD": {"value": "Hydron (Sedna)", "type": "Defense", "enemy": "Grineer"},
		"NodeE": {"value": "Olympus (Mars)", "type": "Disruption", "enemy": "Grineer"}
	}`
	return newTestService(t, feedBody, stateBody)
}

func TestUpcomingAtTierCollectsMatchesInOrder(t *testing.T) {
	svc := scannerFixture(t)
	got := svc.UpcomingAtTier(context.Background(), tier.S, 3, false)
	if len(got) != 2 {
		t.Fatalf("expected 2 S-tier hits, got %d: %+v", len(got), got)
	}
	if got[0].Timestamp != hourStart+7200 || got[0].MapLabel != "Akkad, Eris" {
		t.Errorf("unexpected first hit: %+v", got[0])
	}
	if got[1].Timestamp != hourStart+14400 || got[1].MapLabel != "Hydron, Sedna" {
		t.Errorf("unexpected second hit: %+v", got[1])
	}
	if got[0].Timestamp >= got[1].Timestamp {
		t.Error("hits not ascending by timestamp")
	}
}

func TestUpcomingAtTierHonorsCap(t *testing.T) {
	svc := scannerFixture(t)
	got := svc.UpcomingAtTier(context.Background(), tier.S, 1, false)
	if len(got) != 1 {
		t.Fatalf("expected the scan to stop at the cap, got %d", len(got))
	}
	if got[0].Timestamp != hourStart+7200 {
		t.Errorf("expected earliest match first, got %+v", got[0])
	}
}

func TestUpcomingAtTierInclusiveSeesCurrentHour(t *testing.T) {
	svc := scannerFixture(t)
	got := svc.UpcomingAtTier(context.Background(), tier.S, 3, true)
	if len(got) != 3 {
		t.Fatalf("expected 3 hits including the current hour, got %d", len(got))
	}
	if got[0].Timestamp != hourStart || got[0].MapLabel != "Hydron, Sedna" {
		t.Errorf("current hour should lead the inclusive scan: %+v", got[0])
	}
}

func TestUpcomingAtTierNoMatches(t *testing.T) {
	feedBody := fmt.Sprintf("%d,NodeA\n", hourStart+3600)
	stateBody := `{"NodeA":{"value":"Tessera (Venus)","type":"Defense","enemy":"Corpus"}}`
	svc := newTestService(t, feedBody, stateBody)

	if got := svc.UpcomingAtTier(context.Background(), tier.S, 3, false); len(got) != 0 {
		t.Errorf("expected no matches, got %+v", got)
	}
}

func TestUpcomingAtTierSkipsUnresolvableNodes(t *testing.T) {
	feedBody := fmt.Sprintf("%d,Ghost\n%d,NodeB\n", hourStart+3600, hourStart+7200)
	stateBody := `{"NodeB":{"value":"Akkad (Eris)","type":"Defense","enemy":"Infested"}}`
	svc := newTestService(t, feedBody, stateBody)

	got := svc.UpcomingAtTier(context.Background(), tier.S, 3, false)
	if len(got) != 1 || got[0].MapLabel != "Akkad, Eris" {
		t.Errorf("unresolvable node should be skipped: %+v", got)
	}
}
