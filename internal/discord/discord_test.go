package discord

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/arbywatch/arbywatch/internal/arbitration"
	"github.com/arbywatch/arbywatch/internal/logging"
	"github.com/arbywatch/arbywatch/internal/tier"
)

func testRecord() arbitration.Record {
	return arbitration.Record{MapLabel: "Akkad, Eris", Faction: "Infested", MissionType: "Defense", Tier: tier.S}
}

func TestNotifyPostsEmbed(t *testing.T) {
	var posts int32
	var gotPath, gotAuth string
	var gotBody message
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&posts, 1)
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New("token123", srv.Client(), logging.NewNop())
	c.api = srv.URL
	c.Notify(context.Background(), 42, testRecord(), nil, 1700326800)

	if n := atomic.LoadInt32(&posts); n != 1 {
		t.Fatalf("expected 1 post, got %d", n)
	}
	if gotPath != "/channels/42/messages" {
		t.Errorf("unexpected path %q", gotPath)
	}
	if gotAuth != "Bot token123" {
		t.Errorf("unexpected auth header %q", gotAuth)
	}
	if len(gotBody.Embeds) != 1 {
		t.Fatalf("expected 1 embed, got %d", len(gotBody.Embeds))
	}
	e := gotBody.Embeds[0]
	if len(e.Fields) != 4 {
		t.Fatalf("expected 4 fields, got %d: %+v", len(e.Fields), e.Fields)
	}
	if e.Fields[0].Value != "Akkad, Eris" || e.Fields[3].Value != "S" {
		t.Errorf("unexpected field values: %+v", e.Fields)
	}
}

func TestNotifyDedupesSameHour(t *testing.T) {
	var posts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&posts, 1)
	}))
	defer srv.Close()

	c := New("t", srv.Client(), logging.NewNop())
	c.api = srv.URL
	c.Notify(context.Background(), 1, testRecord(), nil, 1700326800)
	c.Notify(context.Background(), 1, testRecord(), nil, 1700326800)
	c.Notify(context.Background(), 1, testRecord(), nil, 1700330400)

	if n := atomic.LoadInt32(&posts); n != 2 {
		t.Errorf("expected 2 posts (second call for same hour deduped), got %d", n)
	}
}

func TestNotifyFailureDoesNotMarkHourSent(t *testing.T) {
	var posts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&posts, 1) == 1 {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New("t", srv.Client(), logging.NewNop())
	c.api = srv.URL
	c.Notify(context.Background(), 1, testRecord(), nil, 1700326800)
	// A failed delivery must not consume the hour.
	c.Notify(context.Background(), 1, testRecord(), nil, 1700326800)

	if n := atomic.LoadInt32(&posts); n != 2 {
		t.Errorf("expected a retry after failed delivery, got %d posts", n)
	}
}

func TestBuildMessageUpcomingField(t *testing.T) {
	upcoming := []arbitration.Future{
		{Record: arbitration.Record{MapLabel: "Hydron, Sedna", Tier: tier.S}, Timestamp: 1700330400},
		{Record: arbitration.Record{MapLabel: "Akkad, Eris", Tier: tier.S}, Timestamp: 1700334000},
	}
	msg := buildMessage(testRecord(), upcoming)
	e := msg.Embeds[0]
	if len(e.Fields) != 5 {
		t.Fatalf("expected 5 fields with upcoming block, got %d", len(e.Fields))
	}
	last := e.Fields[4]
	if last.Name != "Upcoming S tier" {
		t.Errorf("unexpected field name %q", last.Name)
	}
	if !strings.Contains(last.Value, "<t:1700330400:f>") || !strings.Contains(last.Value, "Hydron, Sedna") {
		t.Errorf("unexpected upcoming value %q", last.Value)
	}
}
