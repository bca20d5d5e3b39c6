// Package discord is the chat delivery boundary. It renders a record
// into an embed and posts it to the configured channel. Failures stop
// here: they are logged and counted, never fed back into the
// pipeline.
package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/arbywatch/arbywatch/internal/arbitration"
	"github.com/arbywatch/arbywatch/internal/logging"
	"github.com/arbywatch/arbywatch/internal/metrics"
)

const (
	defaultAPI   = "https://discord.com/api/v10"
	embedColor   = 0x00FF00
	thumbnailURL = "https://static.wikia.nocookie.net/warframe/images/3/3e/ArbitersOfHexisSigil.png"
)

type Client struct {
	hc    *http.Client
	token string
	api   string
	log   *logging.Logger
	// sent remembers which hours were already announced, so the
	// startup run and a tick landing on the same hour post once.
	sent *expirable.LRU[int64, struct{}]
}

func New(token string, hc *http.Client, log *logging.Logger) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		hc:    hc,
		token: token,
		api:   defaultAPI,
		log:   log,
		sent:  expirable.NewLRU[int64, struct{}](8, nil, 2*time.Hour),
	}
}

// Notify delivers the record for the given hour to a channel. A
// second call for an hour already announced is a no-op.
func (c *Client) Notify(ctx context.Context, channelID int64, rec arbitration.Record, upcoming []arbitration.Future, hourStart int64) {
	if _, dup := c.sent.Get(hourStart); dup {
		metrics.Notifications.WithLabelValues("deduped").Inc()
		c.log.Debugw("hour already announced, skipping", "hour_start", hourStart)
		return
	}

	if err := c.send(ctx, channelID, buildMessage(rec, upcoming)); err != nil {
		metrics.Notifications.WithLabelValues("failed").Inc()
		c.log.Errorw("notification delivery failed", "channel_id", channelID, "err", err)
		return
	}
	c.sent.Add(hourStart, struct{}{})
	metrics.Notifications.WithLabelValues("sent").Inc()
	c.log.Infow("notification sent",
		"channel_id", channelID,
		"map", rec.MapLabel,
		"tier", rec.Tier.String(),
	)
}

type message struct {
	Embeds []embed `json:"embeds"`
}

type embed struct {
	Title     string     `json:"title"`
	Color     int        `json:"color"`
	Timestamp string     `json:"timestamp"`
	Thumbnail *thumbnail `json:"thumbnail,omitempty"`
	Fields    []field    `json:"fields"`
	Footer    *footer    `json:"footer,omitempty"`
}

type thumbnail struct {
	URL string `json:"url"`
}

type field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type footer struct {
	Text string `json:"text"`
}

func buildMessage(rec arbitration.Record, upcoming []arbitration.Future) message {
	now := time.Now().UTC()
	e := embed{
		Title:     "New Arbitration",
		Color:     embedColor,
		Timestamp: now.Format(time.RFC3339),
		Thumbnail: &thumbnail{URL: thumbnailURL},
		Fields: []field{
			{Name: "Map", Value: rec.MapLabel},
			{Name: "Faction", Value: rec.Faction, Inline: true},
			{Name: "Type", Value: rec.MissionType, Inline: true},
			{Name: "Tier", Value: rec.Tier.String(), Inline: true},
		},
		Footer: &footer{Text: "Source: browse.wf | UTC • " + now.Format("15:04 UTC")},
	}
	if len(upcoming) > 0 {
		var lines []string
		for _, f := range upcoming {
			lines = append(lines, fmt.Sprintf("<t:%d:f> — %s", f.Timestamp, f.MapLabel))
		}
		e.Fields = append(e.Fields, field{
			Name:  fmt.Sprintf("Upcoming %s tier", upcoming[0].Tier.String()),
			Value: strings.Join(lines, "\n"),
		})
	}
	return message{Embeds: []embed{e}}
}

func (c *Client) send(ctx context.Context, channelID int64, msg message) error {
	body, _ := json.Marshal(msg)
	url := fmt.Sprintf("%s/channels/%d/messages", c.api, channelID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bot "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("discord returned HTTP %d", resp.StatusCode)
	}
	return nil
}
