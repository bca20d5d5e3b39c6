package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/arbywatch/arbywatch/internal/arbitration"
	"github.com/arbywatch/arbywatch/internal/channelstore"
	"github.com/arbywatch/arbywatch/internal/logging"
	"github.com/arbywatch/arbywatch/internal/tier"
)

// registerAdmin mounts the on-demand query and channel-config
// endpoints next to metrics and health. Queries run their own
// pipeline invocation, independent of the hourly tick.
func registerAdmin(mux *http.ServeMux, svc *arbitration.Service, store channelstore.Store, target tier.Tier, futureCount int, log *logging.Logger) {
	mux.HandleFunc("/arbitration", recovered(log, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, svc.Current(r.Context(), "query"))
	}))

	mux.HandleFunc("/arbitration/upcoming", recovered(log, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		// Inclusive scan: a qualifying current hour counts too.
		out := svc.UpcomingAtTier(r.Context(), target, futureCount, true)
		if out == nil {
			out = []arbitration.Future{}
		}
		writeJSON(w, out)
	}))

	mux.HandleFunc("/config/channel", recovered(log, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			id, err := store.ChannelID(r.Context())
			if errors.Is(err, channelstore.ErrNotConfigured) {
				http.Error(w, "no channel configured", http.StatusNotFound)
				return
			}
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			writeJSON(w, map[string]int64{"channel_id": id})
		case http.MethodPut:
			var body struct {
				ChannelID int64 `json:"channel_id"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ChannelID == 0 {
				http.Error(w, "expected {\"channel_id\": <non-zero id>}", http.StatusBadRequest)
				return
			}
			if err := store.SetChannelID(r.Context(), body.ChannelID); err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			log.Infow("channel configured", "channel_id", body.ChannelID)
			writeJSON(w, map[string]int64{"channel_id": body.ChannelID})
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	}))
}

// recovered reports a handler panic to the requester instead of
// letting it take the process down.
func recovered(log *logging.Logger, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Errorw("admin handler panic", "path", r.URL.Path, "panic", rec)
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
		}()
		h(w, r)
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
