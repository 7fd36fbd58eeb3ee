// Package server exposes the event channel as a synchronous REST facade:
// every mutating endpoint validates its input, reads the cached snapshot,
// and blocks on one or more acknowledged channel commands before answering.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/kumabridgehq/bridge/internal/bulk"
	"github.com/kumabridgehq/bridge/internal/filter"
	"github.com/kumabridgehq/bridge/internal/health"
	"github.com/kumabridgehq/bridge/internal/kuma"
	"github.com/kumabridgehq/bridge/internal/metrics"
	"github.com/kumabridgehq/bridge/pkg/types"
)

// Channel commands the facade issues. Names are owned by the Uptime Kuma
// protocol.
const (
	cmdAddMonitor         = "add"
	cmdEditMonitor        = "editMonitor"
	cmdPauseMonitor       = "pauseMonitor"
	cmdResumeMonitor      = "resumeMonitor"
	cmdDeleteMonitor      = "deleteMonitor"
	cmdAddNotification    = "addNotification"
	cmdDeleteNotification = "deleteNotification"
	cmdTestNotification   = "testNotification"
	cmdGetSettings        = "getSettings"
)

const msgNoMatch = "No monitors found matching criteria"

// ChannelClient is the facade's view of the event-channel client.
type ChannelClient interface {
	Connect(ctx context.Context) error
	Login(ctx context.Context) error
	Connected() bool
	Authenticated() bool
	Call(ctx context.Context, event string, payload any, timeout time.Duration) (kuma.Ack, error)
	Monitors() map[int64]types.Monitor
	MonitorDocument(id int64) (map[string]any, bool)
	Notifications() map[int64]types.Notification
	NotificationDocument(id int64) (map[string]any, bool)
	MonitorsUpdatedAt() time.Time
}

// Config controls HTTP server settings.
type Config struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	// CallTimeout is the acknowledgement budget passed to every channel
	// call; zero selects the client default.
	CallTimeout time.Duration
	// Pace is the delay between consecutive commands of a batch.
	Pace time.Duration
}

// Dependencies holds external collaborators required by the server.
type Dependencies struct {
	Logger  *log.Logger
	Client  ChannelClient
	Metrics *metrics.Store
	Health  *health.Checker
	Runner  *bulk.Runner
	Now     func() time.Time
}

// Server wraps http.Server for convenience.
type Server struct {
	*http.Server
	cfg  Config
	deps Dependencies
}

// New constructs the REST facade.
func New(cfg Config, deps Dependencies) *Server {
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:5001"
	}
	if deps.Logger == nil {
		deps.Logger = log.New(io.Discard, "", 0)
	}
	if deps.Runner == nil {
		deps.Runner = bulk.NewRunner(cfg.Pace)
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Health == nil && deps.Client != nil {
		deps.Health = health.NewChecker(deps.Client, 0)
	}

	r := mux.NewRouter()
	r.Use(requestIDMiddleware(deps.Logger))

	r.HandleFunc("/health", healthHandler(cfg, deps)).Methods(http.MethodGet)
	r.HandleFunc("/connect", connectHandler(cfg, deps)).Methods(http.MethodPost)

	r.HandleFunc("/monitors", listMonitorsHandler(cfg, deps)).Methods(http.MethodGet)
	r.HandleFunc("/monitors", createMonitorHandler(cfg, deps)).Methods(http.MethodPost)
	r.HandleFunc("/monitors/bulk", bulkCreateHandler(cfg, deps)).Methods(http.MethodPost)
	r.HandleFunc("/monitors/bulk-update", bulkUpdateHandler(cfg, deps)).Methods(http.MethodPut)
	r.HandleFunc("/monitors/bulk-notifications", bulkNotificationsHandler(cfg, deps)).Methods(http.MethodPut)
	r.HandleFunc("/monitors/set-notifications", setNotificationsHandler(cfg, deps)).Methods(http.MethodPut)
	r.HandleFunc("/monitors/bulk-control", bulkControlHandler(cfg, deps)).Methods(http.MethodPost)
	r.HandleFunc("/monitors/{monitor_id:[0-9]+}/pause", singleMonitorHandler(cfg, deps, cmdPauseMonitor, "Monitor paused successfully")).Methods(http.MethodPost)
	r.HandleFunc("/monitors/{monitor_id:[0-9]+}/resume", singleMonitorHandler(cfg, deps, cmdResumeMonitor, "Monitor resumed successfully")).Methods(http.MethodPost)
	r.HandleFunc("/monitors/{monitor_id:[0-9]+}", singleMonitorHandler(cfg, deps, cmdDeleteMonitor, "Monitor deleted successfully")).Methods(http.MethodDelete)

	r.HandleFunc("/notifications", listNotificationsHandler(cfg, deps)).Methods(http.MethodGet)
	r.HandleFunc("/notifications", createNotificationHandler(cfg, deps)).Methods(http.MethodPost)
	r.HandleFunc("/notifications/{notification_id:[0-9]+}", deleteNotificationHandler(cfg, deps)).Methods(http.MethodDelete)
	r.HandleFunc("/notifications/{notification_id:[0-9]+}/test", testNotificationHandler(cfg, deps)).Methods(http.MethodPost)

	r.HandleFunc("/settings", settingsHandler(cfg, deps)).Methods(http.MethodGet)

	s := &http.Server{
		Addr:         cfg.Addr,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return &Server{Server: s, cfg: cfg, deps: deps}
}

func healthHandler(cfg Config, deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ready := false
		var reasons []string
		if deps.Health != nil {
			ready, reasons = deps.Health.Ready(deps.Now())
		}
		writeJSON(w, deps.Logger, http.StatusOK, map[string]any{
			"status":        "ok",
			"connected":     deps.Client.Connected(),
			"authenticated": deps.Client.Authenticated(),
			"ready":         ready,
			"reasons":       reasons,
			"metrics":       deps.Metrics.Snapshot(),
		})
	}
}

func connectHandler(cfg Config, deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Client.Connect(r.Context()); err != nil {
			deps.Logger.Printf("reconnect failed: %v", err)
			writeJSON(w, deps.Logger, http.StatusInternalServerError, map[string]any{
				"connected":     false,
				"authenticated": false,
			})
			return
		}
		authErr := deps.Client.Login(r.Context())
		if authErr != nil {
			deps.Logger.Printf("login failed: %v", authErr)
		}
		writeJSON(w, deps.Logger, http.StatusOK, map[string]any{
			"connected":     true,
			"authenticated": authErr == nil,
		})
	}
}

func listMonitorsHandler(cfg Config, deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireAuth(w, deps) {
			return
		}
		params, err := bodyFilters(r)
		if err != nil {
			errorJSON(w, deps.Logger, http.StatusBadRequest, err.Error())
			return
		}
		queryFilters(r, &params)

		monitors := deps.Client.Monitors()
		if params.Empty() {
			docs := make(map[string]any, len(monitors))
			for _, id := range sortedMonitorIDs(monitors) {
				if doc, ok := deps.Client.MonitorDocument(id); ok {
					docs[strconv.FormatInt(id, 10)] = doc
				}
			}
			writeJSON(w, deps.Logger, http.StatusOK, map[string]any{
				"monitors": docs,
				"count":    len(docs),
			})
			return
		}

		matched, err := filter.Match(monitors, params)
		if err != nil {
			errorJSON(w, deps.Logger, http.StatusBadRequest, err.Error())
			return
		}
		docs := make([]any, 0, len(matched))
		for _, monitor := range matched {
			if doc, ok := deps.Client.MonitorDocument(monitor.ID); ok {
				docs = append(docs, doc)
			}
		}
		writeJSON(w, deps.Logger, http.StatusOK, map[string]any{
			"monitors": docs,
			"count":    len(docs),
		})
	}
}

func createMonitorHandler(cfg Config, deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireAuth(w, deps) {
			return
		}
		var doc map[string]any
		if err := json.NewDecoder(r.Body).Decode(&doc); err != nil || len(doc) == 0 {
			errorJSON(w, deps.Logger, http.StatusBadRequest, "No monitor data provided")
			return
		}
		applyMonitorDefaults(doc)

		ack, err := deps.Client.Call(r.Context(), cmdAddMonitor, doc, cfg.CallTimeout)
		if err != nil {
			writeJSON(w, deps.Logger, callErrorStatus(err), map[string]any{
				"success": false,
				"error":   err.Error(),
			})
			return
		}
		if !ack.OK {
			writeJSON(w, deps.Logger, http.StatusBadRequest, map[string]any{
				"success": false,
				"error":   ackError(ack),
			})
			return
		}
		writeJSON(w, deps.Logger, http.StatusOK, map[string]any{
			"success":   true,
			"monitorID": ack.MonitorID,
			"message":   "Monitor created successfully",
		})
	}
}

func bulkCreateHandler(cfg Config, deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireAuth(w, deps) {
			return
		}
		var docs []map[string]any
		if err := json.NewDecoder(r.Body).Decode(&docs); err != nil || len(docs) == 0 {
			errorJSON(w, deps.Logger, http.StatusBadRequest, "Expected array of monitor objects")
			return
		}

		summary := deps.Runner.Run(r.Context(), len(docs), func(ctx context.Context, i int) bulk.Outcome {
			doc := docs[i]
			applyMonitorDefaults(doc)
			name, _ := doc["name"].(string)
			if name == "" {
				name = "Unknown"
			}
			index := i
			outcome := bulk.Outcome{Index: &index, Name: name}

			ack, err := deps.Client.Call(ctx, cmdAddMonitor, doc, cfg.CallTimeout)
			switch {
			case err != nil:
				outcome.Error = err.Error()
			case !ack.OK:
				outcome.Error = ackError(ack)
			default:
				outcome.Success = true
				monitorID := ack.MonitorID
				outcome.MonitorID = &monitorID
			}
			return outcome
		})

		writeJSON(w, deps.Logger, http.StatusOK, summary)
	}
}

func bulkUpdateHandler(cfg Config, deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireAuth(w, deps) {
			return
		}
		params, updates, err := updateRequest(r)
		if err != nil {
			errorJSON(w, deps.Logger, http.StatusBadRequest, err.Error())
			return
		}
		if len(updates) == 0 {
			errorJSON(w, deps.Logger, http.StatusBadRequest, "No updates provided")
			return
		}

		matched, ok := matchOrReply(w, deps, params, map[string]any{"message": msgNoMatch, "updated": 0})
		if !ok {
			return
		}

		summary := runEdit(r.Context(), cfg, deps, matched, func(doc map[string]any) {
			for key, value := range updates {
				doc[key] = value
			}
		})
		writeJSON(w, deps.Logger, http.StatusOK, struct {
			bulk.Summary
			Updated int `json:"updated"`
		}{summary, summary.Successful})
	}
}

func bulkNotificationsHandler(cfg Config, deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireAuth(w, deps) {
			return
		}
		var body struct {
			Filters         filter.Params `json:"filters"`
			NotificationIDs []int64       `json:"notification_ids"`
			Action          string        `json:"action"`
		}
		if err := decodeOptionalJSON(r, &body); err != nil {
			errorJSON(w, deps.Logger, http.StatusBadRequest, err.Error())
			return
		}
		params := body.Filters
		queryFilters(r, &params)

		action := body.Action
		if v := r.URL.Query().Get("action"); v != "" {
			action = v
		}
		if action == "" {
			action = "add"
		}
		if action != "add" && action != "remove" {
			errorJSON(w, deps.Logger, http.StatusBadRequest, "Invalid action. Must be add or remove")
			return
		}

		ids := body.NotificationIDs
		if queryIDs, ok, err := queryNotificationIDs(r); err != nil {
			errorJSON(w, deps.Logger, http.StatusBadRequest, err.Error())
			return
		} else if ok {
			ids = queryIDs
		}
		if len(ids) == 0 {
			errorJSON(w, deps.Logger, http.StatusBadRequest, "No notification IDs provided")
			return
		}

		matched, ok := matchOrReply(w, deps, params, map[string]any{"message": msgNoMatch, "updated": 0})
		if !ok {
			return
		}

		summary := runEdit(r.Context(), cfg, deps, matched, func(doc map[string]any) {
			list := notificationList(doc)
			for _, id := range ids {
				key := strconv.FormatInt(id, 10)
				if action == "add" {
					list[key] = true
				} else {
					delete(list, key)
				}
			}
		})
		writeJSON(w, deps.Logger, http.StatusOK, struct {
			bulk.Summary
			Action string `json:"action"`
		}{summary, action})
	}
}

func setNotificationsHandler(cfg Config, deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireAuth(w, deps) {
			return
		}
		var body struct {
			Filters         filter.Params `json:"filters"`
			NotificationIDs *[]int64      `json:"notification_ids"`
		}
		if err := decodeOptionalJSON(r, &body); err != nil {
			errorJSON(w, deps.Logger, http.StatusBadRequest, err.Error())
			return
		}
		params := body.Filters
		queryFilters(r, &params)

		var ids []int64
		switch queryIDs, ok, err := queryNotificationIDs(r); {
		case err != nil:
			errorJSON(w, deps.Logger, http.StatusBadRequest, err.Error())
			return
		case ok:
			ids = queryIDs
		case body.NotificationIDs != nil:
			ids = *body.NotificationIDs
		default:
			errorJSON(w, deps.Logger, http.StatusBadRequest,
				"notification_ids parameter is required (use empty array [] to clear all)")
			return
		}

		matched, ok := matchOrReply(w, deps, params, map[string]any{"message": msgNoMatch, "updated": 0})
		if !ok {
			return
		}

		summary := runEdit(r.Context(), cfg, deps, matched, func(doc map[string]any) {
			list := map[string]any{}
			for _, id := range ids {
				list[strconv.FormatInt(id, 10)] = true
			}
			doc["notificationIDList"] = list
		})
		if ids == nil {
			ids = []int64{}
		}
		writeJSON(w, deps.Logger, http.StatusOK, struct {
			bulk.Summary
			NotificationsSet []int64 `json:"notifications_set"`
		}{summary, ids})
	}
}

func bulkControlHandler(cfg Config, deps Dependencies) http.HandlerFunc {
	actions := map[string]string{
		"pause":  cmdPauseMonitor,
		"resume": cmdResumeMonitor,
		"delete": cmdDeleteMonitor,
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireAuth(w, deps) {
			return
		}
		var body struct {
			Filters filter.Params `json:"filters"`
			Action  string        `json:"action"`
		}
		if err := decodeOptionalJSON(r, &body); err != nil {
			errorJSON(w, deps.Logger, http.StatusBadRequest, err.Error())
			return
		}
		params := body.Filters
		queryFilters(r, &params)

		action := body.Action
		if action == "" {
			action = r.URL.Query().Get("action")
		}
		command, ok := actions[action]
		if !ok {
			errorJSON(w, deps.Logger, http.StatusBadRequest, "Invalid action. Must be pause, resume, or delete")
			return
		}

		matched, ok := matchOrReply(w, deps, params, map[string]any{"message": msgNoMatch, "processed": 0})
		if !ok {
			return
		}

		summary := deps.Runner.Run(r.Context(), len(matched), func(ctx context.Context, i int) bulk.Outcome {
			monitor := matched[i]
			outcome := bulk.Outcome{ID: monitor.ID, Name: monitor.Name}
			ack, err := deps.Client.Call(ctx, command, monitor.ID, cfg.CallTimeout)
			switch {
			case err != nil:
				outcome.Error = err.Error()
			case !ack.OK:
				outcome.Error = ackError(ack)
			default:
				outcome.Success = true
			}
			return outcome
		})
		writeJSON(w, deps.Logger, http.StatusOK, struct {
			bulk.Summary
			Action string `json:"action"`
		}{summary, action})
	}
}

func singleMonitorHandler(cfg Config, deps Dependencies, command, successMsg string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireAuth(w, deps) {
			return
		}
		id, err := strconv.ParseInt(mux.Vars(r)["monitor_id"], 10, 64)
		if err != nil {
			errorJSON(w, deps.Logger, http.StatusBadRequest, "invalid monitor id")
			return
		}
		respondCommand(w, r, cfg, deps, command, id, successMsg)
	}
}

func listNotificationsHandler(cfg Config, deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireAuth(w, deps) {
			return
		}
		notifications := deps.Client.Notifications()

		if r.URL.Query().Get("simple") == "true" {
			simple := make([]map[string]any, 0, len(notifications))
			for _, id := range sortedNotificationIDs(notifications) {
				notification := notifications[id]
				kind := notification.Type
				if kind == "" {
					kind = "unknown"
				}
				simple = append(simple, map[string]any{
					"id":     notification.ID,
					"name":   notification.Name,
					"type":   kind,
					"active": notification.Active,
				})
			}
			writeJSON(w, deps.Logger, http.StatusOK, map[string]any{
				"notifications": simple,
				"count":         len(simple),
				"usage_tip":     "Use the ID numbers in notification_ids for bulk operations",
			})
			return
		}

		docs := make(map[string]any, len(notifications))
		for _, id := range sortedNotificationIDs(notifications) {
			if doc, ok := deps.Client.NotificationDocument(id); ok {
				docs[strconv.FormatInt(id, 10)] = doc
			}
		}
		writeJSON(w, deps.Logger, http.StatusOK, map[string]any{
			"notifications": docs,
			"count":         len(docs),
		})
	}
}

func createNotificationHandler(cfg Config, deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireAuth(w, deps) {
			return
		}
		var doc map[string]any
		if err := json.NewDecoder(r.Body).Decode(&doc); err != nil || len(doc) == 0 {
			errorJSON(w, deps.Logger, http.StatusBadRequest, "No notification data provided")
			return
		}

		payload := map[string]any{
			"notification":   doc,
			"notificationID": nil,
		}
		ack, err := deps.Client.Call(r.Context(), cmdAddNotification, payload, cfg.CallTimeout)
		if err != nil {
			writeJSON(w, deps.Logger, callErrorStatus(err), map[string]any{
				"success": false,
				"error":   err.Error(),
			})
			return
		}
		if !ack.OK {
			writeJSON(w, deps.Logger, http.StatusBadRequest, map[string]any{
				"success": false,
				"error":   ackError(ack),
			})
			return
		}
		writeJSON(w, deps.Logger, http.StatusOK, map[string]any{
			"success": true,
			"id":      ack.ID,
			"message": "Notification created successfully",
		})
	}
}

func deleteNotificationHandler(cfg Config, deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireAuth(w, deps) {
			return
		}
		id, err := strconv.ParseInt(mux.Vars(r)["notification_id"], 10, 64)
		if err != nil {
			errorJSON(w, deps.Logger, http.StatusBadRequest, "invalid notification id")
			return
		}
		respondCommand(w, r, cfg, deps, cmdDeleteNotification, id, "Notification deleted successfully")
	}
}

func testNotificationHandler(cfg Config, deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireAuth(w, deps) {
			return
		}
		id, err := strconv.ParseInt(mux.Vars(r)["notification_id"], 10, 64)
		if err != nil {
			errorJSON(w, deps.Logger, http.StatusBadRequest, "invalid notification id")
			return
		}
		doc, ok := deps.Client.NotificationDocument(id)
		if !ok {
			errorJSON(w, deps.Logger, http.StatusNotFound, "Notification not found")
			return
		}
		respondCommand(w, r, cfg, deps, cmdTestNotification, doc, "Notification test sent successfully")
	}
}

func settingsHandler(cfg Config, deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireAuth(w, deps) {
			return
		}
		ack, err := deps.Client.Call(r.Context(), cmdGetSettings, nil, cfg.CallTimeout)
		if err != nil {
			writeJSON(w, deps.Logger, callErrorStatus(err), map[string]any{
				"success": false,
				"error":   "Failed to retrieve settings",
			})
			return
		}
		if !ack.OK {
			writeJSON(w, deps.Logger, http.StatusBadRequest, map[string]any{
				"success": false,
				"error":   "Failed to retrieve settings",
			})
			return
		}
		writeJSON(w, deps.Logger, http.StatusOK, map[string]any{
			"success":  true,
			"settings": json.RawMessage(ack.Raw),
		})
	}
}

// respondCommand issues one acknowledged channel command and writes the
// standard single-operation response.
func respondCommand(w http.ResponseWriter, r *http.Request, cfg Config, deps Dependencies, command string, payload any, successMsg string) {
	ack, err := deps.Client.Call(r.Context(), command, payload, cfg.CallTimeout)
	if err != nil {
		writeJSON(w, deps.Logger, callErrorStatus(err), map[string]any{
			"success": false,
			"error":   err.Error(),
		})
		return
	}
	if !ack.OK {
		writeJSON(w, deps.Logger, http.StatusBadRequest, map[string]any{
			"success": false,
			"error":   ackError(ack),
		})
		return
	}
	writeJSON(w, deps.Logger, http.StatusOK, map[string]any{
		"success": true,
		"message": successMsg,
	})
}

// runEdit mutates the raw document of every matched monitor through mutate
// and issues an edit command per monitor, paced by the runner.
func runEdit(ctx context.Context, cfg Config, deps Dependencies, matched []types.Monitor, mutate func(doc map[string]any)) bulk.Summary {
	return deps.Runner.Run(ctx, len(matched), func(ctx context.Context, i int) bulk.Outcome {
		monitor := matched[i]
		outcome := bulk.Outcome{ID: monitor.ID, Name: monitor.Name}

		doc, ok := deps.Client.MonitorDocument(monitor.ID)
		if !ok {
			outcome.Error = "monitor no longer present in snapshot"
			return outcome
		}
		mutate(doc)

		ack, err := deps.Client.Call(ctx, cmdEditMonitor, doc, cfg.CallTimeout)
		switch {
		case err != nil:
			outcome.Error = err.Error()
		case !ack.OK:
			outcome.Error = ackError(ack)
		default:
			outcome.Success = true
		}
		return outcome
	})
}

// matchOrReply filters the snapshot, answering directly when the filters are
// malformed or nothing matches.
func matchOrReply(w http.ResponseWriter, deps Dependencies, params filter.Params, emptyReply map[string]any) ([]types.Monitor, bool) {
	matched, err := filter.Match(deps.Client.Monitors(), params)
	if err != nil {
		errorJSON(w, deps.Logger, http.StatusBadRequest, err.Error())
		return nil, false
	}
	if len(matched) == 0 {
		writeJSON(w, deps.Logger, http.StatusOK, emptyReply)
		return nil, false
	}
	return matched, true
}

// updateRequest decodes the bulk-update body. Updates come from the
// "updates" object when present; otherwise every top-level key except
// "filters" is treated as an update, matching the loose shape the endpoint
// has always accepted.
func updateRequest(r *http.Request) (filter.Params, map[string]any, error) {
	var raw map[string]json.RawMessage
	var params filter.Params
	if err := decodeOptionalJSON(r, &raw); err != nil {
		return params, nil, err
	}

	if data, ok := raw["filters"]; ok {
		if err := json.Unmarshal(data, &params); err != nil {
			return params, nil, errors.New("invalid filters object")
		}
	}

	updates := map[string]any{}
	if data, ok := raw["updates"]; ok {
		if err := json.Unmarshal(data, &updates); err != nil {
			return params, nil, errors.New("invalid updates object")
		}
	} else {
		for key, data := range raw {
			if key == "filters" {
				continue
			}
			var value any
			if err := json.Unmarshal(data, &value); err != nil {
				return params, nil, errors.New("invalid update value")
			}
			updates[key] = value
		}
	}

	queryFilters(r, &params)
	return params, updates, nil
}

// applyMonitorDefaults fills the fields the create endpoints default when
// the caller omits them.
func applyMonitorDefaults(doc map[string]any) {
	setDefault(doc, "type", "http")
	setDefault(doc, "method", "GET")
	setDefault(doc, "interval", 300)
	setDefault(doc, "maxretries", 3)
	setDefault(doc, "retryInterval", 60)
	setDefault(doc, "timeout", 30)
	setDefault(doc, "active", true)
	setDefault(doc, "accepted_statuscodes", []string{"200-299"})
}

func setDefault(doc map[string]any, key string, value any) {
	if _, ok := doc[key]; !ok {
		doc[key] = value
	}
}

// notificationList returns the document's notification assignment map,
// installing an empty one when absent or malformed.
func notificationList(doc map[string]any) map[string]any {
	if current, ok := doc["notificationIDList"].(map[string]any); ok {
		return current
	}
	fresh := map[string]any{}
	doc["notificationIDList"] = fresh
	return fresh
}

// bodyFilters decodes the optional {"filters": {...}} body shape.
func bodyFilters(r *http.Request) (filter.Params, error) {
	var body struct {
		Filters filter.Params `json:"filters"`
	}
	if err := decodeOptionalJSON(r, &body); err != nil {
		return filter.Params{}, err
	}
	return body.Filters, nil
}

// queryFilters overlays query parameters onto params; query values take
// precedence over body filters.
func queryFilters(r *http.Request, p *filter.Params) {
	q := r.URL.Query()
	if v := q.Get("group"); v != "" {
		p.Group = v
	}
	if v := q.Get("tag"); v != "" {
		p.Tag = v
	}
	if v := q.Get("name_pattern"); v != "" {
		p.NamePattern = v
	}
	if v := q.Get("type"); v != "" {
		p.Type = v
	}
	if q.Get("include_groups") == "true" {
		p.IncludeGroups = true
	}
}

// queryNotificationIDs parses the comma-separated notification_ids query
// parameter. The second return reports whether the parameter was present.
func queryNotificationIDs(r *http.Request) ([]int64, bool, error) {
	raw := r.URL.Query().Get("notification_ids")
	if raw == "" {
		return nil, false, nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, part := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return nil, false, errors.New("invalid notification_ids query parameter")
		}
		ids = append(ids, id)
	}
	return ids, true, nil
}

// decodeOptionalJSON decodes the request body when one is present. An
// absent body leaves v untouched: filters carried in bodies are optional
// everywhere. A body that is present but unparseable is an error; dropping
// it would fall back to an empty filter and widen bulk mutations.
func decodeOptionalJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return errors.New("Invalid JSON body")
	}
	return nil
}

func requireAuth(w http.ResponseWriter, deps Dependencies) bool {
	if deps.Client.Authenticated() {
		return true
	}
	errorJSON(w, deps.Logger, http.StatusUnauthorized, "Not connected or authenticated")
	return false
}

func callErrorStatus(err error) int {
	switch {
	case errors.Is(err, kuma.ErrCallTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, kuma.ErrNotAuthenticated):
		return http.StatusUnauthorized
	default:
		return http.StatusBadGateway
	}
}

func ackError(ack kuma.Ack) string {
	if ack.Msg != "" {
		return ack.Msg
	}
	return "Unknown error"
}

func writeJSON(w http.ResponseWriter, logger *log.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Printf("encode response failed: %v", err)
	}
}

func errorJSON(w http.ResponseWriter, logger *log.Logger, status int, msg string) {
	writeJSON(w, logger, status, map[string]any{"error": msg})
}

func sortedMonitorIDs(monitors map[int64]types.Monitor) []int64 {
	ids := make([]int64, 0, len(monitors))
	for id := range monitors {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func sortedNotificationIDs(notifications map[int64]types.Notification) []int64 {
	ids := make([]int64, 0, len(notifications))
	for id := range notifications {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
