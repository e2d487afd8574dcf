// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/lensfolio/folio-admin/internal/model"
	"github.com/lensfolio/folio-admin/internal/render"
	"github.com/lensfolio/folio-admin/internal/service"
)

// EventLevels and EventCategories are the filter options of the activity page.
var (
	EventLevels     = []string{model.EventLevelInfo, model.EventLevelWarning, model.EventLevelError}
	EventCategories = []string{
		model.EventCategoryAuth,
		model.EventCategoryProduct,
		model.EventCategoryUser,
		model.EventCategoryStaging,
		model.EventCategoryCache,
		model.EventCategorySystem,
	}
)

// EventsHandler handles the activity log page.
type EventsHandler struct {
	renderer *render.Renderer
	events   *service.EventService
}

// NewEventsHandler creates a new EventsHandler.
func NewEventsHandler(renderer *render.Renderer, events *service.EventService) *EventsHandler {
	return &EventsHandler{
		renderer: renderer,
		events:   events,
	}
}

// EventRow is an event prepared for display.
type EventRow struct {
	model.Event
	Details     string // Formatted metadata as readable text
	DetailsLong bool
}

// detailsLengthThreshold is the max chars before details are collapsible
const detailsLengthThreshold = 80

// EventsListData holds data for the events list template.
type EventsListData struct {
	Events     []EventRow
	Level      string
	Category   string
	Levels     []string
	Categories []string
	Limit      int
	Total      int64
}

// List handles GET /events.
func (h *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	level := r.URL.Query().Get("level")
	if !slices.Contains(EventLevels, level) {
		level = ""
	}
	category := r.URL.Query().Get("category")
	if !slices.Contains(EventCategories, category) {
		category = ""
	}

	data := render.TemplateData{Title: "Activity"}
	list := EventsListData{
		Level:      level,
		Category:   category,
		Levels:     EventLevels,
		Categories: EventCategories,
		Limit:      service.DefaultEventListLimit,
	}

	events, err := h.events.ListRecent(r.Context(), level, category, service.DefaultEventListLimit)
	if err != nil {
		// Info, not Error: a broken events table must not feed itself.
		slog.Info("failed to list activity events", "error", err)
		data.Flash = MsgFetchEvents
		data.FlashType = render.FlashError
	}
	if err == nil {
		total, cerr := h.events.Count(r.Context(), level, category)
		if cerr != nil {
			slog.Info("failed to count activity events", "error", cerr)
			total = int64(len(events))
		}
		list.Total = total
	}
	for _, e := range events {
		details := formatMetadata(e.Metadata)
		list.Events = append(list.Events, EventRow{
			Event:       e,
			Details:     details,
			DetailsLong: len(details) > detailsLengthThreshold,
		})
	}

	data.Data = list
	renderPage(w, r, h.renderer, http.StatusOK, TmplEvents, data)
}

// formatMetadata converts JSON metadata to readable text format.
// Example: {"browser":"Chrome","os":"Linux"} -> "browser: Chrome, os: Linux"
func formatMetadata(metadata string) string {
	if metadata == "" || metadata == "{}" {
		return ""
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(metadata), &data); err != nil {
		return metadata
	}
	if len(data) == 0 {
		return ""
	}

	keys := make([]string, 0, len(data))
	for key := range data {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		var strValue string
		switch v := data[key].(type) {
		case string:
			strValue = v
		case float64:
			strValue = strconv.FormatFloat(v, 'f', -1, 64)
		case bool:
			strValue = strconv.FormatBool(v)
		default:
			if b, err := json.Marshal(v); err == nil {
				strValue = string(b)
			}
		}
		parts = append(parts, key+": "+strValue)
	}

	return strings.Join(parts, ", ")
}
