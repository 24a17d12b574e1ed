package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/goclaw/oembridge/pkg/api/middleware"
	"github.com/goclaw/oembridge/pkg/api/response"
	"github.com/goclaw/oembridge/pkg/logger"
	"github.com/goclaw/oembridge/pkg/notification"
	"github.com/goclaw/oembridge/pkg/storage"
)

const (
	defaultJournalLimit = 100
	maxJournalLimit     = 1000
)

// JournalHandler serves the notification journal.
type JournalHandler struct {
	journal storage.Journal
	logger  logger.Logger
}

// NewJournalHandler creates a new journal handler.
func NewJournalHandler(j storage.Journal, log logger.Logger) *JournalHandler {
	return &JournalHandler{journal: j, logger: logger.OrGlobal(log)}
}

// JournalResponse is the /api/v1/listener/journal body.
type JournalResponse struct {
	Entries []*storage.Entry `json:"entries"`
	Count   int              `json:"count"`
}

// List handles GET /api/v1/listener/journal. Query parameters:
// kind (repeatable or comma separated), since (RFC 3339) and limit.
func (h *JournalHandler) List(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	filter, err := parseJournalFilter(r)
	if err != nil {
		response.Error(w, http.StatusBadRequest, response.ErrCodeBadRequest, err.Error(), requestID)
		return
	}

	entries, err := h.journal.List(r.Context(), filter)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "journal list failed", "error", err)
		response.HandleError(w, err, requestID)
		return
	}
	if entries == nil {
		entries = []*storage.Entry{}
	}
	response.JSON(w, http.StatusOK, JournalResponse{Entries: entries, Count: len(entries)})
}

// Get handles GET /api/v1/listener/journal/{seq}.
func (h *JournalHandler) Get(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	seq, err := strconv.ParseUint(chi.URLParam(r, "seq"), 10, 64)
	if err != nil {
		response.Error(w, http.StatusBadRequest, response.ErrCodeBadRequest, "seq must be a positive integer", requestID)
		return
	}

	entry, err := h.journal.Get(r.Context(), seq)
	if err != nil {
		var notFound *storage.NotFoundError
		if !errors.As(err, &notFound) {
			h.logger.ErrorContext(r.Context(), "journal get failed", "seq", seq, "error", err)
		}
		response.HandleError(w, err, requestID)
		return
	}
	response.JSON(w, http.StatusOK, entry)
}

func parseJournalFilter(r *http.Request) (*storage.Filter, error) {
	q := r.URL.Query()
	filter := &storage.Filter{Limit: defaultJournalLimit}

	for _, raw := range q["kind"] {
		for _, name := range strings.Split(raw, ",") {
			if strings.TrimSpace(name) == "" {
				continue
			}
			kind, err := notification.ParseKind(name)
			if err != nil {
				return nil, err
			}
			filter.Kinds = append(filter.Kinds, kind)
		}
	}

	if s := q.Get("since"); s != "" {
		since, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return nil, errors.New("since must be an RFC 3339 timestamp")
		}
		filter.Since = since
	}

	if s := q.Get("limit"); s != "" {
		limit, err := strconv.Atoi(s)
		if err != nil || limit <= 0 {
			return nil, errors.New("limit must be a positive integer")
		}
		filter.Limit = min(limit, maxJournalLimit)
	}

	return filter, nil
}
