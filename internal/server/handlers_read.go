package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"waingest/internal/api"
	"waingest/internal/docstore"
	"waingest/internal/eventlog"
	"waingest/internal/ledger"
)

const (
	defaultMessagePageSize = 100
	maxMessagePageSize     = 500
)

// version is stamped at build time via -ldflags.
var version = "dev"

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, api.HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleInfo(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, api.InfoResponse{Service: "waingest", Version: version})
}

func (s *Server) handleTaskStatus(w http.ResponseWriter, r *http.Request) {
	taskID := strings.TrimSpace(r.PathValue("id"))
	if taskID == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("task id is required"))
		return
	}

	fields, err := s.docs.Get(r.Context(), eventlog.Collection+"/"+taskID)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, fmt.Errorf("unknown task %q", taskID))
			return
		}
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	s.writeJSON(w, http.StatusOK, api.TaskStatus{
		TaskID:    taskID,
		Timestamp: asString(fields["timestamp"]),
		Source:    asString(fields["source"]),
		Details:   asString(fields["details"]),
		Status:    asString(fields["status"]),
	})
}

func (s *Server) handleListGroups(w http.ResponseWriter, r *http.Request) {
	docs, err := s.docs.List(r.Context(), ledger.GroupsCollection, 0, 0)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	groups := make([]api.Group, 0, len(docs))
	for _, doc := range docs {
		groups = append(groups, api.Group{
			ID:                doc.ID,
			GroupName:         asString(doc.Fields["group_name"]),
			LastIngestionDate: asString(doc.Fields["last_ingestion_date"]),
		})
	}
	s.writeJSON(w, http.StatusOK, api.GroupsResponse{Groups: groups})
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	groupID := strings.TrimSpace(r.PathValue("id"))
	if groupID == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("group id is required"))
		return
	}

	limit, err := queryInt(r, "limit", defaultMessagePageSize)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if limit < 1 || limit > maxMessagePageSize {
		limit = defaultMessagePageSize
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if offset < 0 {
		offset = 0
	}

	docs, err := s.docs.List(r.Context(), ledger.MessagesPath(groupID), limit, offset)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	msgs := make([]api.Message, 0, len(docs))
	for _, doc := range docs {
		msg := api.Message{
			ID:                  doc.ID,
			TimestampUTC:        asString(doc.Fields["timestamp_utc"]),
			Author:              asString(doc.Fields["author"]),
			MessageText:         asString(doc.Fields["message_text"]),
			IsSystemMessage:     asBool(doc.Fields["is_system_message"]),
			HasMedia:            asBool(doc.Fields["has_media"]),
			NLPStatus:           asString(doc.Fields["nlp_status"]),
			MediaAnalysisStatus: asString(doc.Fields["media_analysis_status"]),
		}
		if media, ok := doc.Fields["media"].(map[string]any); ok {
			msg.Media = media
		}
		msgs = append(msgs, msg)
	}
	s.writeJSON(w, http.StatusOK, api.MessagesResponse{Messages: msgs, Limit: limit, Offset: offset})
}

func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return n, nil
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asBool(v any) bool {
	b, _ := v.(bool)
	return b
}
