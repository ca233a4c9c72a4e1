// Package api defines the JSON types of the HTTP surface.
package api

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// UploadAccepted acknowledges an accepted export upload; processing
// continues in the background under TaskID.
type UploadAccepted struct {
	Message  string `json:"message"`
	Filename string `json:"filename"`
	TaskID   string `json:"task_id"`
}

// TaskStatus reports the lifecycle state of one ingestion run.
type TaskStatus struct {
	TaskID    string `json:"task_id"`
	Timestamp string `json:"timestamp,omitempty"`
	Source    string `json:"source,omitempty"`
	Details   string `json:"details,omitempty"`
	Status    string `json:"status"`
}

// Group is one ingested chat group.
type Group struct {
	ID                string `json:"id"`
	GroupName         string `json:"group_name"`
	LastIngestionDate string `json:"last_ingestion_date,omitempty"`
}

// Message is one persisted chat message.
type Message struct {
	ID                  string         `json:"id"`
	TimestampUTC        string         `json:"timestamp_utc"`
	Author              string         `json:"author"`
	MessageText         string         `json:"message_text"`
	IsSystemMessage     bool           `json:"is_system_message"`
	HasMedia            bool           `json:"has_media"`
	NLPStatus           string         `json:"nlp_status"`
	MediaAnalysisStatus string         `json:"media_analysis_status"`
	Media               map[string]any `json:"media,omitempty"`
}

// GroupsResponse lists ingested groups.
type GroupsResponse struct {
	Groups []Group `json:"groups"`
}

// MessagesResponse lists one page of a group's messages.
type MessagesResponse struct {
	Messages []Message `json:"messages"`
	Limit    int       `json:"limit"`
	Offset   int       `json:"offset"`
}

// HealthResponse reports service liveness.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// InfoResponse describes the running service.
type InfoResponse struct {
	Service string `json:"service"`
	Version string `json:"version"`
}
