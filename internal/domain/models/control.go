package models

import "time"

// ControlResponse is the body returned by the control and upload endpoints.
type ControlResponse struct {
	Status   string `json:"status"`
	Filename string `json:"filename,omitempty"`
}

// StatusResponse describes the live acquisition state.
type StatusResponse struct {
	State       string `json:"state"`
	Buffered    int    `json:"buffered"`
	Subscribers int    `json:"subscribers"`
}

// VideoRequest addresses a stored video by name.
type VideoRequest struct {
	Filename string `param:"filename" validate:"required,max=255"`
}

// VideoMeta is indexed per uploaded video.
type VideoMeta struct {
	Filename    string    `json:"filename"`
	Original    string    `json:"original"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// FlushSummary is published after each successful flush.
type FlushSummary struct {
	Name    string    `json:"name"`
	Count   int       `json:"count"`
	Backend string    `json:"backend"`
	SavedAt time.Time `json:"saved_at"`
}
