package api

import (
	"time"

	"github.com/phrazzld/summa/internal/domain"
)

// Status values of SummaryResponse.
const (
	StatusRecordFound      = "record_found"
	StatusChannelAvailable = "channel_available"
)

// TriggerQuery holds the query parameters of the trigger endpoint.
type TriggerQuery struct {
	// ConnectionID names the progress channel of a newly started job.
	ConnectionID string `validate:"omitempty,max=128,printascii"`
}

// ChannelParams holds the path parameters of the progress channel endpoint.
type ChannelParams struct {
	Channel string `validate:"required,max=128,printascii"`
}

// SummaryResponse is returned by the trigger endpoint. A cached summary
// carries its bullet points; otherwise the client subscribes to Channel.
type SummaryResponse struct {
	Status       string   `json:"status"`
	BulletPoints []string `json:"bulletpoints,omitempty"`
	JobID        string   `json:"job_id,omitempty"`
	Channel      string   `json:"channel,omitempty"`
	Joined       bool     `json:"joined,omitempty"`
}

// SummaryRecordResponse is the stored summary of a document.
type SummaryRecordResponse struct {
	DocID        string    `json:"doc_id"`
	BulletPoints []string  `json:"bulletpoints"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// HealthResponse is returned by the health endpoint.
type HealthResponse struct {
	Status string `json:"status"`
}

func summaryRecordToResponse(rec *domain.SummaryRecord) SummaryRecordResponse {
	return SummaryRecordResponse{
		DocID:        rec.DocID.String(),
		BulletPoints: rec.BulletPoints,
		CreatedAt:    rec.CreatedAt,
		UpdatedAt:    rec.UpdatedAt,
	}
}
