package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/phrazzld/summa/internal/api/shared"
	"github.com/phrazzld/summa/internal/domain"
	"github.com/phrazzld/summa/internal/summary"
)

// SummaryService is the part of the summary service the handlers use.
type SummaryService interface {
	Trigger(ctx context.Context, docID domain.DocID, connectionID string) (*summary.TriggerResult, error)
	GetCachedResult(ctx context.Context, docID domain.DocID) (*domain.SummaryRecord, error)
}

// SummaryHandler handles summary requests.
type SummaryHandler struct {
	service SummaryService
	logger  *slog.Logger
}

// NewSummaryHandler creates a SummaryHandler.
func NewSummaryHandler(service SummaryService, logger *slog.Logger) *SummaryHandler {
	return &SummaryHandler{
		service: service,
		logger:  logger.With("component", "summary_handler"),
	}
}

// TriggerSummary handles GET /api/summaries/{docId}. It answers 200 with the
// bullet points when the document is already summarized, and 202 with the
// progress channel of the started or joined job otherwise.
func (h *SummaryHandler) TriggerSummary(w http.ResponseWriter, r *http.Request) {
	docID, ok := handlePathDocID(w, r, "docId")
	if !ok {
		return
	}

	query := TriggerQuery{ConnectionID: r.URL.Query().Get("connection_id")}
	if err := shared.ValidateRequest(&query); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	result, err := h.service.Trigger(r.Context(), docID, query.ConnectionID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to request summary")
		return
	}

	if result.Status == summary.TriggerStatusCached {
		shared.RespondWithJSON(w, r, http.StatusOK, SummaryResponse{
			Status:       StatusRecordFound,
			BulletPoints: result.BulletPoints,
		})
		return
	}

	h.logger.Debug("summary job available",
		"doc_id", docID,
		"job_id", result.JobID,
		"channel", result.Channel,
		"trigger_status", result.Status)

	shared.RespondWithJSON(w, r, http.StatusAccepted, SummaryResponse{
		Status:  StatusChannelAvailable,
		JobID:   result.JobID.String(),
		Channel: result.Channel,
		Joined:  result.Status == summary.TriggerStatusJoined,
	})
}

// GetSummary handles GET /api/summaries/{docId}/result. It never starts a job.
func (h *SummaryHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	docID, ok := handlePathDocID(w, r, "docId")
	if !ok {
		return
	}

	record, err := h.service.GetCachedResult(r.Context(), docID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get summary")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, summaryRecordToResponse(record))
}
