package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/summa/internal/api/shared"
)

// ProgressStreamer streams the events of a progress channel over a
// long-lived connection. progress.WSHandler implements it.
type ProgressStreamer interface {
	Serve(w http.ResponseWriter, r *http.Request, channel string)
}

// ChannelHandler serves progress channel subscriptions.
type ChannelHandler struct {
	streamer ProgressStreamer
}

// NewChannelHandler creates a ChannelHandler.
func NewChannelHandler(streamer ProgressStreamer) *ChannelHandler {
	return &ChannelHandler{streamer: streamer}
}

// Subscribe handles GET /api/channels/{channel}/ws.
func (h *ChannelHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	params := ChannelParams{Channel: chi.URLParam(r, "channel")}
	if err := shared.ValidateRequest(&params); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	h.streamer.Serve(w, r, params.Channel)
}
