package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/summa/internal/domain"
	"github.com/phrazzld/summa/internal/platform/logger"
)

// getPathDocID extracts and validates a document ID from the URL path.
func getPathDocID(r *http.Request, paramName string) (domain.DocID, error) {
	return domain.ParseDocID(chi.URLParam(r, paramName))
}

// handlePathDocID extracts the document ID path parameter. It writes a 400
// response and returns false if the parameter is missing or invalid.
func handlePathDocID(w http.ResponseWriter, r *http.Request, paramName string) (domain.DocID, bool) {
	docID, err := getPathDocID(r, paramName)
	if err != nil {
		logger.FromContextOrDefault(r.Context(), slog.Default()).Debug("invalid document ID",
			slog.String("param_name", paramName),
			slog.String("value", chi.URLParam(r, paramName)))
		HandleAPIError(w, r, err, "")
		return "", false
	}
	return docID, true
}
