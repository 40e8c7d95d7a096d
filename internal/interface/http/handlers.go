package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/cohort-hub/admissions/internal/application/command"
	"github.com/cohort-hub/admissions/internal/application/query"
	"github.com/cohort-hub/admissions/internal/domain/rating"
	"github.com/cohort-hub/admissions/internal/domain/shared"
	"github.com/cohort-hub/admissions/internal/domain/student"
	"github.com/cohort-hub/admissions/internal/infrastructure/export"
	"github.com/cohort-hub/admissions/internal/interface/http/handlers"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRoot serves the root endpoint with basic API information.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	info := map[string]interface{}{
		"name":    "Cohort Admissions API",
		"version": "v1",
		"endpoints": map[string]string{
			"health":      "/health",
			"review_next": APIPrefix + "/review/next",
			"ratings":     APIPrefix + "/review/ratings",
			"top_rated":   APIPrefix + "/top-rated",
			"offer":       APIPrefix + "/students/offer",
			"accept":      APIPrefix + "/offer/accept",
		},
	}

	writeJSON(w, r, http.StatusOK, info)
}

// handleHealth handles the health check endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.deps.HealthChecker.Check(r.Context())
	if !status.Healthy {
		writeJSON(w, r, http.StatusServiceUnavailable, status)
		return
	}
	writeJSON(w, r, http.StatusOK, status)
}

// handleReady handles the readiness probe endpoint (for Kubernetes).
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := s.deps.HealthChecker.Check(r.Context())
	if !status.Ready {
		writeJSON(w, r, http.StatusServiceUnavailable, map[string]string{
			"status": "not_ready",
			"reason": status.Message,
		})
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ready"})
}

// handleLive handles the liveness probe endpoint (for Kubernetes).
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "alive"})
}

// ══════════════════════════════════════════════════════════════════════════════
// REVIEW HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// nextUnratedResponse keeps "student": null explicit when the queue is empty.
type nextUnratedResponse struct {
	Student *student.Student `json:"student"`
}

// handleNextUnrated handles GET /api/v1/admissions/review/next
func (s *Server) handleNextUnrated(w http.ResponseWriter, r *http.Request) {
	track, err := parseTrackParam(r)
	if err != nil {
		writeError(w, r, "NextUnratedStudent", err)
		return
	}

	st, err := s.deps.NextUnrated.Handle(r.Context(), handlers.CallerFromContext(r.Context()),
		query.NextUnratedStudentQuery{Track: track})
	if err != nil {
		writeError(w, r, "NextUnratedStudent", err)
		return
	}

	writeJSON(w, r, http.StatusOK, nextUnratedResponse{Student: st})
}

// submitRatingRequest is the body of POST /review/ratings. Rating stays raw
// so that a quoted number can be told apart from a numeric one.
type submitRatingRequest struct {
	Student student.Ref     `json:"student"`
	Rating  json.RawMessage `json:"rating"`
}

type submitRatingResponse struct {
	Submitted bool           `json:"submitted"`
	Rating    *rating.Rating `json:"rating"`
}

// handleSubmitRating handles POST /api/v1/admissions/review/ratings
func (s *Server) handleSubmitRating(w http.ResponseWriter, r *http.Request) {
	var req submitRatingRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, "SubmitRating", err)
		return
	}

	value, err := parseRatingValue(req.Rating)
	if err != nil {
		writeError(w, r, "SubmitRating", err)
		return
	}

	saved, err := s.deps.SubmitRating.Handle(r.Context(), handlers.CallerFromContext(r.Context()),
		command.SubmitRatingCommand{Student: req.Student, Rating: value})
	if err != nil {
		writeError(w, r, "SubmitRating", err)
		return
	}

	writeJSON(w, r, http.StatusCreated, submitRatingResponse{Submitted: true, Rating: saved})
}

// ══════════════════════════════════════════════════════════════════════════════
// RANKING HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleTopRated handles GET /api/v1/admissions/top-rated
func (s *Server) handleTopRated(w http.ResponseWriter, r *http.Request) {
	q, err := parseTopRatedQuery(r)
	if err != nil {
		writeError(w, r, "TopRated", err)
		return
	}

	entries, err := s.deps.TopRated.Handle(r.Context(), handlers.CallerFromContext(r.Context()), q)
	if err != nil {
		writeError(w, r, "TopRated", err)
		return
	}

	count := len(entries)
	writeJSONWithMeta(w, r, http.StatusOK, entries, &ResponseMeta{
		Count: &count,
		Skip:  q.Skip.Ptr(),
		Take:  q.Take.Ptr(),
	})
}

// handleTopRatedExport handles GET /api/v1/admissions/top-rated/export.xlsx
func (s *Server) handleTopRatedExport(w http.ResponseWriter, r *http.Request) {
	if s.deps.ExportGate == nil || !s.deps.ExportGate(handlers.CallerFromContext(r.Context())) {
		writeJSONError(w, r, http.StatusNotFound, shared.CodeNotFound, "export is disabled")
		return
	}

	q, err := parseTopRatedQuery(r)
	if err != nil {
		writeError(w, r, "ExportTopRated", err)
		return
	}

	entries, err := s.deps.TopRated.Export(r.Context(), handlers.CallerFromContext(r.Context()), q)
	if err != nil {
		writeError(w, r, "ExportTopRated", err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteTopRated(&buf, entries); err != nil {
		writeError(w, r, "ExportTopRated", err)
		return
	}

	w.Header().Set("Content-Type", export.ContentTypeXLSX)
	w.Header().Set("Content-Disposition", `attachment; filename="top-rated.xlsx"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// ══════════════════════════════════════════════════════════════════════════════
// DECISION HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type decisionRequest struct {
	Student student.Ref `json:"student"`
	Reason  *string     `json:"reason,omitempty"`
}

// handleOffer handles POST /api/v1/admissions/students/offer
func (s *Server) handleOffer(w http.ResponseWriter, r *http.Request) {
	var req decisionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, "OfferAdmission", err)
		return
	}

	st, err := s.deps.Decisions.Offer(r.Context(), handlers.CallerFromContext(r.Context()),
		command.OfferAdmissionCommand{Student: req.Student})
	if err != nil {
		writeError(w, r, "OfferAdmission", err)
		return
	}

	writeJSON(w, r, http.StatusOK, st)
}

// handleResetOffer handles POST /api/v1/admissions/students/offer/reset
func (s *Server) handleResetOffer(w http.ResponseWriter, r *http.Request) {
	var req decisionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, "ResetAdmissionOffer", err)
		return
	}

	st, err := s.deps.Decisions.ResetOffer(r.Context(), handlers.CallerFromContext(r.Context()),
		command.ResetAdmissionOfferCommand{Student: req.Student})
	if err != nil {
		writeError(w, r, "ResetAdmissionOffer", err)
		return
	}

	writeJSON(w, r, http.StatusOK, st)
}

// handleReject handles POST /api/v1/admissions/students/reject
func (s *Server) handleReject(w http.ResponseWriter, r *http.Request) {
	var req decisionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, "RejectStudent", err)
		return
	}

	cmd := command.RejectStudentCommand{Student: req.Student}
	if req.Reason != nil {
		reason, err := student.ParseRejectionReason(*req.Reason)
		if err != nil {
			writeError(w, r, "RejectStudent", err)
			return
		}
		cmd.Reason = shared.Some(reason)
	}

	st, err := s.deps.Decisions.Reject(r.Context(), handlers.CallerFromContext(r.Context()), cmd)
	if err != nil {
		writeError(w, r, "RejectStudent", err)
		return
	}

	writeJSON(w, r, http.StatusOK, st)
}

// handleAcceptOffer handles POST /api/v1/admissions/offer/accept
func (s *Server) handleAcceptOffer(w http.ResponseWriter, r *http.Request) {
	st, err := s.deps.AcceptOffer.Handle(r.Context(), handlers.CallerFromContext(r.Context()))
	if err != nil {
		writeError(w, r, "AcceptOffer", err)
		return
	}

	writeJSON(w, r, http.StatusOK, st)
}

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST PARSING
// ══════════════════════════════════════════════════════════════════════════════

var errMalformedBody = shared.NewDomainError("http", "Decode", shared.ErrValidation, "request body is not valid JSON")

// decodeBody decodes a JSON request body into dst.
func decodeBody(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return shared.WrapError("http", "Decode", shared.ErrValidation, "request body too large", err)
		}
		return shared.WrapError("http", "Decode", shared.ErrValidation, errMalformedBody.Message, err)
	}
	return nil
}

// parseRatingValue accepts only a JSON number. Strings such as "5" are
// rejected here; integrality and range are checked by the rating domain.
func parseRatingValue(raw json.RawMessage) (float64, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return 0, shared.NewDomainError("rating", "Decode", shared.ErrValidation, "rating is required")
	}
	if trimmed[0] == '"' {
		return 0, shared.ErrInvalidRating
	}

	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return 0, shared.ErrInvalidRating
	}
	v, err := n.Float64()
	if err != nil {
		return 0, shared.ErrInvalidRating
	}
	return v, nil
}

// parseTrackParam reads the optional ?track= filter.
func parseTrackParam(r *http.Request) (shared.Optional[student.Track], error) {
	raw := strings.TrimSpace(r.URL.Query().Get("track"))
	if raw == "" {
		return shared.None[student.Track](), nil
	}
	t, err := student.ParseTrack(raw)
	if err != nil {
		return shared.None[student.Track](), err
	}
	return shared.Some(t), nil
}

// parseIntParam reads an optional integer query parameter.
func parseIntParam(r *http.Request, key string) (shared.Optional[int], error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return shared.None[int](), nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return shared.None[int](), shared.WrapError("http", "Decode", shared.ErrValidation,
			fmt.Sprintf("%s must be an integer", key), err)
	}
	return shared.Some(v), nil
}

func parseTopRatedQuery(r *http.Request) (query.TopRatedQuery, error) {
	var (
		q   query.TopRatedQuery
		err error
	)
	if q.Skip, err = parseIntParam(r, "skip"); err != nil {
		return q, err
	}
	if q.Take, err = parseIntParam(r, "take"); err != nil {
		return q, err
	}
	if q.Track, err = parseTrackParam(r); err != nil {
		return q, err
	}
	return q, nil
}
