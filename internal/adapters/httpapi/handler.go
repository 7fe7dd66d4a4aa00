// Package httpapi exposes the collection catalog and the public forms over
// HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"shelterdb/internal/core"
	"shelterdb/internal/submissions"
	"shelterdb/pkg/domain"
)

const maxBodyBytes = 1 << 20

// Catalog is the part of core.Catalog the handler needs.
type Catalog interface {
	Collection(name string) (core.Collection, error)
	Names() []string
}

// Submissions accepts public forms and admin decisions.
type Submissions interface {
	SubmitAdoption(ctx context.Context, f submissions.AdoptionForm) (domain.Application, error)
	SubmitDonation(ctx context.Context, f submissions.DonationForm) (domain.Donation, error)
	SubmitVolunteer(ctx context.Context, f submissions.VolunteerForm) (domain.Volunteer, error)
	Approve(ctx context.Context, applicationID int64) (domain.Application, error)
	Reject(ctx context.Context, applicationID int64) (domain.Application, error)
}

// Handler serves /api/v1.
type Handler struct {
	Catalog     Catalog
	Submissions Submissions
	Logger      core.Logger
}

// NewHandler constructs the API handler. subs may be nil, which disables
// the form and decision endpoints.
func NewHandler(c Catalog, subs Submissions) *Handler {
	return &Handler{Catalog: c, Submissions: subs}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.Catalog == nil {
		writeError(w, http.StatusInternalServerError, "catalog not configured")
		return
	}
	path := strings.TrimSuffix(r.URL.Path, "/")
	switch {
	case path == "/api/v1/collections":
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"collections": h.Catalog.Names()})
	case strings.HasPrefix(path, "/api/v1/collections/"):
		h.handleCollection(w, r, strings.Split(strings.TrimPrefix(path, "/api/v1/collections/"), "/"))
	case strings.HasPrefix(path, "/api/v1/applications/"):
		h.handleDecision(w, r, strings.Split(strings.TrimPrefix(path, "/api/v1/applications/"), "/"))
	case strings.HasPrefix(path, "/api/v1/forms/"):
		h.handleForm(w, r, strings.TrimPrefix(path, "/api/v1/forms/"))
	default:
		http.NotFound(w, r)
	}
}

func (h *Handler) handleCollection(w http.ResponseWriter, r *http.Request, segments []string) {
	col, err := h.Catalog.Collection(segments[0])
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	switch len(segments) {
	case 1:
		switch r.Method {
		case http.MethodGet:
			h.handleList(w, r, col)
		case http.MethodPost:
			h.handleAdd(w, r, col)
		default:
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	case 2:
		switch segments[1] {
		case "reset":
			if r.Method != http.MethodPost {
				writeError(w, http.StatusMethodNotAllowed, "method not allowed")
				return
			}
			col.ResetCache()
			w.WriteHeader(http.StatusNoContent)
		case "diff":
			if r.Method != http.MethodGet {
				writeError(w, http.StatusMethodNotAllowed, "method not allowed")
				return
			}
			changes, err := col.Diff(r.Context())
			if err != nil {
				writeError(w, http.StatusInternalServerError, err.Error())
				return
			}
			if changes == nil {
				changes = []core.RecordChange{}
			}
			writeJSON(w, http.StatusOK, map[string]any{"changes": changes})
		default:
			h.handleRecord(w, r, col, segments[1])
		}
	case 3:
		if segments[2] != "json-patch" {
			writeError(w, http.StatusNotFound, "endpoint not found")
			return
		}
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		h.handleJSONPatch(w, r, col, segments[1])
	default:
		writeError(w, http.StatusNotFound, "endpoint not found")
	}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request, col core.Collection) {
	records, err := col.Filter(r.Context(), r.URL.Query().Get("filter"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{string(col.Name()): records})
}

func (h *Handler) handleAdd(w http.ResponseWriter, r *http.Request, col core.Collection) {
	var doc domain.Document
	if err := decodeBody(w, r, &doc); err != nil || doc == nil {
		writeError(w, http.StatusBadRequest, "invalid record payload")
		return
	}
	stored, err := col.Add(r.Context(), doc)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"record": stored})
}

func (h *Handler) handleRecord(w http.ResponseWriter, r *http.Request, col core.Collection, id string) {
	ctx := r.Context()
	switch r.Method {
	case http.MethodGet:
		rec, ok := col.Get(ctx, id)
		if !ok {
			writeError(w, http.StatusNotFound, "record not found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"record": rec})
	case http.MethodPatch:
		var patch domain.Patch
		if err := decodeBody(w, r, &patch); err != nil {
			writeError(w, http.StatusBadRequest, "invalid patch payload")
			return
		}
		rec, err := col.Update(ctx, id, patch)
		switch {
		case errors.Is(err, core.ErrNotFound):
			writeError(w, http.StatusNotFound, "record not found")
			return
		case err != nil:
			writeError(w, http.StatusUnprocessableEntity, "patch does not fit the record")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"record": rec})
	case http.MethodDelete:
		if !col.Delete(ctx, id) {
			writeError(w, http.StatusNotFound, "record not found")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *Handler) handleJSONPatch(w http.ResponseWriter, r *http.Request, col core.Collection, id string) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid patch payload")
		return
	}
	rec, ok, err := col.ApplyJSONPatch(r.Context(), id, body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "record not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"record": rec})
}

func (h *Handler) handleDecision(w http.ResponseWriter, r *http.Request, segments []string) {
	if h.Submissions == nil || len(segments) != 2 {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id, ok := domain.CoerceID(segments[0])
	if !ok {
		writeError(w, http.StatusNotFound, "application not found")
		return
	}
	var (
		app domain.Application
		err error
	)
	switch segments[1] {
	case "approve":
		app, err = h.Submissions.Approve(r.Context(), id)
	case "reject":
		app, err = h.Submissions.Reject(r.Context(), id)
	default:
		writeError(w, http.StatusNotFound, "endpoint not found")
		return
	}
	if err != nil {
		writeSubmissionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"application": app})
}

func (h *Handler) handleForm(w http.ResponseWriter, r *http.Request, form string) {
	if h.Submissions == nil {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	ctx := r.Context()
	switch form {
	case "adoption":
		var f submissions.AdoptionForm
		if err := decodeBody(w, r, &f); err != nil {
			writeError(w, http.StatusBadRequest, "invalid form payload")
			return
		}
		app, err := h.Submissions.SubmitAdoption(ctx, f)
		if err != nil {
			writeSubmissionError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"application": app})
	case "donation":
		var f submissions.DonationForm
		if err := decodeBody(w, r, &f); err != nil {
			writeError(w, http.StatusBadRequest, "invalid form payload")
			return
		}
		d, err := h.Submissions.SubmitDonation(ctx, f)
		if err != nil {
			writeSubmissionError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"donation": d})
	case "volunteer":
		var f submissions.VolunteerForm
		if err := decodeBody(w, r, &f); err != nil {
			writeError(w, http.StatusBadRequest, "invalid form payload")
			return
		}
		v, err := h.Submissions.SubmitVolunteer(ctx, f)
		if err != nil {
			writeSubmissionError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"volunteer": v})
	default:
		http.NotFound(w, r)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
}

func writeSubmissionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, submissions.ErrInvalid):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, submissions.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, submissions.ErrDecided), errors.Is(err, submissions.ErrAnimalUnavailable):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
