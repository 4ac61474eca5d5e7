package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/goproduct/internal/jobs"
	"github.com/hyperifyio/goproduct/internal/product"
)

const maxBodyBytes = 1 << 20

type extractBody struct {
	URL  string `json:"url"`
	Mode string `json:"mode"`
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("write response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// statusFor maps validation problems to 400 and everything else to 500.
func statusFor(err error) int {
	if errors.Is(err, product.ErrValidation) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// decodeRequest parses and validates the extraction body.
func decodeRequest(r *http.Request) (product.ExtractionRequest, error) {
	var body extractBody
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(&body); err != nil {
		if errors.Is(err, io.EOF) {
			return product.ExtractionRequest{}, fmt.Errorf("%w: url is required", product.ErrValidation)
		}
		return product.ExtractionRequest{}, fmt.Errorf("%w: invalid JSON body", product.ErrValidation)
	}
	return product.NewExtractionRequest(body.URL, body.Mode)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	req, err := decodeRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	resp, err := s.runner.Run(r.Context(), req)
	if err != nil {
		log.Error().Err(err).Str("url", req.SourceURL).Msg("extraction failed")
		writeError(w, statusFor(err), product.PublicMessage(err))
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	req, err := decodeRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	id, err := s.jobs.CreateJob(r.Context(), req, s.runner.Run)
	if err != nil {
		log.Error().Err(err).Str("url", req.SourceURL).Msg("job creation failed")
		writeError(w, http.StatusInternalServerError, "could not create job")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"jobId": id})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "jobId")
	job, err := s.jobs.GetStatus(r.Context(), id)
	if errors.Is(err, jobs.ErrNotFound) {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	if err != nil {
		log.Error().Err(err).Str("job_id", id).Msg("job lookup failed")
		writeError(w, http.StatusInternalServerError, "could not read job")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "jobId")
	deleted, err := s.jobs.Cleanup(r.Context(), id)
	if err != nil {
		log.Error().Err(err).Str("job_id", id).Msg("job cleanup failed")
		writeError(w, http.StatusInternalServerError, "could not delete job")
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}
