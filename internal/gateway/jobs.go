package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/qgate-dev/qgate/internal/model"
	"github.com/qgate-dev/qgate/internal/store"
)

const maxBodySize = 1 << 20 // 1 MB

// devicePayload is the union body of the two request kinds sharing a
// device endpoint. A submission carries data; a poll carries id.
type devicePayload struct {
	Data        *string `json:"data"`
	ID          string  `json:"id"`
	AccessToken string  `json:"access_token"`
	Repetitions int     `json:"repetitions"`
	NoQubits    int     `json:"no_qubits"`
}

// pollResponse is the reply for a finished job.
type pollResponse struct {
	Status  string `json:"status"`
	Samples []int  `json:"samples"`
}

func (s *Server) handleDevice(dev model.Device) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req devicePayload
		r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		if s.token != "" && req.AccessToken != s.token {
			s.writeError(w, http.StatusUnauthorized, "invalid access token")
			return
		}

		switch {
		case req.Data != nil:
			s.handleSubmit(w, r, dev, req)
		case req.ID != "":
			s.handlePoll(w, r, dev, req)
		default:
			s.writeError(w, http.StatusBadRequest, "payload is neither a submission nor a poll")
		}
	}
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request, dev model.Device, req devicePayload) {
	if req.NoQubits <= 0 {
		s.writeError(w, http.StatusBadRequest, "no_qubits must be positive")
		return
	}
	if req.NoQubits > dev.MaxQubits {
		s.writeError(w, http.StatusBadRequest,
			fmt.Sprintf("circuit needs %d qubits, device %s has %d", req.NoQubits, dev.Name, dev.MaxQubits))
		return
	}

	job := &model.Job{
		ID:        model.NewID(),
		Device:    dev.Name,
		Status:    model.StatusQueued,
		Qubits:    req.NoQubits,
		Shots:     req.Repetitions,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateJob(r.Context(), job); err != nil {
		s.logger.Error("create job", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to create job")
		return
	}

	recordSubmission(dev.Name)
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status": model.StatusQueued,
		"id":     job.ID,
	})
}

func (s *Server) handlePoll(w http.ResponseWriter, r *http.Request, dev model.Device, req devicePayload) {
	job, err := s.store.GetJob(r.Context(), req.ID)
	if errors.Is(err, store.ErrNotFound) {
		// Unknown ids are reported in-band, not as transport errors.
		recordPoll(dev.Name, model.StatusError)
		s.writeJSON(w, http.StatusOK, map[string]string{"status": model.StatusError})
		return
	}
	if err != nil {
		s.logger.Error("get job", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get job")
		return
	}

	switch job.Status {
	case model.StatusQueued:
		if err := s.store.UpdateJobStatus(r.Context(), job.ID, model.StatusRunning); err != nil {
			s.logger.Error("update job status", "error", err)
			s.writeError(w, http.StatusInternalServerError, "failed to update job")
			return
		}
		recordPoll(dev.Name, model.StatusRunning)
		s.writeJSON(w, http.StatusOK, map[string]string{"status": model.StatusRunning})

	case model.StatusRunning:
		if s.countPoll(job.ID) < s.finishAfter {
			recordPoll(dev.Name, model.StatusRunning)
			s.writeJSON(w, http.StatusOK, map[string]string{"status": model.StatusRunning})
			return
		}
		samples := simulateSamples(job)
		if err := s.store.SetJobSamples(r.Context(), job.ID, samples); err != nil {
			s.logger.Error("set job samples", "error", err)
			s.writeError(w, http.StatusInternalServerError, "failed to finish job")
			return
		}
		recordPoll(dev.Name, model.StatusFinished)
		s.writeJSON(w, http.StatusOK, pollResponse{Status: model.StatusFinished, Samples: samples})

	case model.StatusFinished:
		recordPoll(dev.Name, model.StatusFinished)
		s.writeJSON(w, http.StatusOK, pollResponse{Status: model.StatusFinished, Samples: job.Samples})

	default:
		recordPoll(dev.Name, job.Status)
		s.writeJSON(w, http.StatusOK, map[string]string{"status": job.Status})
	}
}

// simulateSamples fabricates one measurement outcome per shot. The
// simulator always measures the all-zeros state; result interpretation
// is not its job.
func simulateSamples(job *model.Job) []int {
	shots := job.Shots
	if shots <= 0 {
		shots = 1
	}
	return make([]int, shots)
}

// writeJSON writes a JSON response with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
