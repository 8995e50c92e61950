package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/qgate-dev/qgate/internal/model"
	"github.com/qgate-dev/qgate/internal/store"
)

func TestListDevicesReturnsCatalog(t *testing.T) {
	devices, err := ListDevices(Options{BaseURL: "http://localhost/", Logger: discardLogger()})
	if err != nil {
		t.Fatalf("ListDevices: %v", err)
	}

	if len(devices) != len(model.DefaultCatalog()) {
		t.Fatalf("len(devices) = %d, want %d", len(devices), len(model.DefaultCatalog()))
	}
	for _, d := range model.DefaultCatalog() {
		if devices[d.Name] != d {
			t.Errorf("devices[%q] = %+v, want %+v", d.Name, devices[d.Name], d)
		}
	}
}

func TestRunJobHTTP500ReturnsNoResult(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer ts.Close()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	opts := Options{BaseURL: ts.URL + "/", Logger: logger}

	job := model.JobRequest{Circuit: "[]", Qubits: 2, Shots: 10}
	samples, err := RunJob(t.Context(), opts, nil, job, "simulator", "tok", 5, time.Millisecond)
	if err != nil {
		t.Fatalf("RunJob error = %v, want nil (transport failures are absorbed)", err)
	}
	if samples != nil {
		t.Errorf("samples = %v, want nil", samples)
	}
	if buf.Len() == 0 {
		t.Error("expected the transport failure to be logged")
	}
}

func TestRunJobDeviceTooSmall(t *testing.T) {
	var calls int
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer ts.Close()

	opts := Options{BaseURL: ts.URL + "/", Logger: discardLogger()}
	job := model.JobRequest{Circuit: "[]", Qubits: 5, Shots: 10}

	_, err := RunJob(t.Context(), opts, nil, job, "device", "tok", 5, time.Millisecond)
	var tooSmall *DeviceTooSmallError
	if !errors.As(err, &tooSmall) {
		t.Fatalf("RunJob error = %v, want *DeviceTooSmallError", err)
	}
	if tooSmall.MaxQubits != 4 || tooSmall.NeededQubits != 5 {
		t.Errorf("MaxQubits/NeededQubits = %d/%d, want 4/5", tooSmall.MaxQubits, tooSmall.NeededQubits)
	}
	if calls != 0 {
		t.Errorf("gateway calls = %d, want 0 (capacity check precedes submission)", calls)
	}
}

func TestRunJobUnlistedDevice(t *testing.T) {
	opts := Options{BaseURL: "http://localhost/", Logger: discardLogger()}
	job := model.JobRequest{Circuit: "[]", Qubits: 1, Shots: 1}

	_, err := RunJob(t.Context(), opts, nil, job, "phantom", "tok", 5, time.Millisecond)
	var offline *DeviceOfflineError
	if !errors.As(err, &offline) {
		t.Fatalf("RunJob error = %v, want *DeviceOfflineError", err)
	}
}

func TestRunJobFullPipelineWithJournal(t *testing.T) {
	var polls int
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")

		if _, isSubmit := body["data"]; isSubmit {
			json.NewEncoder(w).Encode(map[string]string{"status": "queued", "id": "exec-42"})
			return
		}
		polls++
		if polls < 3 {
			json.NewEncoder(w).Encode(map[string]string{"status": "running"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"status": "finished", "samples": []int{0, 1, 0}})
	}))
	defer ts.Close()

	journal, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer journal.Close()

	opts := Options{BaseURL: ts.URL + "/", Logger: discardLogger()}
	job := model.JobRequest{Circuit: "[[0,1]]", Qubits: 2, Shots: 3}

	samples, err := RunJob(t.Context(), opts, journal, job, "simulator", "tok", 10, time.Millisecond)
	if err != nil {
		t.Fatalf("RunJob: %v", err)
	}
	if len(samples) != 3 {
		t.Errorf("samples = %v, want 3 entries", samples)
	}

	rec, err := journal.GetJob(t.Context(), "exec-42")
	if err != nil {
		t.Fatalf("journal GetJob: %v", err)
	}
	if rec.Status != model.StatusFinished {
		t.Errorf("journal status = %q, want %q", rec.Status, model.StatusFinished)
	}
	if len(rec.Samples) != 3 {
		t.Errorf("journal samples = %v, want 3 entries", rec.Samples)
	}
	if rec.Device != "simulator" {
		t.Errorf("journal device = %q, want %q", rec.Device, "simulator")
	}
}

func TestRunJobRecordsTimeoutInJournal(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		if _, isSubmit := body["data"]; isSubmit {
			json.NewEncoder(w).Encode(map[string]string{"status": "queued", "id": "exec-slow"})
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"status": "running"})
	}))
	defer ts.Close()

	journal, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer journal.Close()

	opts := Options{BaseURL: ts.URL + "/", Logger: discardLogger()}
	job := model.JobRequest{Circuit: "[]", Qubits: 1, Shots: 1}

	_, err = RunJob(t.Context(), opts, journal, job, "simulator", "tok", 2, time.Millisecond)
	var timeoutErr *TimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("RunJob error = %v, want *TimeoutError", err)
	}

	rec, err := journal.GetJob(t.Context(), "exec-slow")
	if err != nil {
		t.Fatalf("journal GetJob: %v", err)
	}
	if rec.Status != model.StatusTimeout {
		t.Errorf("journal status = %q, want %q", rec.Status, model.StatusTimeout)
	}
}

func TestRetrieveJobPollsExistingID(t *testing.T) {
	var gotID string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if _, isSubmit := body["data"]; isSubmit {
			t.Error("retrieve must not re-submit")
		}
		gotID, _ = body["id"].(string)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"status": "finished", "samples": []int{9}})
	}))
	defer ts.Close()

	opts := Options{BaseURL: ts.URL + "/", Logger: discardLogger()}
	samples, err := RetrieveJob(t.Context(), opts, "simulator", "tok", "exec-77", 5, time.Millisecond)
	if err != nil {
		t.Fatalf("RetrieveJob: %v", err)
	}
	if len(samples) != 1 || samples[0] != 9 {
		t.Errorf("samples = %v, want [9]", samples)
	}
	if gotID != "exec-77" {
		t.Errorf("polled id = %q, want %q", gotID, "exec-77")
	}
}

func TestOutcomeStatus(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&DeviceOfflineError{Device: "d", ExecutionID: "x"}, model.StatusOffline},
		{&TimeoutError{ExecutionID: "x"}, model.StatusTimeout},
		{&InterruptedError{ExecutionID: "x"}, model.StatusInterrupted},
		{&ExecutionError{Status: "weird"}, model.StatusError},
		{&HTTPError{Status: 500}, ""},
		{errors.New("misc"), ""},
	}

	for _, tt := range tests {
		if got := outcomeStatus(tt.err); got != tt.want {
			t.Errorf("outcomeStatus(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
