package client

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"time"

	"github.com/qgate-dev/qgate/internal/model"
	"github.com/qgate-dev/qgate/internal/store"
)

// ListDevices builds a fresh session, refreshes the catalog, and
// returns it. The list is static: presence does not imply health.
func ListDevices(opts Options) (map[string]model.Device, error) {
	c, err := New(opts)
	if err != nil {
		return nil, err
	}
	c.RefreshDevices()
	return c.Devices(), nil
}

// RetrieveJob polls an existing execution id on a fresh session. It
// never re-submits.
func RetrieveJob(ctx context.Context, opts Options, device, token, executionID string, maxAttempts int, interval time.Duration) ([]int, error) {
	c, err := New(opts)
	if err != nil {
		return nil, err
	}
	if err := c.Authenticate(token); err != nil {
		return nil, err
	}
	c.RefreshDevices()
	return c.PollResult(ctx, device, executionID, maxAttempts, interval)
}

// RunJob runs the full pipeline: authenticate, refresh the catalog,
// check the device is listed and large enough, submit, and poll.
//
// Transport and malformed-response failures are absorbed here: they are
// logged and the absent-result (nil, nil) is returned instead of an
// error. Offline, too-small, timeout, execution, and interrupt failures
// propagate typed so targeted callers can tell them apart.
//
// journal may be nil. When present, every submitted handle is recorded
// so the execution id survives the process; the record is a convenience
// only and polling never consults it.
func RunJob(ctx context.Context, opts Options, journal store.Store, job model.JobRequest, device, token string, maxAttempts int, interval time.Duration) ([]int, error) {
	c, err := New(opts)
	if err != nil {
		return nil, err
	}

	if err := c.Authenticate(token); err != nil {
		return nil, err
	}
	c.RefreshDevices()

	if !c.IsOnline(device) {
		return nil, &DeviceOfflineError{Device: device}
	}

	fits, maxQubits, needed, err := c.CanRun(job, device)
	if err != nil {
		return nil, err
	}
	if !fits {
		return nil, &DeviceTooSmallError{Device: device, MaxQubits: maxQubits, NeededQubits: needed}
	}

	handle, err := c.Submit(ctx, job, device)
	if err != nil {
		if absorbable(err) {
			c.logger.Error("submission failed", "device", device, "error", err)
			return nil, nil
		}
		return nil, err
	}

	if journal != nil {
		rec := &model.Job{
			ID:        handle.ExecutionID,
			Device:    device,
			Status:    model.StatusQueued,
			Qubits:    job.Qubits,
			Shots:     job.Shots,
			CreatedAt: time.Now().UTC(),
		}
		if err := journal.CreateJob(ctx, rec); err != nil {
			c.logger.Warn("journal write failed", "execution_id", handle.ExecutionID, "error", err)
		}
	}

	c.logger.Info("job submitted", "execution_id", handle.ExecutionID, "device", device)

	samples, err := c.PollResult(ctx, device, handle.ExecutionID, maxAttempts, interval)
	if err != nil {
		recordOutcome(journal, c.logger, handle.ExecutionID, outcomeStatus(err))
		if absorbable(err) {
			c.logger.Error("polling failed", "execution_id", handle.ExecutionID, "error", err)
			return nil, nil
		}
		return nil, err
	}

	if journal != nil {
		if err := journal.SetJobSamples(ctx, handle.ExecutionID, samples); err != nil {
			c.logger.Warn("journal update failed", "execution_id", handle.ExecutionID, "error", err)
		}
	}

	return samples, nil
}

// absorbable reports whether err belongs to the categories RunJob
// converts to the absent-result return: transport failures and
// malformed responses.
func absorbable(err error) bool {
	var httpErr *HTTPError
	var parseErr *ParseError
	var urlErr *url.Error
	return errors.As(err, &httpErr) || errors.As(err, &parseErr) || errors.As(err, &urlErr)
}

// outcomeStatus maps a poll failure to the journal status recorded for
// it, or "" when the outcome is not a client-side terminal state.
func outcomeStatus(err error) string {
	var offline *DeviceOfflineError
	var timeout *TimeoutError
	var interrupted *InterruptedError
	var exec *ExecutionError

	switch {
	case errors.As(err, &offline):
		return model.StatusOffline
	case errors.As(err, &timeout):
		return model.StatusTimeout
	case errors.As(err, &interrupted):
		return model.StatusInterrupted
	case errors.As(err, &exec):
		return model.StatusError
	default:
		return ""
	}
}

func recordOutcome(journal store.Store, logger *slog.Logger, executionID, status string) {
	if journal == nil || status == "" {
		return
	}
	// Best effort; the journal must never mask the poll outcome.
	if err := journal.UpdateJobStatus(context.Background(), executionID, status); err != nil {
		logger.Warn("journal update failed", "execution_id", executionID, "error", err)
	}
}
