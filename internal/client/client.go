// Package client implements a session against a remote quantum gateway:
// authenticate, discover devices, submit a circuit, and poll for its
// samples.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"time"

	"golang.org/x/term"

	"github.com/qgate-dev/qgate/internal/model"
)

const (
	subscriptionKeyHeader = "Ocp-Apim-Subscription-Key"
	clientIDHeader        = "SDK"
	clientID              = "qgate"

	defaultTimeout = 5 * time.Second

	// livenessCheckEvery is how many poll attempts pass between catalog
	// refreshes while waiting for results.
	livenessCheckEvery = 60
)

// CatalogSource returns the device list a refresh rebuilds from. The
// default source is static; there is no gateway API for live discovery.
type CatalogSource func() []model.Device

// Options configure a Client.
type Options struct {
	// BaseURL is the gateway endpoint device paths are resolved against.
	BaseURL string
	// Catalog supplies the device list on each refresh. Defaults to
	// model.DefaultCatalog.
	Catalog CatalogSource
	// Timeout bounds each individual HTTP request.
	Timeout time.Duration
	Logger  *slog.Logger
}

// Client is a session against the remote gateway. It holds the auth
// token and a catalog snapshot for one submit-and-poll cycle; it is not
// meant to be shared across goroutines.
type Client struct {
	httpc   *http.Client
	baseURL *url.URL
	catalog CatalogSource
	devices map[string]model.Device
	token   string
	logger  *slog.Logger
}

// New creates a client from the given options. The device map starts
// empty; call RefreshDevices before resolving device names.
func New(opts Options) (*Client, error) {
	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse gateway URL: %w", err)
	}

	catalog := opts.Catalog
	if catalog == nil {
		catalog = model.DefaultCatalog
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		httpc:   &http.Client{Timeout: timeout},
		baseURL: base,
		catalog: catalog,
		devices: make(map[string]model.Device),
		logger:  logger,
	}, nil
}

// RefreshDevices replaces the device map wholesale from the configured
// catalog source. No gateway call backs this: the default catalog is
// static, so membership says nothing about real device health.
func (c *Client) RefreshDevices() {
	list := c.catalog()
	devices := make(map[string]model.Device, len(list))
	for _, d := range list {
		devices[d.Name] = d
	}
	c.devices = devices
}

// Devices returns a copy of the current catalog snapshot.
func (c *Client) Devices() map[string]model.Device {
	out := make(map[string]model.Device, len(c.devices))
	for name, d := range c.devices {
		out[name] = d
	}
	return out
}

// IsOnline reports whether the device is present in the current catalog.
func (c *Client) IsOnline(device string) bool {
	_, ok := c.devices[device]
	return ok
}

// CanRun reports whether the device has enough qubits for the job,
// along with the device capacity and the job's requirement. Pure
// lookup, no I/O.
func (c *Client) CanRun(job model.JobRequest, device string) (bool, int, int, error) {
	d, ok := c.devices[device]
	if !ok {
		return false, 0, 0, fmt.Errorf("%w: %s", ErrUnknownDevice, device)
	}
	return job.Qubits <= d.MaxQubits, d.MaxQubits, job.Qubits, nil
}

// Authenticate stores the gateway token for this session. With an empty
// token it prompts on the terminal with echo disabled. All subsequent
// requests carry the subscription-key and client-identifier headers.
func (c *Client) Authenticate(token string) error {
	if token == "" {
		t, err := promptToken()
		if err != nil {
			return fmt.Errorf("read token: %w", err)
		}
		token = t
	}
	c.token = token
	return nil
}

func promptToken() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("no token supplied and stdin is not a terminal")
	}
	fmt.Fprint(os.Stderr, "gateway token > ")
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// submitRequest is the PUT body for a new job. Submit and poll share
// one endpoint per device; the gateway tells them apart by payload
// shape.
type submitRequest struct {
	Data        string `json:"data"`
	AccessToken string `json:"access_token"`
	Repetitions int    `json:"repetitions"`
	NoQubits    int    `json:"no_qubits"`
}

// pollRequest is the PUT body for a status check.
type pollRequest struct {
	ID          string `json:"id"`
	AccessToken string `json:"access_token"`
}

// gatewayResponse is the JSON shape shared by submit and poll replies.
// Samples is a pointer so that "field absent" and "empty list" stay
// distinguishable.
type gatewayResponse struct {
	Status  string `json:"status"`
	ID      string `json:"id"`
	Samples *[]int `json:"samples"`
}

// put issues a PUT to the device's endpoint and decodes the reply.
func (c *Client) put(ctx context.Context, device string, body any) (*gatewayResponse, error) {
	d, ok := c.devices[device]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDevice, device)
	}

	endpoint := c.baseURL.JoinPath(d.Path).String()
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set(subscriptionKeyHeader, c.token)
		req.Header.Set(clientIDHeader, clientID)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return nil, &HTTPError{Status: resp.StatusCode, URL: endpoint}
	}

	var gr gatewayResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return nil, fmt.Errorf("decode gateway response: %w", err)
	}
	return &gr, nil
}

// Submit sends the circuit to the device endpoint and returns a handle
// for polling. The gateway acknowledges a new job with status "queued";
// anything else is a submission failure.
func (c *Client) Submit(ctx context.Context, job model.JobRequest, device string) (model.JobHandle, error) {
	gr, err := c.put(ctx, device, submitRequest{
		Data:        job.Circuit,
		AccessToken: c.token,
		Repetitions: job.Shots,
		NoQubits:    job.Qubits,
	})
	if err != nil {
		return model.JobHandle{}, err
	}

	if gr.Status != model.StatusQueued {
		return model.JobHandle{}, &ExecutionError{Status: gr.Status}
	}
	if gr.ID == "" {
		return model.JobHandle{}, &ParseError{Field: "id"}
	}

	c.logger.Debug("job queued", "execution_id", gr.ID, "device", device)
	return model.JobHandle{ExecutionID: gr.ID, Device: device}, nil
}

// PollResult polls the device endpoint until the job reaches a terminal
// state or maxAttempts polls have been made. Every 60th attempt the
// catalog is refreshed and the device's liveness re-checked. An
// interrupt or context cancellation while waiting aborts the loop with
// an InterruptedError carrying the execution id; the signal
// registration is scoped to this call and released on every exit path.
func (c *Client) PollResult(ctx context.Context, device, executionID string, maxAttempts int, interval time.Duration) ([]int, error) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	defer signal.Stop(sigCh)

	c.logger.Debug("waiting for results", "execution_id", executionID, "device", device)

	for attempt := 0; attempt < maxAttempts; attempt++ {
		select {
		case <-sigCh:
			return nil, &InterruptedError{ExecutionID: executionID}
		case <-ctx.Done():
			return nil, &InterruptedError{ExecutionID: executionID}
		default:
		}

		gr, err := c.put(ctx, device, pollRequest{ID: executionID, AccessToken: c.token})
		if err != nil {
			return nil, err
		}

		if gr.Status == model.StatusFinished || gr.Samples != nil {
			if gr.Samples == nil {
				return nil, &ParseError{Field: "samples"}
			}
			return *gr.Samples, nil
		}
		if gr.Status != model.StatusRunning {
			return nil, &ExecutionError{Status: gr.Status}
		}

		select {
		case <-time.After(interval):
		case <-sigCh:
			return nil, &InterruptedError{ExecutionID: executionID}
		case <-ctx.Done():
			return nil, &InterruptedError{ExecutionID: executionID}
		}

		if attempt%livenessCheckEvery == 0 && c.IsOnline(device) {
			c.RefreshDevices()
			if !c.IsOnline(device) {
				return nil, &DeviceOfflineError{Device: device, ExecutionID: executionID}
			}
		}
	}

	return nil, &TimeoutError{ExecutionID: executionID}
}
