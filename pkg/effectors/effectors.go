// Package effectors realizes the side-effecting capabilities the intent
// dispatch table invokes (volume, power, window, media keys) as thin HTTP
// clients against a local daemon, in the same request shape the teacher's
// LLM provider clients use.
package effectors

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// VolumeEffector reads the system volume as a scalar in [0,1] and sets it
// from an integer level in 0..100.
type VolumeEffector interface {
	Get(ctx context.Context) (float64, error)
	Set(ctx context.Context, level int) error
}

// PowerEffector shuts down or reboots the host.
type PowerEffector interface {
	Shutdown(ctx context.Context) error
	Reboot(ctx context.Context) error
}

// WindowEffector toggles fullscreen or closes the active window.
type WindowEffector interface {
	Fullscreen(ctx context.Context) error
	Close(ctx context.Context) error
}

// MediaKeyEffector sends next/previous track commands.
type MediaKeyEffector interface {
	NextTrack(ctx context.Context) error
	PrevTrack(ctx context.Context) error
}

// httpClient is the shared post-JSON-expect-2xx helper every effector below
// is built on, mirroring pkg/providers/llm's request construction.
type httpClient struct {
	baseURL string
	client  *http.Client
}

func newHTTPClient(baseURL string) httpClient {
	return httpClient{baseURL: baseURL, client: http.DefaultClient}
}

func (h httpClient) post(ctx context.Context, path string, body interface{}, out interface{}) error {
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("effector: %s returned status %d", path, resp.StatusCode)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

// HTTPVolumeEffector is a VolumeEffector backed by a local HTTP daemon.
type HTTPVolumeEffector struct{ httpClient }

func NewHTTPVolumeEffector(baseURL string) *HTTPVolumeEffector {
	return &HTTPVolumeEffector{newHTTPClient(baseURL)}
}

func (e *HTTPVolumeEffector) Get(ctx context.Context) (float64, error) {
	var out struct {
		Level float64 `json:"level"`
	}
	if err := e.post(ctx, "/volume/get", nil, &out); err != nil {
		return 0, err
	}
	return out.Level, nil
}

func (e *HTTPVolumeEffector) Set(ctx context.Context, level int) error {
	return e.post(ctx, "/volume/set", map[string]int{"level": level}, nil)
}

// HTTPPowerEffector is a PowerEffector backed by a local HTTP daemon.
type HTTPPowerEffector struct{ httpClient }

func NewHTTPPowerEffector(baseURL string) *HTTPPowerEffector {
	return &HTTPPowerEffector{newHTTPClient(baseURL)}
}

func (e *HTTPPowerEffector) Shutdown(ctx context.Context) error {
	return e.post(ctx, "/power/shutdown", nil, nil)
}

func (e *HTTPPowerEffector) Reboot(ctx context.Context) error {
	return e.post(ctx, "/power/reboot", nil, nil)
}

// HTTPWindowEffector is a WindowEffector backed by a local HTTP daemon.
type HTTPWindowEffector struct{ httpClient }

func NewHTTPWindowEffector(baseURL string) *HTTPWindowEffector {
	return &HTTPWindowEffector{newHTTPClient(baseURL)}
}

func (e *HTTPWindowEffector) Fullscreen(ctx context.Context) error {
	return e.post(ctx, "/window/fullscreen", nil, nil)
}

func (e *HTTPWindowEffector) Close(ctx context.Context) error {
	return e.post(ctx, "/window/close", nil, nil)
}

// HTTPMediaKeyEffector is a MediaKeyEffector backed by a local HTTP daemon.
type HTTPMediaKeyEffector struct{ httpClient }

func NewHTTPMediaKeyEffector(baseURL string) *HTTPMediaKeyEffector {
	return &HTTPMediaKeyEffector{newHTTPClient(baseURL)}
}

func (e *HTTPMediaKeyEffector) NextTrack(ctx context.Context) error {
	return e.post(ctx, "/media/next", nil, nil)
}

func (e *HTTPMediaKeyEffector) PrevTrack(ctx context.Context) error {
	return e.post(ctx, "/media/prev", nil, nil)
}
