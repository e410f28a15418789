// Package silvus drives a Silvus StreamCaster radio over its JSON-RPC API.
//
// The radio reports supported frequencies as profiles of range strings
// ("start:step:end" or a single value, in MHz). Each profile becomes one band;
// channels are numbered from 1 in the order the radio reports them, and a
// frequency listed by more than one profile keeps its first number.
package silvus

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Jeffail/gabs/v2"

	"github.com/radio-control/chanhop/internal/adapter"
)

// DefaultPath is the JSON-RPC endpoint on the radio.
const DefaultPath = "/streamscape_api"

// Range string limits.
const (
	maxRangeSteps   = 4096
	maxFrequencyMhz = 1000000
)

// FrequencyProfile is one entry of supported_frequency_profiles.
type FrequencyProfile struct {
	Frequencies []string `json:"frequencies"`
	Bandwidth   string   `json:"bandwidth"`
	AntennaMask string   `json:"antenna_mask"`
}

type rpcRequest struct {
	JSONRPC string   `json:"jsonrpc"`
	Method  string   `json:"method"`
	Params  []string `json:"params,omitempty"`
	ID      int64    `json:"id"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   json.RawMessage `json:"error,omitempty"`
	ID      interface{}     `json:"id"`
}

// Adapter implements IRadioAdapter against a Silvus radio.
type Adapter struct {
	adapter.AdapterBase

	endpoint   string
	httpClient *http.Client
	nextID     atomic.Int64
}

// New creates an adapter for the radio at baseURL (e.g. "http://10.0.0.5").
func New(iface, baseURL string, timeout time.Duration) *Adapter {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Adapter{
		AdapterBase: adapter.AdapterBase{
			Interface: iface,
			Model:     "Silvus-StreamCaster",
		},
		endpoint:   strings.TrimRight(baseURL, "/") + DefaultPath,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// WithTransport sets the round tripper used for radio requests.
func (a *Adapter) WithTransport(rt http.RoundTripper) *Adapter {
	a.httpClient.Transport = rt
	return a
}

// ListFrequencies reads the radio's frequency profiles and expands them.
func (a *Adapter) ListFrequencies(ctx context.Context) ([]adapter.Band, error) {
	raw, err := a.call(ctx, "supported_frequency_profiles")
	if err != nil {
		return nil, err
	}

	var profiles []FrequencyProfile
	if err := json.Unmarshal(raw, &profiles); err != nil {
		return nil, fmt.Errorf("decode frequency profiles: %w", err)
	}
	return BandsFromProfiles(profiles)
}

// GetFrequency reads the radio's current frequency.
func (a *Adapter) GetFrequency(ctx context.Context) (int, error) {
	raw, err := a.call(ctx, "freq")
	if err != nil {
		return 0, err
	}

	var result []string
	if err := json.Unmarshal(raw, &result); err != nil || len(result) == 0 {
		return 0, fmt.Errorf("unexpected freq result %s", string(raw))
	}

	mhz, err := strconv.ParseFloat(strings.TrimSpace(result[0]), 64)
	if err != nil {
		return 0, fmt.Errorf("parse frequency %q: %w", result[0], err)
	}
	return int(math.Round(mhz)), nil
}

// SetFrequency tunes the radio. The radio soft-boots after a change and
// reports UNAVAILABLE until it is back.
func (a *Adapter) SetFrequency(ctx context.Context, frequencyMhz int) error {
	if frequencyMhz <= 0 {
		return fmt.Errorf("frequency %d: %w", frequencyMhz, adapter.ErrInvalidRange)
	}
	_, err := a.call(ctx, "freq", strconv.Itoa(frequencyMhz))
	return err
}

func (a *Adapter) call(ctx context.Context, method string, params ...string) (json.RawMessage, error) {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      a.nextID.Add(1),
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%s: %w", method, &adapter.VendorError{Code: adapter.ErrUnavailable, Original: err})
	}
	defer func() { _ = resp.Body.Close() }()

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return nil, fmt.Errorf("%s: decode response (HTTP %d): %w", method, resp.StatusCode, err)
	}

	if len(rpcResp.Error) > 0 && string(rpcResp.Error) != "null" {
		return nil, adapter.NormalizeVendorErrorWithVendor(
			errors.New(errorMessage(rpcResp.Error)), json.RawMessage(rpcResp.Error), "silvus")
	}
	return rpcResp.Result, nil
}

// errorMessage accepts both the bare-string and the object error forms.
func errorMessage(raw json.RawMessage) string {
	parsed, err := gabs.ParseJSON(raw)
	if err != nil {
		return string(raw)
	}
	if s, ok := parsed.Data().(string); ok {
		return s
	}
	if s, ok := parsed.Path("message").Data().(string); ok && s != "" {
		return s
	}
	return string(raw)
}

// BandsFromProfiles expands radio profiles into numbered bands.
func BandsFromProfiles(profiles []FrequencyProfile) ([]adapter.Band, error) {
	seen := make(map[int]bool)
	next := 1
	bands := make([]adapter.Band, 0, len(profiles))

	for i, profile := range profiles {
		band := adapter.Band{Name: fmt.Sprintf("profile-%d", i+1)}
		for _, spec := range profile.Frequencies {
			freqs, err := ExpandRange(spec)
			if err != nil {
				return nil, fmt.Errorf("profile %d: %w", i+1, err)
			}
			for _, f := range freqs {
				if seen[f] {
					continue
				}
				seen[f] = true
				band.Channels = append(band.Channels, adapter.Channel{Number: next, FrequencyMhz: f})
				next++
			}
		}
		bands = append(bands, band)
	}
	return bands, nil
}

// ExpandRange expands "start:step:end" or a single frequency into MHz values.
func ExpandRange(spec string) ([]int, error) {
	spec = strings.TrimSpace(spec)
	if !strings.Contains(spec, ":") {
		f, err := parseMhz(spec)
		if err != nil {
			return nil, fmt.Errorf("invalid frequency %q: %w", spec, err)
		}
		return []int{int(math.Round(f))}, nil
	}

	parts := strings.Split(spec, ":")
	if len(parts) != 3 {
		return nil, fmt.Errorf("invalid frequency range %q", spec)
	}

	var vals [3]float64
	for i, p := range parts {
		v, err := parseMhz(p)
		if err != nil {
			return nil, fmt.Errorf("invalid frequency range %q: %w", spec, err)
		}
		vals[i] = v
	}
	start, step, end := vals[0], vals[1], vals[2]
	if step <= 0 || end < start {
		return nil, fmt.Errorf("invalid frequency range %q", spec)
	}

	var out []int
	for n := 0; n < maxRangeSteps; n++ {
		f := start + float64(n)*step
		if f > end+1e-9 {
			break
		}
		out = append(out, int(math.Round(f)))
	}
	return out, nil
}

// parseMhz parses a positive, finite value no larger than maxFrequencyMhz.
func parseMhz(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 || v > maxFrequencyMhz {
		return 0, fmt.Errorf("%q out of range (0, %d] MHz", s, maxFrequencyMhz)
	}
	return v, nil
}
