package racer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gagliardetto/solana-go"
	"golang.org/x/time/rate"
)

// Region is one submission endpoint of a provider.
type Region struct {
	Name string
	URL  string
}

// Provider delivers a signed transaction to one relay family.
type Provider interface {
	Name() string

	// MinTip is the smallest tip in SOL the provider accepts.
	MinTip() float64

	// TipAccount is the tip recipient. A zero key means no tip instruction.
	TipAccount() solana.PublicKey

	Regions() []Region

	// Send submits a base64 transaction to region and returns the signature.
	Send(ctx context.Context, region Region, encodedTx string) (string, error)
}

// ProviderOptions tune the HTTP side of a relay provider.
type ProviderOptions struct {
	HTTPClient *http.Client

	// Regions replaces the provider's default endpoints when non-empty.
	Regions []Region

	// RatePerSecond caps outbound requests across all regions; 0 disables.
	RatePerSecond float64
	Burst         int
}

func (o ProviderOptions) regions(defaults []Region) []Region {
	src := defaults
	if len(o.Regions) > 0 {
		src = o.Regions
	}
	return append([]Region(nil), src...)
}

type poster struct {
	client  *http.Client
	limiter *rate.Limiter
}

func newPoster(o ProviderOptions) poster {
	p := poster{client: o.HTTPClient}
	if p.client == nil {
		p.client = &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	if o.RatePerSecond > 0 {
		burst := o.Burst
		if burst <= 0 {
			burst = 1
		}
		p.limiter = rate.NewLimiter(rate.Limit(o.RatePerSecond), burst)
	}
	return p
}

func (p poster) postJSON(ctx context.Context, url string, headers map[string]string, payload any) ([]byte, error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}
