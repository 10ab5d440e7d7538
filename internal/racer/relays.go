package racer

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/gagliardetto/solana-go"

	"github.com/aman-zulfiqar/solana-reactive-trader/internal/constants"
)

// relay is an HTTP delivery provider described by its payload and response shape.
type relay struct {
	name       string
	minTip     float64
	tipAccount solana.PublicKey
	regions    []Region
	headers    map[string]string
	payload    func(encoded string) any
	parse      func(body []byte) (string, error)
	poster
}

func (r *relay) Name() string                 { return r.name }
func (r *relay) MinTip() float64              { return r.minTip }
func (r *relay) TipAccount() solana.PublicKey { return r.tipAccount }
func (r *relay) Regions() []Region            { return r.regions }

func (r *relay) Send(ctx context.Context, region Region, encodedTx string) (string, error) {
	body, err := r.postJSON(ctx, region.URL, r.headers, r.payload(encodedTx))
	if err != nil {
		return "", err
	}
	return r.parse(body)
}

func jsonRPCSend(encoded string) any {
	return map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "sendTransaction",
		"params":  []any{encoded, map[string]any{"encoding": "base64"}},
	}
}

func parseJSONRPC(body []byte) (string, error) {
	var resp struct {
		Result string          `json:"result"`
		Error  json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", &APIError{Message: "decode response: " + err.Error()}
	}
	if hasValue(resp.Error) {
		return "", &APIError{Message: string(resp.Error)}
	}
	if resp.Result == "" {
		return "", &APIError{Message: "empty result"}
	}
	return resp.Result, nil
}

func parseSignatureField(body []byte) (string, error) {
	var resp struct {
		Signature string          `json:"signature"`
		Error     json.RawMessage `json:"error"`
		Reason    string          `json:"reason"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", &APIError{Message: "decode response: " + err.Error()}
	}
	if hasValue(resp.Error) {
		return "", &APIError{Message: string(resp.Error)}
	}
	if resp.Signature == "" {
		msg := resp.Reason
		if msg == "" {
			msg = strings.TrimSpace(string(body))
		}
		return "", &APIError{Message: msg}
	}
	return resp.Signature, nil
}

func hasValue(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return s != "" && s != "null"
}

func contentPayload(frontRunningProtection bool) func(string) any {
	return func(encoded string) any {
		return map[string]any{
			"transaction":            map[string]any{"content": encoded},
			"frontRunningProtection": frontRunningProtection,
		}
	}
}

func withQuery(base, key, value string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String()
}

// NewJito sends through Jito block engines. No auth.
func NewJito(o ProviderOptions) Provider {
	defaults := []Region{
		{Name: "amsterdam", URL: "https://amsterdam.mainnet.block-engine.jito.wtf/api/v1/transactions"},
		{Name: "frankfurt", URL: "https://frankfurt.mainnet.block-engine.jito.wtf/api/v1/transactions"},
		{Name: "mainnet", URL: "https://mainnet.block-engine.jito.wtf/api/v1/transactions"},
		{Name: "ny", URL: "https://ny.mainnet.block-engine.jito.wtf/api/v1/transactions"},
		{Name: "tokyo", URL: "https://tokyo.mainnet.block-engine.jito.wtf/api/v1/transactions"},
	}
	regions := o.regions(defaults)
	for i := range regions {
		regions[i].URL = withQuery(regions[i].URL, "bundleOnly", "false")
	}
	return &relay{
		name:       "jito",
		minTip:     constants.JitoMinTip,
		tipAccount: solana.MustPublicKeyFromBase58(constants.JitoTipAccount),
		regions:    regions,
		payload:    jsonRPCSend,
		parse:      parseJSONRPC,
		poster:     newPoster(o),
	}
}

// NewNextBlock sends through NextBlock with an Authorization key.
func NewNextBlock(apiKey string, o ProviderOptions) Provider {
	defaults := []Region{
		{Name: "frankfurt", URL: "https://fra.nextblock.io/api/v2/submit"},
		{Name: "ny", URL: "https://ny.nextblock.io/api/v2/submit"},
	}
	return &relay{
		name:       "nextblock",
		minTip:     constants.NextBlockMinTip,
		tipAccount: solana.MustPublicKeyFromBase58(constants.NextBlockTipAccount),
		regions:    o.regions(defaults),
		headers:    map[string]string{"Authorization": apiKey},
		payload:    contentPayload(false),
		parse:      parseSignatureField,
		poster:     newPoster(o),
	}
}

// NewNozomi sends through Temporal Nozomi; the key travels in the query string.
func NewNozomi(apiKey string, o ProviderOptions) Provider {
	defaults := []Region{
		{Name: "ams", URL: "http://nozomi-preview-ams.temporal.xyz/"},
		{Name: "fra", URL: "http://fra1.nozomi.temporal.xyz/"},
		{Name: "us-east", URL: "http://nozomi-preview-pit.temporal.xyz/"},
	}
	regions := o.regions(defaults)
	for i := range regions {
		regions[i].URL = withQuery(regions[i].URL, "c", apiKey)
	}
	return &relay{
		name:       "nozomi",
		minTip:     constants.NozomiMinTip,
		tipAccount: solana.MustPublicKeyFromBase58(constants.NozomiTipAccount),
		regions:    regions,
		payload:    jsonRPCSend,
		parse:      parseJSONRPC,
		poster:     newPoster(o),
	}
}

// NewBloXRoute sends through bloXroute trader API with an auth header.
func NewBloXRoute(authHeader string, o ProviderOptions) Provider {
	defaults := []Region{
		{Name: "uk", URL: "https://uk.solana.dex.blxrbdn.com/api/v2/submit"},
		{Name: "ny", URL: "https://ny.solana.dex.blxrbdn.com/api/v2/submit"},
		{Name: "la", URL: "https://la.solana.dex.blxrbdn.com/api/v2/submit"},
		{Name: "germany", URL: "https://germany.solana.dex.blxrbdn.com/api/v2/submit"},
		{Name: "amsterdam", URL: "https://amsterdam.solana.dex.blxrbdn.com/api/v2/submit"},
		{Name: "tokyo", URL: "https://tokyo.solana.dex.blxrbdn.com/api/v2/submit"},
	}
	return &relay{
		name:       "bloxroute",
		minTip:     constants.BloXRouteMinTip,
		tipAccount: solana.MustPublicKeyFromBase58(constants.BloXRouteTipAccount),
		regions:    o.regions(defaults),
		headers:    map[string]string{"Authorization": authHeader},
		payload: func(encoded string) any {
			return map[string]any{
				"transaction":            map[string]any{"content": encoded},
				"frontRunningProtection": false,
				"skipPreFlight":          true,
				"useStakedRPCs":          true,
				"sniping":                false,
				"fastBestEffort":         true,
			}
		},
		parse:  parseSignatureField,
		poster: newPoster(o),
	}
}

// NewZeroSlot sends through 0slot; the key travels as api-key and Authorization.
func NewZeroSlot(apiKey string, o ProviderOptions) Provider {
	defaults := []Region{
		{Name: "ny", URL: "https://ny.0slot.trade"},
		{Name: "de", URL: "https://de.0slot.trade"},
		{Name: "ams", URL: "https://ams.0slot.trade"},
	}
	regions := o.regions(defaults)
	for i := range regions {
		regions[i].URL = withQuery(regions[i].URL, "api-key", apiKey)
	}
	return &relay{
		name:       "zeroslot",
		minTip:     constants.ZeroSlotMinTip,
		tipAccount: solana.MustPublicKeyFromBase58(constants.ZeroSlotTipAccount),
		regions:    regions,
		headers:    map[string]string{"Authorization": apiKey},
		payload:    contentPayload(false),
		parse:      parseSignatureField,
		poster:     newPoster(o),
	}
}
