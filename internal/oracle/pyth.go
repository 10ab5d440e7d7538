package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aman-zulfiqar/solana-reactive-trader/internal/constants"
)

var ErrNoPrice = errors.New("no price in response")

// Client reads the latest parsed price of one Pyth feed from Hermes.
type Client struct {
	BaseURL string
	FeedID  string
	HTTP    *http.Client
}

func NewClient(baseURL, feedID string) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = constants.PythHermesURL
	}
	if feedID == "" {
		feedID = constants.PythSOLUSDPriceID
	}
	return &Client{
		BaseURL: baseURL,
		FeedID:  feedID,
		HTTP: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type HTTPError struct {
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	b := strings.TrimSpace(string(e.Body))
	if b == "" {
		return fmt.Sprintf("hermes http %d", e.StatusCode)
	}
	return fmt.Sprintf("hermes http %d: %s", e.StatusCode, b)
}

type priceFields struct {
	Price       string `json:"price"`
	Conf        string `json:"conf"`
	Expo        int32  `json:"expo"`
	PublishTime int64  `json:"publish_time"`
}

type latestResponse struct {
	Parsed []struct {
		ID    string      `json:"id"`
		Price priceFields `json:"price"`
	} `json:"parsed"`
}

// Latest returns price × 10^expo of the first parsed update.
func (c *Client) Latest(ctx context.Context) (float64, error) {
	q := url.Values{}
	q.Add("ids[]", c.FeedID)
	q.Set("parsed", "true")

	u := c.BaseURL + "/v2/updates/price/latest?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("accept", "application/json")

	res, err := c.HTTP.Do(req)
	if err != nil {
		return 0, err
	}
	defer res.Body.Close()

	body, _ := io.ReadAll(res.Body)
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return 0, &HTTPError{StatusCode: res.StatusCode, Body: body}
	}

	var out latestResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return 0, fmt.Errorf("failed to decode hermes response: %w", err)
	}
	if len(out.Parsed) == 0 {
		return 0, ErrNoPrice
	}

	p := out.Parsed[0].Price
	raw, err := decimal.NewFromString(p.Price)
	if err != nil {
		return 0, fmt.Errorf("parse price %q: %w", p.Price, err)
	}
	price, _ := raw.Shift(p.Expo).Float64()
	if price <= 0 {
		return 0, ErrNoPrice
	}
	return price, nil
}
