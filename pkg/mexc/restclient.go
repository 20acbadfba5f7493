package mexc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

type RESTClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewRESTClient(baseURL string, timeout time.Duration) *RESTClient {
	return &RESTClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *RESTClient) HTTPClient() *http.Client {
	return c.httpClient
}

// GetKlines fetches bars for symbol between start and end (inclusive, second
// precision) ordered oldest first.
func (c *RESTClient) GetKlines(ctx context.Context, symbol string, interval KlineInterval,
	start, end time.Time) ([]Kline, error) {
	if !interval.IsValid() {
		return nil, fmt.Errorf("invalid interval %q", interval)
	}

	q := url.Values{}
	q.Set("interval", interval.APIValue())
	q.Set("start", fmt.Sprintf("%d", start.Unix()))
	q.Set("end", fmt.Sprintf("%d", end.Unix()))
	endpoint := fmt.Sprintf("%s/api/v1/contract/kline/%s?%s", c.baseURL, url.PathEscape(symbol), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("mexc error: status %d: %s", resp.StatusCode, body)
	}

	var rawResp Response
	if err := json.NewDecoder(resp.Body).Decode(&rawResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if !rawResp.Success || rawResp.Code != 0 {
		return nil, fmt.Errorf("mexc error: code=%d message=%s", rawResp.Code, rawResp.Message)
	}

	var result KlinesResponse
	if err := json.Unmarshal(rawResp.Data, &result); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}

	return ParseKlineList(symbol, interval, result), nil
}

// GetRecentKlines fetches roughly the last limit bars of the interval ending now.
func (c *RESTClient) GetRecentKlines(ctx context.Context, symbol string, interval KlineInterval,
	limit int) ([]Kline, error) {
	end := time.Now()
	start := end.Add(-time.Duration(limit) * interval.Duration())
	klines, err := c.GetKlines(ctx, symbol, interval, start, end)
	if err != nil {
		return nil, err
	}
	if len(klines) > limit {
		klines = klines[len(klines)-limit:]
	}
	return klines, nil
}
