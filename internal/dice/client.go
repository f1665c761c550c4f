package dice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	stdhttp "net/http"
	"time"
)

var (
	// ErrBadStatus is returned for any non-2xx reply from the dice service.
	ErrBadStatus = errors.New("bad response from dice service")
	// ErrOutOfRange is returned when the service answers with an impossible face.
	ErrOutOfRange = errors.New("dice value out of range")
)

// Client calls the dice service over HTTP. It implements core.DiceRoller.
type Client struct {
	baseURL string
	http    *stdhttp.Client
}

// NewClient builds a client for baseURL. timeout bounds the whole request.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &stdhttp.Client{Timeout: timeout},
	}
}

// Roll requests one dice value.
func (c *Client) Roll(ctx context.Context) (int, error) {
	req, err := stdhttp.NewRequestWithContext(ctx, stdhttp.MethodGet, c.baseURL, nil)
	if err != nil {
		return 0, fmt.Errorf("build dice request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("dice request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("%w: status %d", ErrBadStatus, resp.StatusCode)
	}

	var body RollResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("decode dice response: %w", err)
	}
	if body.Value < MinFace || body.Value > MaxFace {
		return 0, fmt.Errorf("%w: %d", ErrOutOfRange, body.Value)
	}

	return body.Value, nil
}
