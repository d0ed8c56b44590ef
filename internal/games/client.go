package games

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	defaultStoreURL = "https://store.steampowered.com/api/appdetails"
	lookupTimeout   = 10 * time.Second
)

// FailureKind classifies why a lookup did not produce a name.
type FailureKind string

const (
	FailOffline  FailureKind = "offline"    // request never reached the API
	FailTimeout  FailureKind = "timeout"    // request exceeded the deadline
	FailAPIError FailureKind = "api_error"  // API answered with a non-200 status
	FailDataErr  FailureKind = "data_error" // API answered 200 but without a usable name
)

// LookupError is a failed name lookup with its classification.
type LookupError struct {
	GameID string
	Kind   FailureKind
	Err    error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("lookup app %s: %s: %v", e.GameID, e.Kind, e.Err)
}

func (e *LookupError) Unwrap() error { return e.Err }

// Marker returns the cacheable placeholder value for this failure.
func (e *LookupError) Marker() string {
	switch e.Kind {
	case FailTimeout:
		return e.GameID + " " + markerTimeout
	case FailAPIError:
		return e.GameID + " " + markerAPIError
	case FailDataErr:
		return e.GameID + " " + markerDataErr
	default:
		return e.GameID + " " + markerOffline
	}
}

// Client queries the Steam store appdetails endpoint.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient returns a store client. baseURL is overridable for tests; empty
// means the public API.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultStoreURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: lookupTimeout},
		baseURL:    baseURL,
	}
}

// Lookup fetches the display name for one app id. Failures come back as a
// *LookupError so callers can cache the right marker.
func (c *Client) Lookup(ctx context.Context, gameID string) (string, error) {
	endpoint := c.baseURL + "?" + url.Values{
		"appids":  {gameID},
		"filters": {"basic"},
	}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", &LookupError{GameID: gameID, Kind: FailOffline, Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		kind := FailOffline
		if errors.Is(err, context.DeadlineExceeded) {
			kind = FailTimeout
		}
		var urlErr *url.Error
		if errors.As(err, &urlErr) && urlErr.Timeout() {
			kind = FailTimeout
		}
		return "", &LookupError{GameID: gameID, Kind: kind, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &LookupError{
			GameID: gameID,
			Kind:   FailAPIError,
			Err:    fmt.Errorf("status %d", resp.StatusCode),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", &LookupError{GameID: gameID, Kind: FailDataErr, Err: err}
	}

	// Response shape: {"<appid>": {"success": bool, "data": {"name": "..."}}}
	var doc map[string]struct {
		Success bool `json:"success"`
		Data    struct {
			Name string `json:"name"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		return "", &LookupError{GameID: gameID, Kind: FailDataErr, Err: err}
	}

	entry, ok := doc[gameID]
	if !ok || !entry.Success || entry.Data.Name == "" {
		return "", &LookupError{
			GameID: gameID,
			Kind:   FailDataErr,
			Err:    errors.New("no name in response"),
		}
	}
	return entry.Data.Name, nil
}
