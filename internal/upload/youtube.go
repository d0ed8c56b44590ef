package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"google.golang.org/api/youtube/v3"
)

const defaultUploadURL = "https://www.googleapis.com/upload/youtube/v3/videos"

// YouTubeClient implements Client against YouTube's resumable upload
// protocol. The chunk-level offset tracking the dispatcher needs is below
// the level the generated API surface exposes, so the resumable session is
// driven directly; the generated types still describe the request body.
type YouTubeClient struct {
	auth      *Authenticator
	uploadURL string // overridable for tests
	logger    *slog.Logger

	httpClient *http.Client // set by Authenticate
}

func NewYouTubeClient(auth *Authenticator, logger *slog.Logger) *YouTubeClient {
	return &YouTubeClient{auth: auth, uploadURL: defaultUploadURL, logger: logger}
}

// Authenticate materialises an authorised HTTP client from the stored
// OAuth token. No token, or a token the provider refuses to refresh, is a
// permanent failure.
func (c *YouTubeClient) Authenticate(ctx context.Context) error {
	httpClient, err := c.auth.HTTPClient(ctx)
	if err != nil {
		return err
	}
	c.httpClient = httpClient
	return nil
}

// Begin opens a resumable upload session and returns its handle.
func (c *YouTubeClient) Begin(ctx context.Context, meta Metadata, size int64) (Session, error) {
	if c.httpClient == nil {
		return nil, ErrNotAuthenticated
	}

	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       meta.Title,
			Description: meta.Description,
			CategoryId:  meta.CategoryID,
			Tags:        meta.Keywords,
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus: meta.Privacy,
		},
	}
	body, err := json.Marshal(video)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.uploadURL+"?uploadType=resumable&part=snippet,status",
		bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	req.Header.Set("X-Upload-Content-Type", "video/mp4")
	req.Header.Set("X-Upload-Content-Length", strconv.FormatInt(size, 10))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode != http.StatusOK {
		return nil, &UploadError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	uri := resp.Header.Get("Location")
	if uri == "" {
		return nil, fmt.Errorf("resumable session response has no Location header")
	}

	if c.logger != nil {
		c.logger.Info("resumable upload session opened", "bytes", size)
	}
	return &resumableSession{httpClient: c.httpClient, uri: uri}, nil
}

// resumableSession is one open YouTube resumable upload.
type resumableSession struct {
	httpClient *http.Client
	uri        string
}

func (s *resumableSession) Put(ctx context.Context, chunk []byte, offset, total int64) (*ChunkResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, s.uri, bytes.NewReader(chunk))
	if err != nil {
		return nil, err
	}
	last := offset + int64(len(chunk)) - 1
	req.Header.Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", offset, last, total))
	req.ContentLength = int64(len(chunk))

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	switch resp.StatusCode {
	case 308: // resume incomplete: the service confirms what it holds
		confirmed := offset + int64(len(chunk))
		if end, ok := parseRangeEnd(resp.Header.Get("Range")); ok {
			confirmed = end + 1
		}
		return &ChunkResult{Confirmed: confirmed}, nil

	case http.StatusOK, http.StatusCreated:
		var result struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(respBody, &result); err != nil || result.ID == "" {
			return nil, fmt.Errorf("upload finished but response has no video id: %s", respBody)
		}
		return &ChunkResult{Done: true, VideoID: result.ID, Confirmed: total}, nil

	default:
		return nil, &UploadError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}
}

// Offset queries the session for the bytes received so far, per the
// protocol's `Content-Range: bytes */<total>` probe. A 200/201 here means
// the service finished the upload before our response was lost, so the
// probe carries the terminal video id.
func (s *resumableSession) Offset(ctx context.Context, total int64) (*ChunkResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, s.uri, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Range", fmt.Sprintf("bytes */%d", total))

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	switch resp.StatusCode {
	case 308:
		if end, ok := parseRangeEnd(resp.Header.Get("Range")); ok {
			return &ChunkResult{Confirmed: end + 1}, nil
		}
		return &ChunkResult{}, nil // nothing received yet
	case http.StatusOK, http.StatusCreated:
		var result struct {
			ID string `json:"id"`
		}
		json.Unmarshal(respBody, &result)
		return &ChunkResult{Done: true, VideoID: result.ID, Confirmed: total}, nil
	default:
		return nil, &UploadError{StatusCode: resp.StatusCode}
	}
}

// parseRangeEnd extracts the last confirmed byte from a "bytes=0-999"
// response header.
func parseRangeEnd(header string) (int64, bool) {
	header = strings.TrimPrefix(header, "bytes=")
	_, endStr, ok := strings.Cut(header, "-")
	if !ok {
		return 0, false
	}
	end, err := strconv.ParseInt(endStr, 10, 64)
	if err != nil {
		return 0, false
	}
	return end, true
}
