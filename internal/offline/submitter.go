package offline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"
)

const (
	retryBase  = 500 * time.Millisecond
	maxRetries = 2
)

// HTTPSubmitter replays queued items against the server's normal completion
// endpoint. Transient failures (network loss, 5xx, throttling) are retried
// with exponential backoff within one Submit call; business rejections come
// back wrapped with ErrPermanent so the queue drops them.
type HTTPSubmitter struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewHTTPSubmitter(baseURL, token string) *HTTPSubmitter {
	return &HTTPSubmitter{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *HTTPSubmitter) Submit(ctx context.Context, item Item) error {
	backoff := retry.WithMaxRetries(maxRetries, retry.NewExponential(retryBase))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		return s.submitOnce(ctx, item)
	})
}

func (s *HTTPSubmitter) submitOnce(ctx context.Context, item Item) error {
	body, err := json.Marshal(map[string]int64{"kid_id": item.KidID})
	if err != nil {
		return fmt.Errorf("encode submission: %w", err)
	}

	url := fmt.Sprintf("%s/api/chores/%d/complete", s.baseURL, item.ChoreID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.client.Do(req)
	if err != nil {
		// Network loss: retry within this call, keep queued if it persists.
		return retry.RetryableError(fmt.Errorf("submit completion: %w", err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusCreated:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return retry.RetryableError(fmt.Errorf("throttled: %s", resp.Status))
	case resp.StatusCode >= 500:
		return retry.RetryableError(fmt.Errorf("server error: %s", resp.Status))
	case resp.StatusCode == http.StatusBadRequest,
		resp.StatusCode == http.StatusForbidden,
		resp.StatusCode == http.StatusNotFound,
		resp.StatusCode == http.StatusConflict,
		resp.StatusCode == http.StatusUnprocessableEntity:
		// Replaying can never succeed; the most common case is 409 when the
		// original submission landed before the client lost the ack.
		return fmt.Errorf("%w: %s", ErrPermanent, resp.Status)
	default:
		// 401 stays queued: the item is valid again once the client re-auths.
		return fmt.Errorf("submit completion: %s", resp.Status)
	}
}
