package mediahost

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/AzielCF/az-localseo/content/domain"
	"github.com/sirupsen/logrus"
)

const httpTimeout = 30 * time.Second

var httpClient = &http.Client{Timeout: httpTimeout}

// ErrJobNotFound is returned by Cancel when the host already forgot the job.
var ErrJobNotFound = errors.New("media job not found")

// Client habla con un host de jobs asincronos (audio del podcast o render de video corto).
// Ambos exponen el mismo contrato: crear el job, consultarlo, publicarlo y cancelarlo.
type Client struct {
	name    string
	baseURL string
	token   string
}

func NewClient(name, baseURL, token string) *Client {
	return &Client{
		name:    name,
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		token:   strings.TrimSpace(token),
	}
}

// Configured reports whether the host has both an address and a token.
func (c *Client) Configured() bool {
	return c != nil && c.baseURL != "" && c.token != ""
}

type jobPayload struct {
	Reference string `json:"reference"`
	Title     string `json:"title"`
	Script    string `json:"script"`
}

type jobResponse struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnail_url"`
	ExternalID   string `json:"external_id"`
	Error        string `json:"error"`
}

func (c *Client) Submit(ctx context.Context, in domain.MediaSubmission) (string, error) {
	var resp jobResponse
	err := c.jsonRequest(ctx, http.MethodPost, c.baseURL+"/jobs", jobPayload{
		Reference: in.ItemID,
		Title:     in.Title,
		Script:    in.Script,
	}, &resp)
	if err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", fmt.Errorf("%s: job created without id", c.name)
	}
	logrus.WithFields(logrus.Fields{"host": c.name, "item_id": in.ItemID, "job_id": resp.ID}).Info("[MEDIA_HOST] Job submitted")
	return resp.ID, nil
}

func (c *Client) Status(ctx context.Context, jobID string) (domain.JobStatus, error) {
	var resp jobResponse
	if err := c.jsonRequest(ctx, http.MethodGet, c.jobURL(jobID), nil, &resp); err != nil {
		return domain.JobStatus{}, err
	}
	return domain.JobStatus{
		State:        mapState(resp.Status),
		URL:          resp.URL,
		ThumbnailURL: resp.ThumbnailURL,
		ExternalID:   firstNonEmpty(resp.ExternalID, jobID),
		Error:        resp.Error,
	}, nil
}

func (c *Client) Publish(ctx context.Context, jobID string) (domain.PublishedMedia, error) {
	var resp jobResponse
	if err := c.jsonRequest(ctx, http.MethodPost, c.jobURL(jobID)+"/publish", nil, &resp); err != nil {
		return domain.PublishedMedia{}, err
	}
	if resp.URL == "" {
		return domain.PublishedMedia{}, fmt.Errorf("%s: job %s published without url", c.name, jobID)
	}
	return domain.PublishedMedia{
		ExternalID:   firstNonEmpty(resp.ExternalID, jobID),
		URL:          resp.URL,
		ThumbnailURL: resp.ThumbnailURL,
	}, nil
}

// Cancel treats an unknown job as already cancelled.
func (c *Client) Cancel(ctx context.Context, jobID string) error {
	err := c.jsonRequest(ctx, http.MethodDelete, c.jobURL(jobID), nil, nil)
	if errors.Is(err, ErrJobNotFound) {
		return nil
	}
	return err
}

func (c *Client) jobURL(jobID string) string {
	return c.baseURL + "/jobs/" + url.PathEscape(jobID)
}

func (c *Client) jsonRequest(ctx context.Context, method, url string, body interface{}, dest interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", c.name, err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %w", c.name, ErrJobNotFound)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%s request failed: status=%d body=%s", c.name, resp.StatusCode, string(data))
	}
	if dest != nil && len(data) > 0 {
		return json.Unmarshal(data, dest)
	}
	return nil
}

// mapState normaliza los estados de los hosts; lo desconocido sigue en proceso
func mapState(status string) domain.JobState {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "ready", "completed", "done", "rendered":
		return domain.JobReady
	case "published", "live":
		return domain.JobPublished
	case "scheduled":
		return domain.JobScheduled
	case "failed", "error", "cancelled", "canceled":
		return domain.JobFailed
	default:
		return domain.JobProcessing
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
