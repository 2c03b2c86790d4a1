package social

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

var ErrPostNotFound = errors.New("social post not found")

// Client programa publicaciones en redes a traves del scheduler externo.
// Cada marca (cliente o directorio) tiene su propio profile key.
type Client struct {
	baseURL string
	apiKey  string
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:  strings.TrimSpace(apiKey),
	}
}

func (c *Client) Configured() bool {
	return c != nil && c.baseURL != "" && c.apiKey != ""
}

type postPayload struct {
	Platforms    []string `json:"platforms"`
	Post         string   `json:"post"`
	MediaURLs    []string `json:"media_urls,omitempty"`
	ScheduleDate string   `json:"schedule_date,omitempty"`
}

type postResponse struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	PostURL string `json:"post_url"`
	Error   string `json:"error"`
}

// Schedule posts now when req.At is nil, otherwise at that instant.
func (c *Client) Schedule(ctx context.Context, req domain.ScheduleRequest) (domain.ScheduleResult, error) {
	if req.ProfileKey == "" {
		return domain.ScheduleResult{}, fmt.Errorf("social profile: %w", domain.ErrNotConfigured)
	}
	payload := postPayload{
		Platforms: []string{req.Platform},
		Post:      composeText(req.Caption, req.Hashtags),
		MediaURLs: req.MediaURLs,
	}
	if req.At != nil {
		payload.ScheduleDate = req.At.UTC().Format(time.RFC3339)
	}

	var resp postResponse
	if err := c.jsonRequest(ctx, http.MethodPost, c.baseURL+"/posts", req.ProfileKey, payload, &resp); err != nil {
		return domain.ScheduleResult{}, err
	}
	if resp.ID == "" {
		return domain.ScheduleResult{}, errors.New("social scheduler returned no post id")
	}

	state := mapState(resp.Status)
	if req.At != nil && state == domain.JobProcessing {
		state = domain.JobScheduled
	}
	if state == domain.JobFailed {
		return domain.ScheduleResult{}, fmt.Errorf("social post rejected: %s", resp.Error)
	}
	logrus.WithFields(logrus.Fields{"platform": req.Platform, "post_id": resp.ID, "state": state}).Info("[SOCIAL] Post accepted")
	return domain.ScheduleResult{State: state, ExternalPostID: resp.ID, URL: resp.PostURL}, nil
}

func (c *Client) Status(ctx context.Context, externalPostID string) (domain.JobStatus, error) {
	var resp postResponse
	if err := c.jsonRequest(ctx, http.MethodGet, c.postURL(externalPostID), "", nil, &resp); err != nil {
		return domain.JobStatus{}, err
	}
	return domain.JobStatus{
		State:      mapState(resp.Status),
		URL:        resp.PostURL,
		ExternalID: externalPostID,
		Error:      resp.Error,
	}, nil
}

func (c *Client) Cancel(ctx context.Context, externalPostID string) error {
	err := c.jsonRequest(ctx, http.MethodDelete, c.postURL(externalPostID), "", nil, nil)
	if errors.Is(err, ErrPostNotFound) {
		return nil
	}
	return err
}

func (c *Client) postURL(id string) string {
	return c.baseURL + "/posts/" + url.PathEscape(id)
}

func (c *Client) jsonRequest(ctx context.Context, method, url, profileKey string, body interface{}, dest interface{}) error {
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
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if profileKey != "" {
		req.Header.Set("Profile-Key", profileKey)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode == http.StatusNotFound {
		return ErrPostNotFound
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("social scheduler request failed: status=%d body=%s", resp.StatusCode, string(data))
	}
	if dest != nil && len(data) > 0 {
		return json.Unmarshal(data, dest)
	}
	return nil
}

// composeText agrega los hashtags al final del caption, sin duplicar el '#'
func composeText(caption string, hashtags []string) string {
	tags := make([]string, 0, len(hashtags))
	for _, h := range hashtags {
		h = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(h), "#"))
		if h == "" {
			continue
		}
		tags = append(tags, "#"+strings.ReplaceAll(h, " ", ""))
	}
	caption = strings.TrimSpace(caption)
	if len(tags) == 0 {
		return caption
	}
	return caption + "\n\n" + strings.Join(tags, " ")
}

func mapState(status string) domain.JobState {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "success", "published", "posted":
		return domain.JobPublished
	case "scheduled", "pending":
		return domain.JobScheduled
	case "error", "failed", "deleted":
		return domain.JobFailed
	default:
		return domain.JobProcessing
	}
}
