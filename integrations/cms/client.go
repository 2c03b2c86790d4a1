package cms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/AzielCF/az-localseo/content/domain"
	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
)

const httpTimeout = 30 * time.Second

var httpClient = &http.Client{Timeout: httpTimeout}

// maxMediaDownload limita lo que se descarga de una SourceURL antes de subirla
const maxMediaDownload = 20 << 20

// Client habla con la API REST de un WordPress usando application passwords.
type Client struct {
	baseURL     string
	username    string
	appPassword string
}

func NewClient(baseURL, username, appPassword string) *Client {
	return &Client{
		baseURL:     strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		username:    strings.TrimSpace(username),
		appPassword: strings.TrimSpace(appPassword),
	}
}

type postPayload struct {
	Title         string            `json:"title"`
	Slug          string            `json:"slug,omitempty"`
	Content       string            `json:"content"`
	Excerpt       string            `json:"excerpt,omitempty"`
	Status        string            `json:"status"`
	FeaturedMedia int64             `json:"featured_media,omitempty"`
	Meta          map[string]string `json:"meta,omitempty"`
}

type postResponse struct {
	ID   int64  `json:"id"`
	Link string `json:"link"`
}

// CreateOrUpdatePost creates a post when in.ID is empty, otherwise updates that post in place.
func (c *Client) CreateOrUpdatePost(ctx context.Context, in domain.CMSPostInput) (domain.CMSPost, error) {
	payload := postPayload{
		Title:   in.Title,
		Slug:    in.Slug,
		Content: in.HTML,
		Excerpt: in.Excerpt,
		Status:  "publish",
		Meta:    in.Meta,
	}
	if in.FeaturedMediaID != "" {
		id, err := strconv.ParseInt(in.FeaturedMediaID, 10, 64)
		if err != nil {
			return domain.CMSPost{}, fmt.Errorf("invalid featured media id %q", in.FeaturedMediaID)
		}
		payload.FeaturedMedia = id
	}

	url := c.baseURL + "/wp-json/wp/v2/posts"
	if in.ID != "" {
		url += "/" + in.ID
	}
	var resp postResponse
	if err := c.jsonRequest(ctx, http.MethodPost, url, payload, &resp); err != nil {
		return domain.CMSPost{}, err
	}

	post := domain.CMSPost{ID: strconv.FormatInt(resp.ID, 10), URL: resp.Link}
	logrus.Debugf("[CMS] Post %s saved on %s", post.ID, c.baseURL)
	return post, nil
}

// UploadMedia sube un archivo a la biblioteca de medios; si no trae Data se descarga de SourceURL
func (c *Client) UploadMedia(ctx context.Context, in domain.CMSMediaInput) (domain.CMSMedia, error) {
	data := in.Data
	contentType := in.ContentType
	if len(data) == 0 {
		if in.SourceURL == "" {
			return domain.CMSMedia{}, fmt.Errorf("media %q has no data or source url", in.Filename)
		}
		var err error
		data, contentType, err = download(ctx, in.SourceURL)
		if err != nil {
			return domain.CMSMedia{}, err
		}
	}
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(in.Filename))
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/wp-json/wp/v2/media", bytes.NewReader(data))
	if err != nil {
		return domain.CMSMedia{}, err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, strings.ReplaceAll(in.Filename, "\"", "_")))
	req.SetBasicAuth(c.username, c.appPassword)

	var resp struct {
		ID        int64  `json:"id"`
		SourceURL string `json:"source_url"`
	}
	if err := do(req, &resp); err != nil {
		return domain.CMSMedia{}, err
	}
	logrus.Infof("[CMS] Uploaded media %s (%s)", in.Filename, humanize.Bytes(uint64(len(data))))
	return domain.CMSMedia{ID: strconv.FormatInt(resp.ID, 10), URL: resp.SourceURL}, nil
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
	req.SetBasicAuth(c.username, c.appPassword)
	return do(req, dest)
}

func do(req *http.Request, dest interface{}) error {
	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode >= 400 {
		return fmt.Errorf("cms request failed: status=%d body=%s", resp.StatusCode, truncate(string(data), 512))
	}
	if dest != nil {
		return json.Unmarshal(data, dest)
	}
	return nil
}

func download(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, "", fmt.Errorf("download %s: status=%d", url, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxMediaDownload+1))
	if err != nil {
		return nil, "", err
	}
	if len(data) > maxMediaDownload {
		return nil, "", fmt.Errorf("download %s: larger than %s", url, humanize.Bytes(maxMediaDownload))
	}
	return data, resp.Header.Get("Content-Type"), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
