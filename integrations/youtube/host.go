package youtube

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/AzielCF/az-localseo/content/domain"
	"github.com/AzielCF/az-localseo/core/config"
	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

const defaultChunkSize = 8 << 20

// Host sube los videos largos al canal configurado y consulta su procesamiento.
type Host struct {
	service   *youtube.Service
	privacy   string
	chunkSize int
}

// New builds the host with a refresh-token source. Extra client options replace the
// OAuth transport, which is how tests point the service at a stub.
func New(ctx context.Context, cfg config.YouTubeConfig, opts ...option.ClientOption) (*Host, error) {
	if len(opts) == 0 {
		if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RefreshToken == "" {
			return nil, fmt.Errorf("youtube: %w", domain.ErrNotConfigured)
		}
		oauthConfig := &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Scopes:       []string{youtube.YoutubeUploadScope, youtube.YoutubeReadonlyScope},
			Endpoint:     google.Endpoint,
		}
		token := &oauth2.Token{
			RefreshToken: cfg.RefreshToken,
			TokenType:    "Bearer",
			Expiry:       time.Now().Add(-time.Minute), // fuerza el refresh en el primer uso
		}
		opts = []option.ClientOption{option.WithHTTPClient(oauthConfig.Client(ctx, token))}
	}

	service, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube service: %w", err)
	}

	privacy := strings.TrimSpace(cfg.Privacy)
	if privacy == "" {
		privacy = "unlisted"
	}
	chunk := cfg.ChunkSize
	if chunk <= 0 {
		chunk = defaultChunkSize
	}
	return &Host{service: service, privacy: privacy, chunkSize: chunk}, nil
}

func (h *Host) Upload(ctx context.Context, in domain.LongVideoUpload) (domain.PublishedMedia, error) {
	f, err := os.Open(in.Path)
	if err != nil {
		return domain.PublishedMedia{}, err
	}
	defer f.Close()

	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       truncateRunes(in.Title, 100),
			Description: truncateRunes(in.Description, 5000),
		},
		Status: &youtube.VideoStatus{PrivacyStatus: h.privacy},
	}

	started := time.Now()
	uploaded, err := h.service.Videos.Insert([]string{"snippet", "status"}, video).
		Media(f, googleapi.ChunkSize(h.chunkSize)).
		Context(ctx).
		Do()
	if err != nil {
		return domain.PublishedMedia{}, fmt.Errorf("youtube upload: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"video_id": uploaded.Id,
		"size":     humanize.Bytes(uint64(in.Size)),
		"took":     time.Since(started).Round(time.Second),
	}).Info("[UPLOAD] Long video handed to YouTube")

	return domain.PublishedMedia{
		ExternalID:   uploaded.Id,
		URL:          watchURL(uploaded.Id),
		ThumbnailURL: thumbnail(uploaded.Snippet),
	}, nil
}

func (h *Host) Status(ctx context.Context, externalID string) (domain.JobStatus, error) {
	resp, err := h.service.Videos.List([]string{"snippet", "status", "processingDetails"}).
		Id(externalID).
		Context(ctx).
		Do()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code >= 500 {
			return domain.JobStatus{}, fmt.Errorf("youtube status (retryable): %w", err)
		}
		return domain.JobStatus{}, fmt.Errorf("youtube status: %w", err)
	}
	if len(resp.Items) == 0 {
		return domain.JobStatus{State: domain.JobFailed, ExternalID: externalID, Error: "video not found"}, nil
	}

	v := resp.Items[0]
	st := domain.JobStatus{
		State:        videoState(v),
		URL:          watchURL(v.Id),
		ThumbnailURL: thumbnail(v.Snippet),
		ExternalID:   v.Id,
	}
	if st.State == domain.JobFailed && v.Status != nil {
		st.Error = firstNonEmpty(v.Status.FailureReason, v.Status.RejectionReason, v.Status.UploadStatus)
	}
	return st, nil
}

// videoState: "processed" o processing "succeeded" significa que ya es visible
func videoState(v *youtube.Video) domain.JobState {
	var upload, processing string
	if v.Status != nil {
		upload = v.Status.UploadStatus
	}
	if v.ProcessingDetails != nil {
		processing = v.ProcessingDetails.ProcessingStatus
	}
	switch {
	case upload == "failed" || upload == "rejected" || upload == "deleted":
		return domain.JobFailed
	case processing == "failed" || processing == "terminated":
		return domain.JobFailed
	case upload == "processed" || processing == "succeeded":
		return domain.JobPublished
	default:
		return domain.JobProcessing
	}
}

func watchURL(id string) string {
	if id == "" {
		return ""
	}
	return "https://www.youtube.com/watch?v=" + id
}

func thumbnail(s *youtube.VideoSnippet) string {
	if s == nil || s.Thumbnails == nil {
		return ""
	}
	for _, t := range []*youtube.Thumbnail{s.Thumbnails.Maxres, s.Thumbnails.High, s.Thumbnails.Medium, s.Thumbnails.Default} {
		if t != nil && t.Url != "" {
			return t.Url
		}
	}
	return ""
}

func truncateRunes(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n])
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
