package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/AzielCF/az-localseo/content/domain"
	"github.com/AzielCF/az-localseo/pkg/utils"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// UploadService spools a long-form video in byte ranges and hands the finished file to the long-video host.
type UploadService struct {
	items      domain.ItemRepository
	uploads    domain.UploadRepository
	host       domain.LongVideoHost
	uploadsDir string
}

func NewUploadService(items domain.ItemRepository, uploads domain.UploadRepository, host domain.LongVideoHost, uploadsDir string) *UploadService {
	return &UploadService{items: items, uploads: uploads, host: host, uploadsDir: uploadsDir}
}

// ContentRange is a parsed "bytes start-end/total" header; end is inclusive.
type ContentRange struct {
	Start, End, Total int64
}

func (r ContentRange) Len() int64 {
	return r.End - r.Start + 1
}

func ParseContentRange(header string) (ContentRange, error) {
	var cr ContentRange
	spec, ok := strings.CutPrefix(strings.TrimSpace(header), "bytes ")
	if !ok {
		return cr, fmt.Errorf("%w: expected \"bytes start-end/total\"", domain.ErrUploadRange)
	}
	span, total, ok := strings.Cut(spec, "/")
	if !ok {
		return cr, fmt.Errorf("%w: missing total", domain.ErrUploadRange)
	}
	start, end, ok := strings.Cut(span, "-")
	if !ok {
		return cr, fmt.Errorf("%w: missing range", domain.ErrUploadRange)
	}

	var err error
	if cr.Start, err = strconv.ParseInt(start, 10, 64); err != nil {
		return cr, fmt.Errorf("%w: bad start", domain.ErrUploadRange)
	}
	if cr.End, err = strconv.ParseInt(end, 10, 64); err != nil {
		return cr, fmt.Errorf("%w: bad end", domain.ErrUploadRange)
	}
	if cr.Total, err = strconv.ParseInt(total, 10, 64); err != nil {
		return cr, fmt.Errorf("%w: bad total", domain.ErrUploadRange)
	}
	if cr.Start < 0 || cr.End < cr.Start || cr.End >= cr.Total {
		return cr, fmt.Errorf("%w: %d-%d/%d", domain.ErrUploadRange, cr.Start, cr.End, cr.Total)
	}
	return cr, nil
}

func (s *UploadService) Init(ctx context.Context, itemID string, req domain.UploadInitRequest) (*domain.UploadSession, error) {
	item, err := s.items.Get(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if a, ok := item.Artifacts[domain.KindLongVideo]; ok && a.Status == domain.ArtifactProcessing {
		return nil, precondition("long video of item %s is still processing", itemID)
	}

	id := uuid.New().String()
	path, err := utils.GetUploadSessionPath(s.uploadsDir, id)
	if err != nil {
		return nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create spool file: %w", err)
	}
	f.Close()

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = item.Question
	}
	session := &domain.UploadSession{
		ID:        id,
		ItemID:    itemID,
		Filename:  filepath.Base(req.Filename),
		Title:     title,
		TotalSize: req.TotalSize,
		Path:      path,
	}
	if err := s.uploads.CreateSession(ctx, session); err != nil {
		os.Remove(path)
		return nil, err
	}
	logrus.Infof("[UPLOAD] Session %s opened for item %s (%s, %s)", id, itemID, session.Filename, humanize.Bytes(uint64(req.TotalSize)))
	return session, nil
}

// WriteChunk appends one range. Ranges must arrive in order; a range already received is acknowledged
// without writing, so clients can resend after a dropped response.
func (s *UploadService) WriteChunk(ctx context.Context, sessionID string, cr ContentRange, body io.Reader) (*domain.UploadSession, error) {
	session, err := s.uploads.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if cr.Total != session.TotalSize {
		return nil, fmt.Errorf("%w: total %d does not match declared size %d", domain.ErrUploadRange, cr.Total, session.TotalSize)
	}
	if cr.End < session.Received {
		return session, nil
	}
	if cr.Start != session.Received {
		return nil, fmt.Errorf("%w: expected chunk starting at %d, got %d", domain.ErrUploadRange, session.Received, cr.Start)
	}

	f, err := os.OpenFile(session.Path, os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open spool file: %w", err)
	}
	defer f.Close()
	if _, err := f.Seek(cr.Start, io.SeekStart); err != nil {
		return nil, err
	}
	n, err := io.CopyN(f, body, cr.Len())
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: chunk body has %d bytes, range declares %d", domain.ErrUploadRange, n, cr.Len())
		}
		return nil, fmt.Errorf("write chunk: %w", err)
	}

	session.Received = cr.End + 1
	if err := s.uploads.UpdateReceived(ctx, sessionID, session.Received); err != nil {
		return nil, err
	}
	logrus.Debugf("[UPLOAD] Session %s: %s of %s", sessionID,
		humanize.Bytes(uint64(session.Received)), humanize.Bytes(uint64(session.TotalSize)))
	return session, nil
}

// Finalize pushes the complete file to the long-video host. The artifact stays PROCESSING until the
// reconciler sees the host finish.
func (s *UploadService) Finalize(ctx context.Context, sessionID string) (domain.PublishedMedia, error) {
	var out domain.PublishedMedia
	session, err := s.uploads.GetSession(ctx, sessionID)
	if err != nil {
		return out, err
	}
	if session.Received != session.TotalSize {
		return out, fmt.Errorf("%w: %d of %d bytes received", domain.ErrUploadIncomplete, session.Received, session.TotalSize)
	}
	if s.host == nil {
		return out, domain.ErrNotConfigured
	}
	item, err := s.items.Get(ctx, session.ItemID)
	if err != nil {
		return out, err
	}

	out, err = s.host.Upload(ctx, domain.LongVideoUpload{
		Path:        session.Path,
		Filename:    session.Filename,
		Size:        session.TotalSize,
		Title:       session.Title,
		Description: item.Question,
	})
	if err != nil {
		return out, fmt.Errorf("upload long video: %w", err)
	}

	now := nowUTC()
	a := item.Artifact(domain.KindLongVideo)
	a.Generated = true
	a.GeneratedAt = &now
	a.Status = domain.ArtifactProcessing
	a.ExternalID = out.ExternalID
	a.URL = out.URL
	a.ThumbnailURL = out.ThumbnailURL
	a.PublishedAt = nil
	a.Error = ""
	a.Content = domain.ArtifactContent{Title: session.Title}
	if err := s.items.SaveArtifact(ctx, a); err != nil {
		return out, err
	}

	if err := os.Remove(session.Path); err != nil && !os.IsNotExist(err) {
		logrus.WithError(err).Warnf("[UPLOAD] Removing spool file %s failed", session.Path)
	}
	if err := s.uploads.DeleteSession(ctx, sessionID); err != nil {
		logrus.WithError(err).Warnf("[UPLOAD] Deleting session %s failed", sessionID)
	}
	logrus.Infof("[UPLOAD] Long video of item %s handed to host as %s", item.ID, out.ExternalID)
	return out, nil
}
