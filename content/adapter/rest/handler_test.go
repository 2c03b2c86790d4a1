package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	clientApp "github.com/AzielCF/az-localseo/clients/application"
	clientDomain "github.com/AzielCF/az-localseo/clients/domain"
	clientRepo "github.com/AzielCF/az-localseo/clients/repository"
	"github.com/AzielCF/az-localseo/content/application"
	"github.com/AzielCF/az-localseo/content/domain"
	"github.com/AzielCF/az-localseo/content/repository"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type longHostStub struct{ size int64 }

func (s *longHostStub) Upload(_ context.Context, in domain.LongVideoUpload) (domain.PublishedMedia, error) {
	info, err := os.Stat(in.Path)
	if err != nil {
		return domain.PublishedMedia{}, err
	}
	s.size = info.Size()
	return domain.PublishedMedia{ExternalID: "yt-42", URL: "https://www.youtube.com/watch?v=yt-42"}, nil
}

func (s *longHostStub) Status(context.Context, string) (domain.JobStatus, error) {
	return domain.JobStatus{State: domain.JobProcessing}, nil
}

type fixture struct {
	app    *fiber.App
	items  *repository.ItemGormRepository
	client *clientDomain.Client
	host   *longHostStub
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	ctx := context.Background()
	items := repository.NewItemGormRepository(db)
	require.NoError(t, items.InitSchema(ctx))
	cr := clientRepo.NewClientGormRepository(db)
	lr := clientRepo.NewLocationGormRepository(db)
	tr := clientRepo.NewTopicGormRepository(db)
	for _, init := range []func(context.Context) error{cr.InitSchema, lr.InitSchema, tr.InitSchema} {
		require.NoError(t, init(ctx))
	}
	clients := clientApp.NewClientService(cr, lr, tr)
	client := &clientDomain.Client{Name: "Acme Roofing"}
	require.NoError(t, clients.Create(ctx, client))

	host := &longHostStub{}
	dispatcher := application.NewDispatcher(application.DispatcherDeps{Items: items, Clients: clients})
	svc := Services{
		Items:      application.NewItemService(items, dispatcher, application.MediaHosts{LongVideo: host}, nil),
		Generation: dispatcher,
		Publisher:  application.NewPublishOrchestrator(application.PublishDeps{Items: items, Clients: clients, Locations: clients}),
		Reconciler: application.NewReconciler(items, application.MediaHosts{LongVideo: host}, nil, nil, nil),
		Uploads:    application.NewUploadService(items, repository.NewUploadGormRepository(db), host, t.TempDir()),
	}

	app := fiber.New()
	h := NewContentHandler(svc, "s3cret")
	h.RegisterWebhooks(app)
	h.RegisterRoutes(app)
	return &fixture{app: app, items: items, client: client, host: host}
}

func (f *fixture) item(t *testing.T, status domain.ItemStatus) *domain.ContentItem {
	t.Helper()
	item := &domain.ContentItem{
		ClientID: f.client.ID,
		Question: "How much is a roof repair in Austin, TX?",
		Status:   status,
		Trigger:  domain.TriggerManual,
		CycleKey: "manual:" + uuid.New().String(),
	}
	require.NoError(t, f.items.Create(context.Background(), item))
	return item
}

func (f *fixture) do(t *testing.T, req *http.Request) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := f.app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	var body map[string]any
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &body), string(raw))
	}
	return resp, body
}

func jsonRequest(method, path string, body any) *http.Request {
	var reader io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestContentHandler_GetAndListItems(t *testing.T) {
	f := newFixture(t)
	item := f.item(t, domain.StatusReview)

	resp, body := f.do(t, jsonRequest(http.MethodGet, "/items/"+item.ID, nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, item.Question, body["question"])

	resp, body = f.do(t, jsonRequest(http.MethodGet, "/items?client_id="+f.client.ID+"&status=review", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, body["count"])

	resp, body = f.do(t, jsonRequest(http.MethodGet, "/items/missing", nil))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND_ERROR", body["code"])
}

func TestContentHandler_DeletePublishedNeedsConfirm(t *testing.T) {
	f := newFixture(t)
	item := f.item(t, domain.StatusPublished)

	resp, body := f.do(t, jsonRequest(http.MethodDelete, "/items/"+item.ID, nil))
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "CONFLICT", body["code"])

	resp, _ = f.do(t, jsonRequest(http.MethodDelete, "/items/"+item.ID+"?confirm=true", nil))
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestContentHandler_PublishValidation(t *testing.T) {
	f := newFixture(t)
	item := f.item(t, domain.StatusReview)

	resp, body := f.do(t, jsonRequest(http.MethodPost, "/items/"+item.ID+"/publish", map[string]any{"channels": []string{"fax"}}))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_ERROR", body["code"])

	// Un DRAFT no se puede publicar
	draft := f.item(t, domain.StatusDraft)
	resp, body = f.do(t, jsonRequest(http.MethodPost, "/items/"+draft.ID+"/publish", map[string]any{"channels": []string{"article"}}))
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "PRECONDITION_FAILED", body["code"])
}

func TestContentHandler_RetryNeedsFailedItem(t *testing.T) {
	f := newFixture(t)
	item := f.item(t, domain.StatusReview)

	resp, _ := f.do(t, jsonRequest(http.MethodPost, "/items/"+item.ID+"/retry", nil))
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestContentHandler_JobWebhook(t *testing.T) {
	f := newFixture(t)
	item := f.item(t, domain.StatusReview)

	resp, _ := f.do(t, jsonRequest(http.MethodPost, "/webhooks/jobs", map[string]any{"item_id": item.ID}))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body := f.do(t, jsonRequest(http.MethodPost, "/webhooks/jobs?token=s3cret", map[string]any{"item_id": item.ID}))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	results := body["results"].(map[string]any)
	assert.Equal(t, item.ID, results["item_id"])

	req := jsonRequest(http.MethodPost, "/webhooks/jobs", map[string]any{"external_id": "nobody-knows"})
	req.Header.Set("X-Webhook-Token", "s3cret")
	resp, _ = f.do(t, req)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestContentHandler_ChunkedUpload(t *testing.T) {
	f := newFixture(t)
	item := f.item(t, domain.StatusReview)

	resp, body := f.do(t, jsonRequest(http.MethodPost, "/items/"+item.ID+"/long-video/uploads",
		map[string]any{"filename": "tour.mp4", "total_size": 8}))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	sid := body["id"].(string)

	chunk := func(rangeHeader, data string) (*http.Response, map[string]any) {
		req := httptest.NewRequest(http.MethodPut, "/uploads/"+sid, bytes.NewReader([]byte(data)))
		req.Header.Set("Content-Range", rangeHeader)
		req.Header.Set("Content-Type", "application/octet-stream")
		return f.do(t, req)
	}

	resp, _ = chunk("bytes 4-7/8", "efgh")
	assert.Equal(t, http.StatusRequestedRangeNotSatisfiable, resp.StatusCode)
	resp, _ = chunk("bytes=0-3", "abcd")
	assert.Equal(t, http.StatusRequestedRangeNotSatisfiable, resp.StatusCode)

	resp, body = chunk("bytes 0-3/8", "abcd")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["complete"])

	resp, _ = f.do(t, jsonRequest(http.MethodPost, "/uploads/"+sid+"/finalize", nil))
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, body = chunk("bytes 4-7/8", "efgh")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["complete"])

	resp, body = f.do(t, jsonRequest(http.MethodPost, "/uploads/"+sid+"/finalize", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "yt-42", body["externalId"])
	assert.EqualValues(t, 8, f.host.size)

	stored, err := f.items.Get(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ArtifactProcessing, stored.Artifacts[domain.KindLongVideo].Status)
}
