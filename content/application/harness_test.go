package application

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	clientApp "github.com/AzielCF/az-localseo/clients/application"
	clientDomain "github.com/AzielCF/az-localseo/clients/domain"
	clientRepo "github.com/AzielCF/az-localseo/clients/repository"
	"github.com/AzielCF/az-localseo/content/domain"
	"github.com/AzielCF/az-localseo/content/repository"
	"github.com/AzielCF/az-localseo/core/database"
	"github.com/AzielCF/az-localseo/infrastructure/lock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// --- Generators ---

type fakeArticles struct {
	mu     sync.Mutex
	brands []domain.Brand
	fail   map[domain.Brand]error
}

func (f *fakeArticles) GenerateArticle(_ context.Context, brief domain.Brief) (domain.ArtifactContent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.brands = append(f.brands, brief.Brand)
	if err := f.fail[brief.Brand]; err != nil {
		return domain.ArtifactContent{}, err
	}
	return domain.ArtifactContent{
		Title:    brief.Question,
		Slug:     "roof-repair-" + strings.ToLower(string(brief.Brand)),
		Excerpt:  "Costs explained",
		Markdown: "Lead paragraph for " + brief.BrandName + ".\n\nSecond paragraph.",
	}, nil
}

type fakeImages struct{ err error }

func (f *fakeImages) GenerateImages(context.Context, domain.Brief) ([]domain.Image, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []domain.Image{{URL: "https://cdn.test/roof.jpg", Width: 1600, Height: 900}}, nil
}

type fakeScripts struct{ err error }

func (f *fakeScripts) GenerateScript(_ context.Context, brief domain.Brief, format domain.ScriptFormat) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return string(format) + " script about " + brief.Question, nil
}

type fakeSocialCopy struct{}

func (fakeSocialCopy) GenerateSocial(_ context.Context, brief domain.Brief, platforms []string) ([]domain.SocialDraft, error) {
	drafts := make([]domain.SocialDraft, 0, len(platforms))
	for _, p := range platforms {
		drafts = append(drafts, domain.SocialDraft{Platform: p, Caption: string(brief.Brand) + " on " + p, Hashtags: []string{"#roofing"}})
	}
	return drafts, nil
}

// --- External systems ---

type fakeHost struct {
	mu        sync.Mutex
	prefix    string
	seq       int
	submitErr error
	states    map[string]domain.JobStatus
	published []string
	cancelled []string
}

func newFakeHost(prefix string) *fakeHost {
	return &fakeHost{prefix: prefix, states: map[string]domain.JobStatus{}}
}

func (h *fakeHost) Submit(context.Context, domain.MediaSubmission) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.submitErr != nil {
		return "", h.submitErr
	}
	h.seq++
	id := fmt.Sprintf("%s-%d", h.prefix, h.seq)
	h.states[id] = domain.JobStatus{State: domain.JobProcessing}
	return id, nil
}

func (h *fakeHost) set(id string, st domain.JobStatus) {
	h.mu.Lock()
	h.states[id] = st
	h.mu.Unlock()
}

func (h *fakeHost) Status(_ context.Context, id string) (domain.JobStatus, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	st, ok := h.states[id]
	if !ok {
		return domain.JobStatus{}, errors.New("unknown job")
	}
	return st, nil
}

func (h *fakeHost) Publish(_ context.Context, id string) (domain.PublishedMedia, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.published = append(h.published, id)
	return domain.PublishedMedia{ExternalID: id, URL: "https://media.test/" + id + ".mp4"}, nil
}

func (h *fakeHost) Cancel(_ context.Context, id string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cancelled = append(h.cancelled, id)
	return errors.New("cancel not supported")
}

type fakeLongHost struct {
	mu      sync.Mutex
	uploads []domain.LongVideoUpload
	data    []byte
	states  map[string]domain.JobStatus
}

func (h *fakeLongHost) Upload(_ context.Context, in domain.LongVideoUpload) (domain.PublishedMedia, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.uploads = append(h.uploads, in)
	data, err := os.ReadFile(in.Path)
	if err != nil {
		return domain.PublishedMedia{}, err
	}
	h.data = data
	return domain.PublishedMedia{ExternalID: "yt-1", URL: "https://www.youtube.com/watch?v=yt-1", ThumbnailURL: "https://i.ytimg.com/yt-1.jpg"}, nil
}

func (h *fakeLongHost) Status(_ context.Context, id string) (domain.JobStatus, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.states[id], nil
}

type fakeCMS struct {
	mu      sync.Mutex
	seq     int
	err     error
	inputs  []domain.CMSPostInput
	uploads int
}

func (c *fakeCMS) CreateOrUpdatePost(_ context.Context, in domain.CMSPostInput) (domain.CMSPost, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return domain.CMSPost{}, c.err
	}
	c.inputs = append(c.inputs, in)
	id := in.ID
	if id == "" {
		c.seq++
		id = fmt.Sprintf("%d", 100+c.seq)
	}
	return domain.CMSPost{ID: id, URL: "https://site.test/?p=" + id}, nil
}

func (c *fakeCMS) UploadMedia(context.Context, domain.CMSMediaInput) (domain.CMSMedia, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.uploads++
	return domain.CMSMedia{ID: "m1", URL: "https://site.test/roof.jpg"}, nil
}

func (c *fakeCMS) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.inputs)
}

func (c *fakeCMS) last() domain.CMSPostInput {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inputs[len(c.inputs)-1]
}

type fakeResolver struct {
	client    *fakeCMS
	directory *fakeCMS
}

func (r fakeResolver) ForBrand(_ *clientDomain.Client, brand domain.Brand) (domain.CMSPublisher, error) {
	if brand == domain.BrandDirectory {
		return r.directory, nil
	}
	return r.client, nil
}

// paragraphRenderer wraps each markdown block in <p>.
type paragraphRenderer struct{}

func (paragraphRenderer) Render(markdown string) (string, error) {
	var b strings.Builder
	for _, block := range strings.Split(markdown, "\n\n") {
		b.WriteString("<p>" + strings.TrimSpace(block) + "</p>")
	}
	return b.String(), nil
}

type fakeSocial struct {
	mu         sync.Mutex
	seq        int
	failOn     map[string]error
	rejectOn   map[string]bool
	onSchedule func(platform string)
	requests   []domain.ScheduleRequest
	states     map[string]domain.JobStatus
	cancelled  []string
}

func newFakeSocial() *fakeSocial {
	return &fakeSocial{failOn: map[string]error{}, rejectOn: map[string]bool{}, states: map[string]domain.JobStatus{}}
}

func (s *fakeSocial) Schedule(_ context.Context, req domain.ScheduleRequest) (domain.ScheduleResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	if err := s.failOn[req.Platform]; err != nil {
		return domain.ScheduleResult{}, err
	}
	if s.onSchedule != nil {
		s.onSchedule(req.Platform)
	}
	s.seq++
	if s.rejectOn[req.Platform] {
		return domain.ScheduleResult{State: domain.JobFailed, ExternalPostID: fmt.Sprintf("sp-%d", s.seq)}, nil
	}
	state := domain.JobProcessing
	if req.At != nil {
		state = domain.JobScheduled
	}
	return domain.ScheduleResult{State: state, ExternalPostID: fmt.Sprintf("sp-%d", s.seq)}, nil
}

func (s *fakeSocial) Status(_ context.Context, id string) (domain.JobStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[id]
	if !ok {
		return domain.JobStatus{State: domain.JobProcessing}, nil
	}
	return st, nil
}

func (s *fakeSocial) Cancel(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelled = append(s.cancelled, id)
	return nil
}

type fakeSettings struct {
	paused    bool
	autoEmbed bool
}

func (s fakeSettings) AutomationPaused(context.Context) bool { return s.paused }
func (s fakeSettings) AutoEmbed(context.Context) bool        { return s.autoEmbed }
func (s fakeSettings) DirectoryName(context.Context) string  { return "Local Pros Directory" }

// --- Harness ---

type harness struct {
	t        *testing.T
	items    *repository.ItemGormRepository
	uploads  *repository.UploadGormRepository
	clients  *clientApp.ClientService
	topics   *clientApp.TopicSelector
	rotator  *clientApp.LocationRotator
	tx       *database.Transactor
	locker   *lock.MemoryLocker
	articles *fakeArticles
	images   *fakeImages
	scripts  *fakeScripts
	audio    *fakeHost
	video    *fakeHost
	long     *fakeLongHost
	cms      fakeResolver
	social   *fakeSocial
	settings fakeSettings
	now      time.Time
}

func newHarness(t *testing.T) *harness {
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
	require.NoError(t, cr.InitSchema(ctx))
	require.NoError(t, lr.InitSchema(ctx))
	require.NoError(t, tr.InitSchema(ctx))

	return &harness{
		t:        t,
		items:    items,
		uploads:  repository.NewUploadGormRepository(db),
		clients:  clientApp.NewClientService(cr, lr, tr),
		topics:   clientApp.NewTopicSelector(tr),
		rotator:  clientApp.NewLocationRotator(lr),
		tx:       database.NewTransactor(db),
		locker:   lock.NewMemoryLocker(),
		articles: &fakeArticles{fail: map[domain.Brand]error{}},
		images:   &fakeImages{},
		scripts:  &fakeScripts{},
		audio:    newFakeHost("audio"),
		video:    newFakeHost("video"),
		long:     &fakeLongHost{states: map[string]domain.JobStatus{}},
		cms:      fakeResolver{client: &fakeCMS{}, directory: &fakeCMS{}},
		social:   newFakeSocial(),
		settings: fakeSettings{autoEmbed: true},
		// Lunes 2 de marzo de 2026, 10:00 UTC
		now: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
	}
}

func (h *harness) clock() time.Time { return h.now }

func (h *harness) hosts() MediaHosts {
	return MediaHosts{Audio: h.audio, Video: h.video, LongVideo: h.long}
}

func (h *harness) dispatcher() *Dispatcher {
	return NewDispatcher(DispatcherDeps{
		Items:   h.items,
		Clients: h.clients,
		Generators: Generators{
			Article: h.articles,
			Images:  h.images,
			Scripts: h.scripts,
			Social:  fakeSocialCopy{},
		},
		Hosts:    h.hosts(),
		Social:   h.social,
		Settings: h.settings,
	})
}

func (h *harness) embedder() *EmbedComposer {
	return NewEmbedComposer(h.items, h.clients, h.cms)
}

func (h *harness) publisher() *PublishOrchestrator {
	return NewPublishOrchestrator(PublishDeps{
		Items:               h.items,
		Clients:             h.clients,
		Locations:           h.clients,
		CMS:                 h.cms,
		Renderer:            paragraphRenderer{},
		Hosts:               h.hosts(),
		Social:              h.social,
		Embeds:              h.embedder(),
		Settings:            h.settings,
		DirectoryProfileKey: "directory-profile",
		Now:                 h.clock,
	})
}

func (h *harness) reconciler() *Reconciler {
	return NewReconciler(h.items, h.hosts(), h.social, h.embedder(), h.settings)
}

func (h *harness) scheduler(runner JobRunner) *CycleScheduler {
	return NewCycleScheduler(SchedulerDeps{
		Items:      h.items,
		Clients:    h.clients,
		Topics:     h.topics,
		Locations:  h.rotator,
		Tx:         h.tx,
		Generation: h.dispatcher(),
		Locker:     h.locker,
		Runner:     runner,
		Settings:   h.settings,
		Now:        h.clock,
	})
}

// client creates an automated client with one location and three custom topics. Slot: Mondays 09:00 UTC.
func (h *harness) client(mutate func(c *clientDomain.Client)) *clientDomain.Client {
	h.t.Helper()
	ctx := context.Background()
	c := &clientDomain.Client{
		Name:              "Acme Roofing",
		WebsiteURL:        "https://acme.test",
		Timezone:          "UTC",
		AutomationEnabled: true,
		Cadence:           clientDomain.CadenceWeekly,
		SlotDays:          "1",
		SlotTime:          "09:00",
		EnabledKinds:      []string{"article", "images"},
		SocialPlatforms:   []string{"facebook", "instagram"},
		SocialProfileKey:  "acme-profile",
	}
	if mutate != nil {
		mutate(c)
	}
	require.NoError(h.t, h.clients.Create(ctx, c))

	loc := &clientDomain.ServiceLocation{ClientID: c.ID, City: "Austin", State: "tx", Active: true,
		MapEmbedURL: "https://www.google.com/maps/embed?pb=austin"}
	require.NoError(h.t, h.clients.AddLocation(ctx, loc))
	for i, q := range []string{"How much is a roof repair in {location}?", "Best roofers in {location}?", "Roof inspection in {location}?"} {
		require.NoError(h.t, h.clients.AddTopic(ctx, &clientDomain.TopicEntry{ClientID: c.ID, Question: q, Priority: i, Active: true}))
	}
	return c
}

// reviewItem stores a REVIEW item whose article and images are generated.
func (h *harness) reviewItem(clientID string) *domain.ContentItem {
	h.t.Helper()
	return h.reviewItemAt(clientID, "")
}

func (h *harness) reviewItemAt(clientID, locationID string) *domain.ContentItem {
	h.t.Helper()
	ctx := context.Background()
	item := &domain.ContentItem{
		ClientID:      clientID,
		LocationID:    locationID,
		Question:      "How much is a roof repair in Austin, TX?",
		LocationLabel: "Austin, TX",
		Status:        domain.StatusReview,
		Trigger:       domain.TriggerManual,
		CycleKey:      "manual:" + uuid.New().String(),
	}
	require.NoError(h.t, h.items.Create(ctx, item))
	require.NoError(h.t, h.items.SaveArtifact(ctx, &domain.Artifact{
		ItemID: item.ID, Kind: domain.KindArticle, Generated: true, Status: domain.ArtifactDraft,
		Content: domain.ArtifactContent{Title: item.Question, Slug: "roof-repair-austin", Markdown: "Lead.\n\nBody."},
	}))
	require.NoError(h.t, h.items.SaveArtifact(ctx, &domain.Artifact{
		ItemID: item.ID, Kind: domain.KindImages, Generated: true, Status: domain.ArtifactReady,
		Content: domain.ArtifactContent{Images: []domain.Image{{URL: "https://cdn.test/roof.jpg"}}},
	}))
	return item
}

func (h *harness) artifact(itemID string, kind domain.ArtifactKind) *domain.Artifact {
	h.t.Helper()
	item, err := h.items.Get(context.Background(), itemID)
	require.NoError(h.t, err)
	a, ok := item.Artifacts[kind]
	require.True(h.t, ok, "artifact %s missing", kind)
	return a
}

func (h *harness) get(itemID string) *domain.ContentItem {
	h.t.Helper()
	item, err := h.items.Get(context.Background(), itemID)
	require.NoError(h.t, err)
	return item
}
