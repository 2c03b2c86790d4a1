package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	clientDomain "github.com/AzielCF/az-localseo/clients/domain"
	"github.com/AzielCF/az-localseo/content/domain"
	"github.com/AzielCF/az-localseo/pkg/pipelinemonitor"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

var defaultPlatforms = []string{"facebook", "instagram"}

// Generators agrupa los generadores opacos de cada tipo de artefacto.
type Generators struct {
	Article domain.ArticleGenerator
	Images  domain.ImageGenerator
	Scripts domain.ScriptGenerator
	Social  domain.SocialGenerator
}

type DispatcherDeps struct {
	Items      domain.ItemRepository
	Clients    ClientDirectory
	Generators Generators
	Hosts      MediaHosts
	Social     domain.SocialScheduler
	Pages      domain.PageMatcher
	Settings   Settings

	// Limiter bounds generator calls; it may be shared with the publish orchestrator.
	Limiter      *semaphore.Weighted
	Timeout      time.Duration
	RelatedPages int
}

// Dispatcher runs the generators of an item, one goroutine per kind, and persists each result on its own.
type Dispatcher struct {
	items        domain.ItemRepository
	clients      ClientDirectory
	gens         Generators
	hosts        MediaHosts
	social       domain.SocialScheduler
	pages        domain.PageMatcher
	settings     Settings
	limiter      *semaphore.Weighted
	timeout      time.Duration
	relatedPages int
}

func NewDispatcher(deps DispatcherDeps) *Dispatcher {
	d := &Dispatcher{
		items:        deps.Items,
		clients:      deps.Clients,
		gens:         deps.Generators,
		hosts:        deps.Hosts,
		social:       deps.Social,
		pages:        deps.Pages,
		settings:     deps.Settings,
		limiter:      deps.Limiter,
		timeout:      deps.Timeout,
		relatedPages: deps.RelatedPages,
	}
	if d.limiter == nil {
		d.limiter = semaphore.NewWeighted(4)
	}
	if d.settings == nil {
		d.settings = staticSettings{}
	}
	if d.timeout <= 0 {
		d.timeout = 5 * time.Minute
	}
	return d
}

// Generate (re)generates kinds for an item. An empty set means every kind enabled for the client.
// The returned error covers item-level preconditions only; per-kind failures live in the results.
func (d *Dispatcher) Generate(ctx context.Context, itemID string, kinds domain.KindSet, opts domain.GenerateOptions) (*domain.Results[domain.ArtifactKind], error) {
	item, err := d.items.Get(ctx, itemID)
	if err != nil {
		return nil, err
	}
	switch item.Status {
	case domain.StatusGenerating:
		return nil, domain.ErrGenerationInProgress
	case domain.StatusFailed:
		return nil, domain.ErrRetryRequired
	}
	return d.dispatch(ctx, item, kinds, opts, []domain.ItemStatus{domain.StatusDraft, domain.StatusReview})
}

// dispatch moves the item to GENERATING (PUBLISHED items stay PUBLISHED), runs the kinds and resolves the status.
func (d *Dispatcher) dispatch(ctx context.Context, item *domain.ContentItem, kinds domain.KindSet, opts domain.GenerateOptions, from []domain.ItemStatus) (*domain.Results[domain.ArtifactKind], error) {
	client, err := d.clients.GetByID(ctx, item.ClientID)
	if err != nil {
		return nil, err
	}
	if kinds == nil || kinds.Len() == 0 {
		kinds = enabledKinds(client)
	}

	results := domain.NewResults[domain.ArtifactKind]()
	runnable := make([]domain.ArtifactKind, 0, kinds.Len())
	for _, kind := range kinds.Sorted() {
		if hasExternalState(item, kind) && !opts.ConfirmOverwrite {
			results.Fail(kind, fmt.Errorf("%w: %w", domain.ErrOverwriteNeedsConfirmation, domain.ErrPrecondition))
			continue
		}
		runnable = append(runnable, kind)
	}
	if len(runnable) == 0 {
		return results, nil
	}

	published := item.Status == domain.StatusPublished
	if !published {
		ok, err := d.items.TransitionStatus(ctx, item.ID, from, domain.StatusGenerating, "")
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, domain.ErrGenerationInProgress
		}
	}

	if opts.ConfirmOverwrite {
		d.cancelExternal(ctx, item, runnable)
	}

	briefs := d.briefs(ctx, item, client)

	// Copias por tipo: cada goroutine escribe sólo su artefacto
	work := make(map[domain.ArtifactKind]*domain.Artifact, len(runnable))
	for _, kind := range runnable {
		cp := *item.Artifact(kind)
		work[kind] = &cp
	}

	logrus.WithFields(logrus.Fields{"item_id": item.ID, "kinds": runnable}).Info("[GENERATION] Dispatching generators")

	var g errgroup.Group
	for _, kind := range runnable {
		kind := kind
		g.Go(func() error {
			if err := d.limiter.Acquire(ctx, 1); err != nil {
				results.Fail(kind, err)
				return nil
			}
			defer d.limiter.Release(1)

			kctx, cancel := context.WithTimeout(ctx, d.timeout)
			defer cancel()

			started := time.Now()
			status, err := d.generateKind(kctx, item, client, work[kind], briefs)
			pipelinemonitor.Record(pipelinemonitor.Since(pipelinemonitor.Event{
				ItemID:   item.ID,
				ClientID: item.ClientID,
				Stage:    pipelinemonitor.StageGenerate,
				Kind:     string(kind),
				Status:   pipelinemonitor.StatusOf(err),
				Error:    pipelinemonitor.ErrorOf(err),
			}, started))
			if err != nil {
				logrus.WithError(err).WithFields(logrus.Fields{"item_id": item.ID, "kind": kind}).Warn("[GENERATION] Generator failed")
				results.Fail(kind, err)
				return nil
			}
			results.Succeed(kind, status)
			return nil
		})
	}
	_ = g.Wait()

	if published {
		return results, nil
	}
	return results, d.resolveStatus(ctx, item.ID, results)
}

func (d *Dispatcher) resolveStatus(ctx context.Context, itemID string, results *domain.Results[domain.ArtifactKind]) error {
	fresh, err := d.items.Get(ctx, itemID)
	if err != nil {
		return err
	}
	next := fresh.StatusAfterGeneration()
	lastError := ""
	if err := results.Err(); err != nil {
		lastError = err.Error()
	}
	if next == domain.StatusFailed && lastError == "" {
		lastError = "article was not generated"
	}
	if _, err := d.items.TransitionStatus(ctx, itemID, []domain.ItemStatus{domain.StatusGenerating}, next, lastError); err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{"item_id": itemID, "status": next}).Info("[GENERATION] Item generation finished")
	return nil
}

// hasExternalState reports whether regenerating kind would overwrite something living in an external system.
func hasExternalState(item *domain.ContentItem, kind domain.ArtifactKind) bool {
	if a, ok := item.Artifacts[kind]; ok && a.Status.External() {
		return true
	}
	for _, brand := range []domain.Brand{domain.BrandClient, domain.BrandDirectory} {
		if brand.SocialKind() != kind {
			continue
		}
		for _, p := range item.PostsFor(brand) {
			if p.Status.External() {
				return true
			}
		}
	}
	return false
}

// cancelExternal pide la cancelación de trabajos en curso; nunca bloquea la regeneración.
func (d *Dispatcher) cancelExternal(ctx context.Context, item *domain.ContentItem, kinds []domain.ArtifactKind) {
	for _, kind := range kinds {
		if host := d.hosts.forKind(kind); host != nil {
			if a, ok := item.Artifacts[kind]; ok && a.Status == domain.ArtifactProcessing && a.ExternalID != "" {
				if err := host.Cancel(ctx, a.ExternalID); err != nil {
					logrus.WithError(err).Warnf("[GENERATION] Failed to cancel %s job %s", kind, a.ExternalID)
				}
			}
		}
	}
	cancelPosts(ctx, d.social, item, kinds)
}

func cancelPosts(ctx context.Context, social domain.SocialScheduler, item *domain.ContentItem, kinds []domain.ArtifactKind) {
	if social == nil {
		return
	}
	wanted := domain.NewSet(kinds...)
	for _, p := range item.Posts {
		if !wanted.Has(p.Brand.SocialKind()) || !p.Status.InFlight() || p.ExternalPostID == "" {
			continue
		}
		if err := social.Cancel(ctx, p.ExternalPostID); err != nil {
			logrus.WithError(err).Warnf("[GENERATION] Failed to cancel social post %s", p.ExternalPostID)
		}
	}
}

func (d *Dispatcher) briefs(ctx context.Context, item *domain.ContentItem, client *clientDomain.Client) map[domain.Brand]domain.Brief {
	base := domain.Brief{
		Question:      item.Question,
		LocationLabel: item.LocationLabel,
		BrandVoice:    client.BrandVoice,
		Industry:      client.Industry,
		Language:      client.Language,
	}

	clientBrief := base
	clientBrief.Brand = domain.BrandClient
	clientBrief.BrandName = client.Name
	clientBrief.WebsiteURL = client.WebsiteURL
	if d.pages != nil && client.SitemapURL != "" && d.relatedPages > 0 {
		related, err := d.pages.Related(ctx, client.SitemapURL, item.Question, d.relatedPages)
		if err != nil {
			logrus.WithError(err).Warnf("[GENERATION] Related pages unavailable for client %s", client.ID)
		} else {
			clientBrief.Related = related
		}
	}

	directoryBrief := base
	directoryBrief.Brand = domain.BrandDirectory
	directoryBrief.BrandName = d.settings.DirectoryName(ctx)

	return map[domain.Brand]domain.Brief{
		domain.BrandClient:    clientBrief,
		domain.BrandDirectory: directoryBrief,
	}
}

// generateKind invokes one generator and persists the artifact, or the error, for that kind only.
func (d *Dispatcher) generateKind(ctx context.Context, item *domain.ContentItem, client *clientDomain.Client, a *domain.Artifact, briefs map[domain.Brand]domain.Brief) (domain.ArtifactStatus, error) {
	var err error
	switch a.Kind {
	case domain.KindArticle:
		err = d.generateArticle(ctx, a, briefs[domain.BrandClient])
	case domain.KindDirectoryArticle:
		err = d.generateArticle(ctx, a, briefs[domain.BrandDirectory])
	case domain.KindImages:
		err = d.generateImages(ctx, a, briefs[domain.BrandClient])
	case domain.KindPodcast:
		err = d.generateMedia(ctx, item, a, briefs[domain.BrandClient], domain.ScriptPodcast)
	case domain.KindShortVideo:
		err = d.generateMedia(ctx, item, a, briefs[domain.BrandClient], domain.ScriptShortVideo)
	case domain.KindClientSocial:
		err = d.generateSocial(ctx, item, client, a, briefs[domain.BrandClient])
	case domain.KindDirectorySocial:
		err = d.generateSocial(ctx, item, client, a, briefs[domain.BrandDirectory])
	default:
		err = fmt.Errorf("kind %s cannot be generated", a.Kind)
	}

	if err != nil {
		a.Error = err.Error()
		if !a.Generated || a.Kind == domain.KindPodcast || a.Kind == domain.KindShortVideo {
			a.Status = domain.ArtifactFailed
		}
	}
	// Save con el contexto padre: el timeout del generador no debe impedir registrar el fallo
	if saveErr := d.items.SaveArtifact(context.WithoutCancel(ctx), a); saveErr != nil {
		return domain.ArtifactFailed, errors.Join(err, fmt.Errorf("persist %s: %w", a.Kind, saveErr))
	}
	return a.Status, err
}

func (d *Dispatcher) markGenerated(a *domain.Artifact) {
	now := nowUTC()
	a.Generated = true
	a.Approved = false
	a.Error = ""
	a.GeneratedAt = &now
}

func (d *Dispatcher) generateArticle(ctx context.Context, a *domain.Artifact, brief domain.Brief) error {
	if d.gens.Article == nil {
		return domain.ErrNotConfigured
	}
	content, err := d.gens.Article.GenerateArticle(ctx, brief)
	if err != nil {
		return err
	}
	// La imagen destacada y el último cuerpo enviado al CMS se conservan: el post publicado sigue
	// mostrando ese cuerpo hasta el próximo publish
	content.FeaturedMediaID = a.Content.FeaturedMediaID
	content.HTML = a.Content.HTML
	a.Content = content
	d.markGenerated(a)
	if a.Status != domain.ArtifactPublished {
		a.Status = domain.ArtifactDraft
	}
	return nil
}

func (d *Dispatcher) generateImages(ctx context.Context, a *domain.Artifact, brief domain.Brief) error {
	if d.gens.Images == nil {
		return domain.ErrNotConfigured
	}
	images, err := d.gens.Images.GenerateImages(ctx, brief)
	if err != nil {
		return err
	}
	if len(images) == 0 {
		return errors.New("image generator returned no images")
	}
	a.Content = domain.ArtifactContent{Images: images}
	d.markGenerated(a)
	a.Status = domain.ArtifactReady
	return nil
}

// generateMedia writes the script and submits it to the host; the job then belongs to the reconciler.
func (d *Dispatcher) generateMedia(ctx context.Context, item *domain.ContentItem, a *domain.Artifact, brief domain.Brief, format domain.ScriptFormat) error {
	host := d.hosts.forKind(a.Kind)
	if d.gens.Scripts == nil || host == nil {
		return domain.ErrNotConfigured
	}
	script, err := d.gens.Scripts.GenerateScript(ctx, brief, format)
	if err != nil {
		return err
	}
	a.Content = domain.ArtifactContent{Title: item.Question, Script: script}
	d.markGenerated(a)
	a.ExternalID, a.URL, a.ThumbnailURL, a.PublishedAt = "", "", "", nil

	jobID, err := host.Submit(ctx, domain.MediaSubmission{ItemID: item.ID, Title: item.Question, Script: script})
	if err != nil {
		return fmt.Errorf("submit %s: %w", a.Kind, err)
	}
	a.ExternalID = jobID
	a.Status = domain.ArtifactProcessing
	return nil
}

func (d *Dispatcher) generateSocial(ctx context.Context, item *domain.ContentItem, client *clientDomain.Client, a *domain.Artifact, brief domain.Brief) error {
	if d.gens.Social == nil {
		return domain.ErrNotConfigured
	}
	platforms := client.SocialPlatforms
	if len(platforms) == 0 {
		platforms = defaultPlatforms
	}
	drafts, err := d.gens.Social.GenerateSocial(ctx, brief, platforms)
	if err != nil {
		return err
	}
	if len(drafts) == 0 {
		return errors.New("social generator returned no posts")
	}

	posts := make([]*domain.SocialPost, 0, len(drafts))
	for _, draft := range drafts {
		posts = append(posts, &domain.SocialPost{
			ItemID:   item.ID,
			Brand:    brief.Brand,
			Platform: draft.Platform,
			Caption:  draft.Caption,
			Hashtags: draft.Hashtags,
			Status:   domain.ArtifactDraft,
		})
	}
	if err := d.items.ReplacePosts(ctx, item.ID, brief.Brand, posts); err != nil {
		return fmt.Errorf("persist posts: %w", err)
	}

	a.Content = domain.ArtifactContent{}
	d.markGenerated(a)
	a.Status = domain.ArtifactDraft
	return nil
}
