package application

import (
	"context"
	"errors"

	"github.com/AzielCF/az-localseo/content/domain"
	"github.com/AzielCF/az-localseo/pkg/pipelinemonitor"
	"github.com/sirupsen/logrus"
)

// Reconciler pulls the state of every in-flight artifact and post from the system that owns it.
// It is idempotent and never moves a record backwards: writes are compare-and-set on the status it read.
type Reconciler struct {
	items    domain.ItemRepository
	hosts    MediaHosts
	social   domain.SocialScheduler
	embeds   *EmbedComposer
	settings Settings
}

func NewReconciler(items domain.ItemRepository, hosts MediaHosts, social domain.SocialScheduler, embeds *EmbedComposer, settings Settings) *Reconciler {
	if settings == nil {
		settings = staticSettings{}
	}
	return &Reconciler{items: items, hosts: hosts, social: social, embeds: embeds, settings: settings}
}

type advance int

const (
	unchanged advance = iota
	advancedReady
	advancedPublished
	advancedFailed
)

func (r *Reconciler) Reconcile(ctx context.Context, itemID string) (domain.ReconcileReport, error) {
	var report domain.ReconcileReport
	item, err := r.items.Get(ctx, itemID)
	if err != nil {
		return report, err
	}

	mediaPublished := false
	for _, kind := range []domain.ArtifactKind{domain.KindPodcast, domain.KindShortVideo, domain.KindLongVideo} {
		a, ok := item.Artifacts[kind]
		if !ok || a.Status != domain.ArtifactProcessing {
			continue
		}
		res := r.reconcileArtifact(ctx, *a)
		count(&report, res)
		if res == advancedPublished {
			mediaPublished = true
		}
	}

	for _, p := range item.Posts {
		if !p.Status.InFlight() {
			continue
		}
		count(&report, r.reconcilePost(ctx, *p))
	}

	if mediaPublished && r.embeds != nil && r.settings.AutoEmbed(ctx) {
		if _, err := r.embeds.EmbedAll(ctx, item.ID); err != nil && !errors.Is(err, domain.ErrPrecondition) {
			logrus.WithError(err).Warnf("[RECONCILE] Embedding media into item %s failed", item.ID)
		}
	}

	if report != (domain.ReconcileReport{}) {
		status := pipelinemonitor.StatusOK
		if report.Failed > 0 {
			status = pipelinemonitor.StatusError
		}
		if report.Advanced > 0 || report.Failed > 0 {
			pipelinemonitor.Record(pipelinemonitor.Event{
				ItemID:   item.ID,
				ClientID: item.ClientID,
				Stage:    pipelinemonitor.StageReconcile,
				Status:   status,
			})
		}
		logrus.WithFields(logrus.Fields{
			"item_id":          item.ID,
			"advanced":         report.Advanced,
			"still_processing": report.StillProcessing,
			"failed":           report.Failed,
		}).Info("[RECONCILE] Item reconciled")
	}
	return report, nil
}

func count(report *domain.ReconcileReport, res advance) {
	switch res {
	case advancedReady, advancedPublished:
		report.Advanced++
	case advancedFailed:
		report.Failed++
	default:
		report.StillProcessing++
	}
}

func (r *Reconciler) reconcileArtifact(ctx context.Context, a domain.Artifact) advance {
	if a.ExternalID == "" {
		a.Status = domain.ArtifactFailed
		a.Error = "no external job id recorded"
		return r.casArtifact(ctx, &a, advancedFailed)
	}

	var (
		st  domain.JobStatus
		err error
	)
	if a.Kind == domain.KindLongVideo {
		if r.hosts.LongVideo == nil {
			return unchanged
		}
		st, err = r.hosts.LongVideo.Status(ctx, a.ExternalID)
	} else {
		host := r.hosts.forKind(a.Kind)
		if host == nil {
			return unchanged
		}
		st, err = host.Status(ctx, a.ExternalID)
	}
	if err != nil {
		// Un error de consulta sólo retrasa la reconciliación
		logrus.WithError(err).Debugf("[RECONCILE] Status query for %s %s failed", a.Kind, a.ExternalID)
		return unchanged
	}

	if st.URL != "" {
		a.URL = st.URL
	}
	if st.ThumbnailURL != "" {
		a.ThumbnailURL = st.ThumbnailURL
	}

	var res advance
	switch st.State {
	case domain.JobReady:
		// El video largo no tiene paso de publish explícito: listo en el host es publicado
		if a.Kind == domain.KindLongVideo {
			res = advancedPublished
		} else {
			res = advancedReady
		}
	case domain.JobPublished:
		res = advancedPublished
	case domain.JobFailed:
		a.Status = domain.ArtifactFailed
		a.Error = st.Error
		if a.Error == "" {
			a.Error = "external processing failed"
		}
		return r.casArtifact(ctx, &a, advancedFailed)
	default:
		return unchanged
	}

	a.Error = ""
	if res == advancedReady {
		a.Status = domain.ArtifactReady
	} else {
		now := nowUTC()
		a.Status = domain.ArtifactPublished
		a.PublishedAt = &now
	}
	return r.casArtifact(ctx, &a, res)
}

func (r *Reconciler) casArtifact(ctx context.Context, a *domain.Artifact, res advance) advance {
	ok, err := r.items.CompareAndSetArtifact(ctx, a, domain.ArtifactProcessing)
	if err != nil {
		logrus.WithError(err).Warnf("[RECONCILE] Saving %s of item %s failed", a.Kind, a.ItemID)
		return unchanged
	}
	if !ok {
		// Otro proceso ya movió el artefacto
		return unchanged
	}
	return res
}

func (r *Reconciler) reconcilePost(ctx context.Context, p domain.SocialPost) advance {
	if r.social == nil {
		return unchanged
	}
	expect := p.Status
	if p.ExternalPostID == "" {
		p.Status = domain.ArtifactFailed
		p.Error = "no external post id recorded"
		return r.casPost(ctx, &p, expect, advancedFailed)
	}

	st, err := r.social.Status(ctx, p.ExternalPostID)
	if err != nil {
		logrus.WithError(err).Debugf("[RECONCILE] Status query for post %s failed", p.ExternalPostID)
		return unchanged
	}
	if st.URL != "" {
		p.URL = st.URL
	}

	switch st.State {
	case domain.JobPublished, domain.JobReady:
		p.Status = domain.ArtifactPublished
		p.Error = ""
		return r.casPost(ctx, &p, expect, advancedPublished)
	case domain.JobFailed:
		p.Status = domain.ArtifactFailed
		p.Error = st.Error
		if p.Error == "" {
			p.Error = "external processing failed"
		}
		return r.casPost(ctx, &p, expect, advancedFailed)
	case domain.JobScheduled:
		if expect != domain.ArtifactScheduled {
			p.Status = domain.ArtifactScheduled
			r.casPost(ctx, &p, expect, unchanged)
		}
	}
	return unchanged
}

func (r *Reconciler) casPost(ctx context.Context, p *domain.SocialPost, expect domain.ArtifactStatus, res advance) advance {
	ok, err := r.items.CompareAndSetPost(ctx, p, expect)
	if err != nil {
		logrus.WithError(err).Warnf("[RECONCILE] Saving post %s failed", p.ID)
		return unchanged
	}
	if !ok {
		return unchanged
	}
	return res
}

// Sweep reconciles every item that still has in-flight work.
func (r *Reconciler) Sweep(ctx context.Context) (domain.ReconcileReport, error) {
	var total domain.ReconcileReport
	ids, err := r.items.ListWithPendingWork(ctx)
	if err != nil {
		return total, err
	}
	for _, id := range ids {
		if ctx.Err() != nil {
			return total, ctx.Err()
		}
		report, err := r.Reconcile(ctx, id)
		if err != nil {
			logrus.WithError(err).Warnf("[RECONCILE] Item %s skipped", id)
			continue
		}
		total.Add(report)
	}
	return total, nil
}

// HandleWebhook runs the same reconciliation for a push notification. ref is an item id or the
// external id of one of its jobs or posts.
func (r *Reconciler) HandleWebhook(ctx context.Context, ref string) (string, domain.ReconcileReport, error) {
	itemID := ref
	if _, err := r.items.Get(ctx, ref); err != nil {
		if !errors.Is(err, domain.ErrItemNotFound) {
			return "", domain.ReconcileReport{}, err
		}
		itemID, err = r.items.FindByExternalID(ctx, ref)
		if err != nil {
			return "", domain.ReconcileReport{}, err
		}
	}
	report, err := r.Reconcile(ctx, itemID)
	return itemID, report, err
}
