package domain

// ItemStatus es el estado agregado de un item; sólo refleja la puerta del artículo principal
type ItemStatus string

const (
	StatusDraft      ItemStatus = "DRAFT"
	StatusGenerating ItemStatus = "GENERATING"
	StatusReview     ItemStatus = "REVIEW"
	StatusPublished  ItemStatus = "PUBLISHED"
	StatusFailed     ItemStatus = "FAILED"
)

var itemTransitions = map[ItemStatus][]ItemStatus{
	StatusDraft:      {StatusGenerating},
	StatusGenerating: {StatusReview, StatusFailed},
	StatusReview:     {StatusGenerating, StatusPublished},
	StatusFailed:     {StatusGenerating},
	StatusPublished:  {},
}

// CanTransition reports whether the state machine allows from -> to.
func (from ItemStatus) CanTransition(to ItemStatus) bool {
	for _, s := range itemTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ArtifactStatus se usa tanto para artefactos como para posts sociales
type ArtifactStatus string

const (
	ArtifactNone       ArtifactStatus = ""
	ArtifactDraft      ArtifactStatus = "draft"
	ArtifactProcessing ArtifactStatus = "processing"
	ArtifactReady      ArtifactStatus = "ready"
	ArtifactScheduled  ArtifactStatus = "scheduled"
	ArtifactPublished  ArtifactStatus = "published"
	ArtifactFailed     ArtifactStatus = "failed"
)

// InFlight reports states owned by an external system that the reconciler must poll.
func (s ArtifactStatus) InFlight() bool {
	return s == ArtifactProcessing || s == ArtifactScheduled
}

// External reports states that exist outside this service and need confirmation before overwrite.
func (s ArtifactStatus) External() bool {
	return s.InFlight() || s == ArtifactPublished
}

// Trigger distingue items del scheduler de los "produce now" manuales
type Trigger string

const (
	TriggerScheduled Trigger = "scheduled"
	TriggerManual    Trigger = "manual"
)
