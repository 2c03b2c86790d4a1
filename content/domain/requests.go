package domain

import "time"

type GenerateRequest struct {
	Kinds            []string `json:"kinds"`
	ConfirmOverwrite bool     `json:"confirm_overwrite"`
}

type PublishRequest struct {
	Channels      []string   `json:"channels"`
	PostImmediate bool       `json:"post_immediate"`
	ScheduleAt    *time.Time `json:"schedule_at"`
}

// PublishOptions controla el momento de publicación de los posts sociales
type PublishOptions struct {
	PostImmediate bool
	ScheduleAt    *time.Time
}

type GenerateOptions struct {
	ConfirmOverwrite bool
}

type ApproveRequest struct {
	Kinds   []string `json:"kinds"`
	PostIDs []string `json:"post_ids"`
}

type UploadInitRequest struct {
	Filename  string `json:"filename"`
	TotalSize int64  `json:"total_size"`
	Title     string `json:"title"`
}

// ReconcileReport counts what one reconcile pass did.
type ReconcileReport struct {
	Advanced        int `json:"advanced"`
	StillProcessing int `json:"still_processing"`
	Failed          int `json:"failed"`
}

func (r *ReconcileReport) Add(o ReconcileReport) {
	r.Advanced += o.Advanced
	r.StillProcessing += o.StillProcessing
	r.Failed += o.Failed
}

// UploadSession tracks one chunked long-video upload.
type UploadSession struct {
	ID        string    `json:"id"`
	ItemID    string    `json:"item_id"`
	Filename  string    `json:"filename"`
	Title     string    `json:"title"`
	TotalSize int64     `json:"total_size"`
	Received  int64     `json:"received"`
	Path      string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
