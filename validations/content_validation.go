package validations

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"github.com/AzielCF/az-localseo/content/domain"
	pkgError "github.com/AzielCF/az-localseo/pkg/error"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// 64 GiB, el máximo que acepta el host de video largo
const maxLongVideoSize = 64 << 30

func kindNames(kinds []domain.ArtifactKind) []interface{} {
	out := make([]interface{}, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, string(k))
	}
	return out
}

func channelNames() []interface{} {
	out := make([]interface{}, 0, len(domain.AllChannels))
	for _, c := range domain.AllChannels {
		out = append(out, string(c))
	}
	return out
}

func ValidateGenerate(ctx context.Context, request domain.GenerateRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.Kinds, validation.Each(validation.In(kindNames(domain.GeneratedKinds)...))),
	)
	if err != nil {
		return pkgError.ValidationError(err.Error())
	}
	return nil
}

func ValidatePublish(ctx context.Context, request domain.PublishRequest, now time.Time) error {
	futureRule := validation.By(func(value interface{}) error {
		at, _ := value.(*time.Time)
		if at != nil && !at.After(now) {
			return errors.New("must be in the future")
		}
		return nil
	})
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.Channels, validation.Required, validation.Each(validation.In(channelNames()...))),
		validation.Field(&request.ScheduleAt, futureRule),
	)
	if err != nil {
		return pkgError.ValidationError(err.Error())
	}
	if request.PostImmediate && request.ScheduleAt != nil {
		return pkgError.ValidationError("post_immediate and schedule_at are mutually exclusive")
	}
	return nil
}

func ValidateApprove(ctx context.Context, request domain.ApproveRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.Kinds, validation.Each(validation.In(kindNames(domain.GeneratedKinds)...))),
		validation.Field(&request.PostIDs, validation.Each(validation.Required)),
	)
	if err != nil {
		return pkgError.ValidationError(err.Error())
	}
	if len(request.Kinds) == 0 && len(request.PostIDs) == 0 {
		return pkgError.ValidationError("kinds or post_ids is required")
	}
	return nil
}

var videoExtRule = validation.By(func(value interface{}) error {
	s, _ := value.(string)
	switch filepath.Ext(s) {
	case ".mp4", ".mov", ".m4v", ".webm", ".mkv", ".avi":
		return nil
	}
	return errors.New("must be a video file (mp4, mov, m4v, webm, mkv, avi)")
})

func ValidateUploadInit(ctx context.Context, request domain.UploadInitRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.Filename, validation.Required, validation.Length(1, 255), videoExtRule),
		validation.Field(&request.TotalSize, validation.Required, validation.Min(int64(1)), validation.Max(int64(maxLongVideoSize))),
		validation.Field(&request.Title, validation.Length(0, 100)),
	)
	if err != nil {
		return pkgError.ValidationError(err.Error())
	}
	return nil
}
