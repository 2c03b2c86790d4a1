package validations

import (
	"context"
	"errors"
	"net/url"
	"regexp"

	"github.com/AzielCF/az-localseo/clients/domain"
	pkgError "github.com/AzielCF/az-localseo/pkg/error"
	"github.com/AzielCF/az-localseo/pkg/timeutils"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var slotDaysPattern = regexp.MustCompile(`^[0-6](,[0-6])*$`)

var urlRule = validation.By(func(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("must be a valid URL")
	}
	return nil
})

var clockRule = validation.By(func(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	_, _, err := timeutils.ParseClock(s)
	return err
})

func ValidateClient(ctx context.Context, request domain.ClientRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.Name, validation.Required, validation.Length(2, 120)),
		validation.Field(&request.WebsiteURL, urlRule),
		validation.Field(&request.SitemapURL, urlRule),
		validation.Field(&request.Cadence, validation.In("", string(domain.CadenceDaily), string(domain.CadenceWeekly), string(domain.CadenceBiweekly))),
		validation.Field(&request.SlotDays, validation.Match(slotDaysPattern), validation.When(request.AutomationEnabled, validation.Required)),
		validation.Field(&request.SlotTime, clockRule, validation.When(request.AutomationEnabled, validation.Required)),
		validation.Field(&request.EnabledKinds, validation.Each(validation.In(
			"article", "images", "directory_article", "podcast", "short_video", "client_social", "directory_social",
		))),
	)
	if err != nil {
		return pkgError.ValidationError(err.Error())
	}
	return nil
}

func ValidateLocation(ctx context.Context, request domain.LocationRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.City, validation.Required),
		validation.Field(&request.State, validation.Length(2, 2)),
		validation.Field(&request.MapEmbedURL, urlRule),
	)
	if err != nil {
		return pkgError.ValidationError(err.Error())
	}
	return nil
}

func ValidateTopic(ctx context.Context, request domain.TopicRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.Question, validation.Required, validation.Length(5, 500)),
		validation.Field(&request.Priority, validation.Min(0)),
	)
	if err != nil {
		return pkgError.ValidationError(err.Error())
	}
	return nil
}
