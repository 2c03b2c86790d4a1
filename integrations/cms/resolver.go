package cms

import (
	"fmt"

	clientDomain "github.com/AzielCF/az-localseo/clients/domain"
	"github.com/AzielCF/az-localseo/content/domain"
)

// Resolver elige el CMS de cada marca: el blog del cliente o el sitio del directorio
type Resolver struct {
	directory *Client
}

// NewResolver takes the directory site credentials; an empty base URL leaves the directory unconfigured.
func NewResolver(directoryURL, directoryUser, directoryPassword string) *Resolver {
	r := &Resolver{}
	if directoryURL != "" && directoryUser != "" && directoryPassword != "" {
		r.directory = NewClient(directoryURL, directoryUser, directoryPassword)
	}
	return r
}

func (r *Resolver) ForBrand(client *clientDomain.Client, brand domain.Brand) (domain.CMSPublisher, error) {
	if brand == domain.BrandDirectory {
		if r.directory == nil {
			return nil, fmt.Errorf("directory cms: %w", domain.ErrNotConfigured)
		}
		return r.directory, nil
	}
	if !client.CMS.IsConfigured() {
		return nil, fmt.Errorf("cms of client %s: %w", client.ID, domain.ErrNotConfigured)
	}
	return NewClient(client.CMS.BaseURL, client.CMS.Username, client.CMS.AppPassword), nil
}
