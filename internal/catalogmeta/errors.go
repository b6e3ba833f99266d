package catalogmeta

import "github.com/streamforge/gateway/internal/gwerrors"

func errCatalogStatus(status int) error {
	if status == 404 {
		return gwerrors.New(gwerrors.KindNotFound, "catalog metadata not found")
	}
	return gwerrors.New(gwerrors.KindUpstreamUnavailable, "catalog metadata service unavailable")
}
