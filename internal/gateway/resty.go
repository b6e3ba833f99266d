package gateway

import (
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
)

var (
	sharedRestyOnce   sync.Once
	sharedRestyClient *resty.Client
)

// restyClient returns a process-wide plain HTTP client for unprotected
// passthrough calls (catalogs, subtitles) that don't warrant their own
// per-add-on client instance.
func restyClient() *resty.Client {
	sharedRestyOnce.Do(func() {
		sharedRestyClient = resty.New().SetTimeout(15 * time.Second)
	})
	return sharedRestyClient
}
