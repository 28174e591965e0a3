package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/scenesync/internal/core/domain"
	"github.com/custodia-labs/scenesync/internal/core/ports/driven"
)

const (
	// DefaultFetchTimeout bounds a single entry request.
	DefaultFetchTimeout = 4 * time.Second

	// maxEntryBytes bounds a fetched entry payload.
	maxEntryBytes = 4 << 20
)

var _ driven.Fetcher = (*Fetcher)(nil)

// Fetcher retrieves entries from the writer that published them.
// Requests are throttled by a token bucket and bounded by a timeout.
type Fetcher struct {
	book    AddressBook
	signer  *Signer
	client  *http.Client
	limiter *rate.Limiter
	timeout time.Duration
}

// NewFetcher creates a Fetcher. perSecond <= 0 disables throttling and
// timeout <= 0 uses DefaultFetchTimeout. If client is nil,
// http.DefaultClient is used.
func NewFetcher(book AddressBook, signer *Signer, perSecond float64, burst int, timeout time.Duration, client *http.Client) *Fetcher {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	if client == nil {
		client = http.DefaultClient
	}
	if signer == nil {
		signer = NewSigner("")
	}
	return &Fetcher{
		book:    book,
		signer:  signer,
		client:  client,
		limiter: rate.NewLimiter(limit, burst),
		timeout: timeout,
	}
}

// Fetch retrieves writer's entry seq. Every failure is a *domain.FetchError.
func (f *Fetcher) Fetch(ctx context.Context, writer domain.WriterID, seq uint64) ([]byte, error) {
	base, ok := f.book.Addr(writer)
	if !ok {
		return nil, domain.NewFetchError(domain.FetchRejected, writer, seq, errors.New("no known address"))
	}

	if err := f.limiter.Wait(ctx); err != nil {
		return nil, domain.NewFetchError(contextFailure(ctx), writer, seq, err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	target := fmt.Sprintf("%s/entries/%s/%s", base, url.PathEscape(string(writer)), strconv.FormatUint(seq, 10))
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, target, nil)
	if err != nil {
		return nil, domain.NewFetchError(domain.FetchRejected, writer, seq, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, domain.NewFetchError(requestFailure(ctx, reqCtx), writer, seq, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, domain.NewFetchError(domain.FetchRejected, writer, seq,
			fmt.Errorf("status %d", resp.StatusCode))
	}

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxEntryBytes))
	if err != nil {
		return nil, domain.NewFetchError(requestFailure(ctx, reqCtx), writer, seq, err)
	}

	if err := f.signer.Verify(resp.Header, writer, seq, payload); err != nil {
		return nil, domain.NewFetchError(domain.FetchAuthenticityFailed, writer, seq, err)
	}
	return payload, nil
}

// contextFailure classifies an error caused by ctx ending.
func contextFailure(ctx context.Context) domain.FetchFailure {
	if errors.Is(ctx.Err(), context.Canceled) {
		return domain.FetchCancelled
	}
	return domain.FetchTimeout
}

// requestFailure classifies a transport error. The caller's context takes
// precedence over the per-request timeout.
func requestFailure(parent, req context.Context) domain.FetchFailure {
	switch {
	case parent.Err() != nil:
		return contextFailure(parent)
	case errors.Is(req.Err(), context.DeadlineExceeded):
		return domain.FetchTimeout
	default:
		return domain.FetchRejected
	}
}
