package adapters

import (
	"context"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"
	"github.com/viant/afs"
	"golang.org/x/text/encoding/htmlindex"

	"apim-schema-import/internal/core"
	"apim-schema-import/internal/ports"
	"apim-schema-import/internal/shared"
	"apim-schema-import/internal/types"
)

// maxErrorBody caps how much of a failed response is kept in the error.
const maxErrorBody = 512

// DocumentFetcherAdapter reads http(s) locations with net/http and every
// other location (paths, file://, mem://) through afs.
type DocumentFetcherAdapter struct {
	FS      afs.Service
	Timeout time.Duration
}

// NewDocumentFetcherAdapter builds a fetcher. A timeout of zero or less
// leaves HTTP requests bounded only by the caller's context.
func NewDocumentFetcherAdapter(timeoutSec int) DocumentFetcherAdapter {
	var timeout time.Duration
	if timeoutSec > 0 {
		timeout = time.Duration(timeoutSec) * time.Second
	}
	return DocumentFetcherAdapter{FS: afs.New(), Timeout: timeout}
}

func (a DocumentFetcherAdapter) Fetch(ctx context.Context, location string) (types.Document, error) {
	if strings.TrimSpace(location) == "" {
		return types.Document{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("document location is empty")
	}
	if core.IsHTTPLocation(location) {
		return a.fetchHTTP(ctx, location)
	}
	return a.fetchStorage(ctx, location)
}

func (a DocumentFetcherAdapter) fetchHTTP(ctx context.Context, location string) (types.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return types.Document{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("failed to create request for " + location).
			WithCause(err)
	}
	req.Header.Set("Accept", "application/xml, text/xml, */*")
	client := &http.Client{Timeout: a.Timeout}
	resp, err := client.Do(req)
	if err != nil {
		return types.Document{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("request failed for " + location).
			WithCause(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		statusErr := shared.NewStatusError(resp.StatusCode, location, string(body))
		code := errbuilder.CodeInternal
		if statusErr.NotFound() {
			code = errbuilder.CodeNotFound
		}
		return types.Document{}, errbuilder.New().
			WithCode(code).
			WithMsg("unexpected status fetching " + location).
			WithCause(statusErr)
	}
	charset, err := responseCharset(resp.Header.Get("Content-Type"))
	if err != nil {
		return types.Document{}, err
	}
	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return types.Document{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to read response from " + location).
			WithCause(err)
	}
	log.Ctx(ctx).Debug().
		Str("location", location).
		Int("status", resp.StatusCode).
		Int("bytes", len(content)).
		Msg("fetched http document")
	return types.Document{Location: location, Content: content, Charset: charset}, nil
}

func (a DocumentFetcherAdapter) fetchStorage(ctx context.Context, location string) (types.Document, error) {
	fs := a.FS
	if fs == nil {
		fs = afs.New()
	}
	exists, err := fs.Exists(ctx, location)
	if err != nil {
		return types.Document{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to check " + location).
			WithCause(err)
	}
	if !exists {
		return types.Document{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("document not found: " + location)
	}
	content, err := fs.DownloadWithURL(ctx, location)
	if err != nil {
		return types.Document{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to read " + location).
			WithCause(err)
	}
	log.Ctx(ctx).Debug().
		Str("location", location).
		Int("bytes", len(content)).
		Msg("fetched stored document")
	return types.Document{Location: location, Content: content}, nil
}

// responseCharset extracts and validates the charset parameter of a
// Content-Type header. An absent header or parameter yields "".
func responseCharset(contentType string) (string, error) {
	if strings.TrimSpace(contentType) == "" {
		return "", nil
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", nil
	}
	charset := strings.TrimSpace(params["charset"])
	if charset == "" {
		return "", nil
	}
	if _, err := htmlindex.Get(charset); err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("invalid charset " + charset).
			WithCause(err)
	}
	return charset, nil
}

var _ ports.DocumentFetcherPort = DocumentFetcherAdapter{}
