package pterodactyl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gantryhq/gantry/pkg/driver"
	"github.com/gantryhq/gantry/pkg/paging"
)

const (
	applicationEndpoint = "/api/application"
	defaultTimeout      = 30 * time.Second

	// maxLoggedBody bounds how much of an unexpected response ends up in
	// the debug log.
	maxLoggedBody = 512
	maxBody       = 4 << 20
)

// Backend talks to the application API of one panel. Every operation
// reports failure as absence and logs the reason.
type Backend struct {
	baseURL string
	token   string
	client  *http.Client
	logger  *slog.Logger
}

// NewBackend creates a Backend for validated settings. If client is nil a
// client with a 30s timeout is used.
func NewBackend(settings Settings, client *http.Client, logger *slog.Logger) *Backend {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		baseURL: strings.TrimRight(settings.URL, "/"),
		token:   settings.Token,
		client:  client,
		logger:  logger,
	}
}

// LookupUser finds a panel user by username.
func (b *Backend) LookupUser(ctx context.Context, username string) (User, bool) {
	return paging.Find(ctx, listPages[User](b, "users"), func(u User) bool {
		return u.Username == username
	})
}

// LookupNode finds a panel node by name.
func (b *Backend) LookupNode(ctx context.Context, name string) (Node, bool) {
	return paging.Find(ctx, listPages[Node](b, "nodes"), func(n Node) bool {
		return n.Name == name
	})
}

// LookupServer finds a server by name. The allocations are embedded in the
// listing so the returned server carries its address.
func (b *Backend) LookupServer(ctx context.Context, name string) (driver.Server, bool) {
	s, ok := paging.Find(ctx, listPages[server](b, "servers?include=allocations"), func(s server) bool {
		return s.Name == name
	})
	if !ok {
		return driver.Server{}, false
	}
	return s.canonical(driver.Address{}), true
}

func (b *Backend) postServer(ctx context.Context, payload createServer) (server, bool) {
	var created object[server]
	if !b.send(ctx, http.MethodPost, "servers", 0, object[createServer]{Attributes: payload}, &created) {
		return server{}, false
	}
	return created.Attributes, true
}

// listPages binds a paged list endpoint to the paging walker.
func listPages[T any](b *Backend, target string) paging.FetchFunc[T] {
	return func(ctx context.Context, page int) (paging.Page[T], bool) {
		var resp list[T]
		if !b.send(ctx, http.MethodGet, target, page, nil, &resp) {
			return paging.Page[T]{}, false
		}
		items := make([]T, 0, len(resp.Data))
		for _, obj := range resp.Data {
			items = append(items, obj.Attributes)
		}
		return paging.Page[T]{
			Items:       items,
			CurrentPage: resp.Meta.Pagination.CurrentPage,
			TotalPages:  resp.Meta.Pagination.TotalPages,
		}, true
	}
}

// send performs one request against the application API and decodes the
// response into out. target may carry its own query. page 0 means no page
// parameter.
func (b *Backend) send(ctx context.Context, method, target string, page int, body any, out any) bool {
	url := b.baseURL + applicationEndpoint + "/" + target
	if page > 0 {
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		url += sep + "page=" + strconv.Itoa(page)
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			b.logger.ErrorContext(ctx, "failed to encode request for the panel",
				slog.String("target", target),
				slog.String("error", err.Error()),
			)
			return false
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		b.logger.ErrorContext(ctx, "failed to build panel request",
			slog.String("url", url),
			slog.String("error", err.Error()),
		)
		return false
	}
	req.Header.Set("Authorization", "Bearer "+b.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	b.logger.DebugContext(ctx, "sending request to the panel",
		slog.String("method", method),
		slog.String("url", url),
	)

	resp, err := b.client.Do(req)
	if err != nil {
		requestsTotal.WithLabelValues(method, targetLabel(target), "error").Inc()
		b.logger.ErrorContext(ctx, "panel request failed",
			slog.String("method", method),
			slog.String("url", url),
			slog.String("error", err.Error()),
		)
		return false
	}
	defer resp.Body.Close()
	requestsTotal.WithLabelValues(method, targetLabel(target), strconv.Itoa(resp.StatusCode)).Inc()

	return b.handleResponse(ctx, resp, http.StatusOK, out)
}

func (b *Backend) handleResponse(ctx context.Context, resp *http.Response, expected int, out any) bool {
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		b.logger.ErrorContext(ctx, "failed to read panel response",
			slog.Int("status", resp.StatusCode),
			slog.String("error", err.Error()),
		)
		return false
	}

	if resp.StatusCode != expected {
		b.logger.ErrorContext(ctx, "unexpected status code from the panel",
			slog.Int("status", resp.StatusCode),
			slog.String("reason", http.StatusText(resp.StatusCode)),
		)
		b.logger.DebugContext(ctx, "panel response body", slog.String("body", truncate(data, maxLoggedBody)))
		return false
	}

	if err := json.Unmarshal(data, out); err != nil {
		b.logger.ErrorContext(ctx, "failed to parse panel response",
			slog.String("error", err.Error()),
		)
		return false
	}
	return true
}

// targetLabel strips ids so metric labels stay bounded.
func targetLabel(target string) string {
	target, _, _ = strings.Cut(target, "?")
	if strings.HasPrefix(target, "nodes/") && strings.HasSuffix(target, "/allocations") {
		return "nodes/allocations"
	}
	return target
}

func truncate(data []byte, n int) string {
	if len(data) <= n {
		return string(data)
	}
	return fmt.Sprintf("%s... (%d bytes total)", data[:n], len(data))
}
