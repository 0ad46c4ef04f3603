package redmine

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	cleanhttp "github.com/hashicorp/go-cleanhttp"
	nanoid "github.com/matoous/go-nanoid/v2"

	devhttp "github.com/randalmurphal/redmine/http"
)

// APIKeyHeader carries the api key on every request.
const APIKeyHeader = "X-Redmine-API-Key"

// DefaultIssueLimit is the page size of GetNewIssues when none is given.
const DefaultIssueLimit = 25

// Client provides access to the Redmine REST API.
//
// Every operation runs synchronously on the caller's goroutine. GET and PUT
// requests are retried with a fixed wait; see devhttp.Client.Execute.
type Client struct {
	cfg    *Config
	api    *devhttp.Client
	logger *slog.Logger
}

type clientOptions struct {
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *devhttp.Metrics
}

// ClientOption configures the client.
type ClientOption func(*clientOptions)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(o *clientOptions) {
		o.httpClient = httpClient
	}
}

// WithLogger sets the logger that receives request and operation logs.
// Without it nothing is logged.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(o *clientOptions) {
		o.logger = logger
	}
}

// WithMetrics records request metrics.
func WithMetrics(m *devhttp.Metrics) ClientOption {
	return func(o *clientOptions) {
		o.metrics = m
	}
}

// NewClient creates a new Redmine client. The configuration is validated
// before anything is sent.
func NewClient(cfg *Config, opts ...ClientOption) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var o clientOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}
	if o.httpClient == nil {
		o.httpClient = cleanhttp.DefaultPooledClient()
		o.httpClient.Timeout = cfg.timeout()
	}

	apiKey := cfg.APIKey
	api, err := devhttp.NewClient(devhttp.ClientConfig{
		Client:      o.httpClient,
		BaseURL:     cfg.URL,
		ServiceName: "redmine",
		MaxAttempts: MaxAttempts,
		RetryWait:   cfg.retryWait(),
		Logger:      o.logger,
		Metrics:     o.metrics,
		BeforeRequest: func(req *http.Request) {
			req.Header.Set(APIKeyHeader, apiKey)
		},
	})
	if err != nil {
		return nil, err
	}

	return &Client{
		cfg:    cfg.Clone(),
		api:    api,
		logger: o.logger,
	}, nil
}

// GetNewIssues returns the newest issues of a project, as listed on
// projects/{project}/issues. A limit of zero means DefaultIssueLimit.
func (c *Client) GetNewIssues(ctx context.Context, project string, limit int) (Document, error) {
	if project == "" {
		return nil, ErrProjectRequired
	}
	if limit <= 0 {
		limit = DefaultIssueLimit
	}

	ctx = c.operation(ctx, "get_new_issues", "project", project, "limit", limit)
	c.log(ctx).InfoContext(ctx, "getting new issues")

	var doc Document
	if err := c.api.GetJSON(ctx, fmt.Sprintf("projects/%s/issues.json?limit=%d", url.PathEscape(project), limit), &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// IterateIssues walks every issue of a project, pageSize issues per request.
// Iteration ends at total_count or at the first short page.
func (c *Client) IterateIssues(project string, pageSize int) *devhttp.PageIterator[Document] {
	if pageSize <= 0 {
		pageSize = DefaultIssueLimit
	}

	return devhttp.NewPageIterator(func(ctx context.Context, offset int) ([]Document, int, error) {
		if project == "" {
			return nil, 0, ErrProjectRequired
		}
		ref := fmt.Sprintf("projects/%s/issues.json?offset=%d&limit=%d", url.PathEscape(project), offset, pageSize)

		var page issueListResponse
		if err := c.api.GetJSON(ctx, ref, &page); err != nil {
			return nil, 0, err
		}
		total := -1
		if page.TotalCount != nil {
			total = *page.TotalCount
		}
		return page.Issues, total, nil
	}).WithPageSize(pageSize)
}

// GetIssueData returns an issue including its attachments.
func (c *Client) GetIssueData(ctx context.Context, issueID int) (Document, error) {
	if issueID <= 0 {
		return nil, ErrIssueIDInvalid
	}

	ctx = c.operation(ctx, "get_issue", "issue_id", issueID)

	var doc Document
	if err := c.api.GetJSON(ctx, issueRef(issueID)+"?include=attachments", &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// UpdateIssue updates the notes, status and assignee of an issue. Only the
// fields set in opts are sent; at least one must be set.
func (c *Client) UpdateIssue(ctx context.Context, issueID int, opts UpdateOptions) error {
	if issueID <= 0 {
		return ErrIssueIDInvalid
	}
	if opts.empty() {
		return ErrNothingToUpdate
	}

	ctx = c.operation(ctx, "update_issue", "issue_id", issueID)
	return c.putIssue(ctx, issueID, issueFields{
		Notes:        opts.Notes,
		StatusID:     opts.StatusID,
		AssignedToID: opts.AssignedToID,
	})
}

// AssignToAuthor assigns an issue back to the user who created it.
// The issue is fetched first to find its author; if that fails, no update
// is sent.
func (c *Client) AssignToAuthor(ctx context.Context, issueID int, opts AssignOptions) error {
	if issueID <= 0 {
		return ErrIssueIDInvalid
	}

	ctx = c.operation(ctx, "assign_to_author", "issue_id", issueID)

	var doc authorResponse
	if err := c.api.GetJSON(ctx, issueRef(issueID)+"?include=attachments", &doc); err != nil {
		return fmt.Errorf("fetch issue %d: %w", issueID, err)
	}
	if doc.Issue.Author == nil || doc.Issue.Author.ID == "" {
		return fmt.Errorf("issue %d: %w", issueID, ErrAuthorMissing)
	}

	authorID := doc.Issue.Author.ID.String()
	c.log(ctx).InfoContext(ctx, "assigning issue to author", "author_id", authorID)

	return c.putIssue(ctx, issueID, issueFields{
		Notes:        opts.Notes,
		StatusID:     opts.StatusID,
		AssignedToID: &authorID,
	})
}

// Config returns a copy of the client's configuration.
func (c *Client) Config() *Config {
	return c.cfg.Clone()
}

// BaseURL returns the normalised base URL requests resolve against.
func (c *Client) BaseURL() string {
	return c.api.BaseURL()
}

// RetryWait returns the fixed wait between attempts.
func (c *Client) RetryWait() time.Duration {
	return c.api.RetryWait()
}

func (c *Client) putIssue(ctx context.Context, issueID int, fields issueFields) error {
	c.log(ctx).InfoContext(ctx, "updating issue")

	status, err := c.api.Put(ctx, issueRef(issueID), issueRequest{Issue: fields})
	if err != nil {
		return err
	}

	c.log(ctx).DebugContext(ctx, "issue updated", "status", status)
	return nil
}

// operation tags ctx with an operation name and id so every request log of
// a multi-request operation can be correlated.
func (c *Client) operation(ctx context.Context, name string, attrs ...any) context.Context {
	id, err := nanoid.New()
	if err != nil {
		id = "unknown"
	}
	return devhttp.WithLogAttrs(ctx, append([]any{"op", name, "op_id", id}, attrs...)...)
}

func (c *Client) log(ctx context.Context) *slog.Logger {
	return devhttp.LoggerFrom(ctx, c.logger)
}

func issueRef(issueID int) string {
	return fmt.Sprintf("issues/%d.json", issueID)
}
