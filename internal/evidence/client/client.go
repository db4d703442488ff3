// Package client reads evidence from the external record services over HTTP.
//
// Each category has its own circuit breaker. While a breaker is open the
// read fails fast with ErrCircuitOpen and the snapshot builder degrades that
// category to empty instead of waiting on a dead collaborator.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"revalidation/internal/cycle/models"
	id "revalidation/pkg/domain"
	"revalidation/pkg/platform/circuit"
	"revalidation/pkg/requestcontext"
)

// maxBodyBytes bounds a single collaborator response.
const maxBodyBytes = 8 << 20

type Client struct {
	baseURL  string
	http     *http.Client
	token    string
	logger   *slog.Logger
	breakers map[models.Category]*circuit.Breaker
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithBearerToken authenticates calls to the collaborators.
func WithBearerToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithBreakerOptions applies opts to every category breaker.
func WithBreakerOptions(opts ...circuit.Option) Option {
	return func(c *Client) {
		for cat := range c.breakers {
			c.breakers[cat] = circuit.New(string(cat), opts...)
		}
	}
}

func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Timeout: timeout},
		logger:   slog.Default(),
		breakers: make(map[models.Category]*circuit.Breaker, len(models.AllCategories)),
	}
	for _, cat := range models.AllCategories {
		c.breakers[cat] = circuit.New(string(cat))
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BreakerState exposes a category breaker's state for health reporting.
func (c *Client) BreakerState(cat models.Category) circuit.State {
	return c.breakers[cat].State()
}

type itemsResponse[T any] struct {
	Items []T `json:"items"`
}

func (c *Client) PracticeHours(ctx context.Context, scope models.Scope) ([]models.PracticeHoursEntry, error) {
	return list[models.PracticeHoursEntry](ctx, c, models.CategoryPracticeHours, scope)
}

func (c *Client) CPD(ctx context.Context, scope models.Scope) ([]models.CPDEntry, error) {
	return list[models.CPDEntry](ctx, c, models.CategoryCPD, scope)
}

func (c *Client) Feedback(ctx context.Context, scope models.Scope) ([]models.FeedbackEntry, error) {
	return list[models.FeedbackEntry](ctx, c, models.CategoryFeedback, scope)
}

func (c *Client) ReflectiveAccounts(ctx context.Context, scope models.Scope) ([]models.ReflectiveAccountEntry, error) {
	return list[models.ReflectiveAccountEntry](ctx, c, models.CategoryReflectiveAccounts, scope)
}

func (c *Client) ReflectiveDiscussions(ctx context.Context, scope models.Scope) ([]models.ReflectiveDiscussionEntry, error) {
	return list[models.ReflectiveDiscussionEntry](ctx, c, models.CategoryReflectiveDiscussions, scope)
}

func (c *Client) Declarations(ctx context.Context, scope models.Scope) ([]models.DeclarationEntry, error) {
	return list[models.DeclarationEntry](ctx, c, models.CategoryDeclarations, scope)
}

func (c *Client) Confirmations(ctx context.Context, scope models.Scope) ([]models.ConfirmationEntry, error) {
	return list[models.ConfirmationEntry](ctx, c, models.CategoryConfirmations, scope)
}

func (c *Client) Training(ctx context.Context, scope models.Scope) ([]models.TrainingEntry, error) {
	return list[models.TrainingEntry](ctx, c, models.CategoryTraining, scope)
}

func (c *Client) Profile(ctx context.Context, subjectID id.SubjectID) (*models.Profile, error) {
	var profile models.Profile
	path := "/v1/subjects/" + url.PathEscape(subjectID.String()) + "/profile"
	if err := c.get(ctx, models.CategoryProfile, path, nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

func list[T any](ctx context.Context, c *Client, cat models.Category, scope models.Scope) ([]T, error) {
	q := url.Values{}
	q.Set("subject_id", scope.SubjectID.String())
	if scope.Kind == models.ScopeCycle {
		q.Set("cycle_id", scope.CycleID.String())
	}
	var resp itemsResponse[T]
	if err := c.get(ctx, cat, "/v1/evidence/"+string(cat), q, &resp); err != nil {
		return nil, err
	}
	if resp.Items == nil {
		resp.Items = []T{}
	}
	return resp.Items, nil
}

// get performs one guarded read and records its outcome on the category breaker.
func (c *Client) get(ctx context.Context, cat models.Category, path string, q url.Values, out any) error {
	breaker := c.breakers[cat]
	if !breaker.Allow() {
		return &Error{Kind: FailureOutage, Category: cat, Err: ErrCircuitOpen}
	}

	err := c.do(ctx, cat, path, q, out)
	var ee *Error
	switch {
	case err == nil:
		if _, change := breaker.RecordSuccess(); change.Closed {
			c.logger.InfoContext(ctx, "evidence circuit closed", "category", cat)
		}
	case errors.As(err, &ee) && ee.countsAgainstBreaker():
		if _, change := breaker.RecordFailure(); change.Opened {
			c.logger.WarnContext(ctx, "evidence circuit opened",
				"category", cat,
				"error", err,
			)
		}
	}
	return err
}

func (c *Client) do(ctx context.Context, cat models.Category, path string, q url.Values, out any) error {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return &Error{Kind: FailureBadData, Category: cat, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if reqID := requestcontext.RequestID(ctx); reqID != "" {
		req.Header.Set("X-Request-ID", reqID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return &Error{Kind: FailureTimeout, Category: cat, Err: err}
		}
		return &Error{Kind: FailureOutage, Category: cat, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return &Error{Kind: kindForStatus(resp.StatusCode), Category: cat, Status: resp.StatusCode}
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(out); err != nil {
		return &Error{Kind: FailureBadData, Category: cat, Status: resp.StatusCode, Err: fmt.Errorf("decode: %w", err)}
	}
	return nil
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
