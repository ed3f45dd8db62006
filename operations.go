package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// Facade methods. Every method returns an envelope, success or failure,
// never a Go error: callers branch on Success and render Error.Message.

// Login authenticates with the primary backend. On success the session
// token is stored in memory and mirrored to durable storage, and every
// subsequent protected call carries it.
func (c *Client) Login(ctx context.Context, creds LoginRequest) *Envelope {
	env := c.Do(ctx, &Request{
		Operation: OpLogin,
		Method:    http.MethodPost,
		Endpoint:  "/auth/login",
		Body:      creds,
	})
	c.storeSession(ctx, env)
	return env
}

// Register creates an account and, like Login, stores the returned session
// token.
func (c *Client) Register(ctx context.Context, reg RegisterRequest) *Envelope {
	env := c.Do(ctx, &Request{
		Operation: OpRegister,
		Method:    http.MethodPost,
		Endpoint:  "/auth/register",
		Body:      reg,
	})
	c.storeSession(ctx, env)
	return env
}

// Logout ends the server session and drops the local token. The token is
// cleared even when the server call fails, so a dead backend cannot pin a
// stale session on this side.
func (c *Client) Logout(ctx context.Context) *Envelope {
	env := c.Do(ctx, &Request{
		Operation:    OpLogout,
		Method:       http.MethodPost,
		Endpoint:     "/auth/logout",
		RequiresAuth: true,
	})

	if err := c.tokens.Clear(ctx); err != nil && c.logger != nil {
		c.logger.Warn("Clearing token after logout failed", "error", err.Error())
	}
	if c.metrics != nil {
		c.metrics.RecordTokenOp("clear")
	}
	return env
}

// storeSession extracts the token from a successful auth envelope and saves
// it. Persistence problems are logged, not surfaced: the session works from
// memory either way.
func (c *Client) storeSession(ctx context.Context, env *Envelope) {
	if env == nil || !env.Success {
		return
	}
	var session AuthSession
	if err := env.Decode(&session); err != nil || session.Token == "" {
		if c.logger != nil {
			c.logger.Warn("Auth response carried no usable token")
		}
		return
	}
	if err := c.tokens.Save(ctx, session.Token); err != nil && c.logger != nil {
		c.logger.Warn("Persisting token failed", "error", err.Error())
	}
	if c.metrics != nil {
		c.metrics.RecordTokenOp("save")
	}
	if c.debugEnabled(c.debug.LogAuth) {
		c.logger.Debug("Stored session token")
	}
}

// ListArticles fetches a page of articles. Cached, standby-capable.
func (c *Client) ListArticles(ctx context.Context, opts ArticleListOptions) *Envelope {
	query := url.Values{}
	if opts.Page > 0 {
		query.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.Limit > 0 {
		query.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Status != "" {
		query.Set("status", opts.Status)
	}
	if opts.AuthorID != "" {
		query.Set("authorId", opts.AuthorID)
	}
	if opts.CategoryID != "" {
		query.Set("categoryId", opts.CategoryID)
	}
	if opts.Search != "" {
		query.Set("search", opts.Search)
	}
	if opts.SortBy != "" {
		query.Set("sortBy", opts.SortBy)
	}
	if opts.SortOrder != "" {
		query.Set("sortOrder", opts.SortOrder)
	}

	return c.Do(ctx, &Request{
		Operation: OpListArticles,
		Method:    http.MethodGet,
		Endpoint:  "/articles",
		Query:     query,
		Standby:   opts.standbyQuery(),
	})
}

// GetArticle fetches one article by ID. Cached, standby-capable.
func (c *Client) GetArticle(ctx context.Context, id string) *Envelope {
	if id == "" {
		return newFailureEnvelope(KindValidation, "article id is required", nil)
	}
	return c.Do(ctx, &Request{
		Operation: OpGetArticle,
		Method:    http.MethodGet,
		Endpoint:  "/articles/" + url.PathEscape(id),
		Standby:   singleStandbyQuery("articles", id),
	})
}

// CreateArticle creates an article. Requires authentication.
func (c *Client) CreateArticle(ctx context.Context, input ArticleInput) *Envelope {
	return c.Do(ctx, &Request{
		Operation:    OpCreateArticle,
		Method:       http.MethodPost,
		Endpoint:     "/articles",
		Body:         input,
		RequiresAuth: true,
	})
}

// UpdateArticle replaces an article. Requires authentication.
func (c *Client) UpdateArticle(ctx context.Context, id string, input ArticleInput) *Envelope {
	if id == "" {
		return newFailureEnvelope(KindValidation, "article id is required", nil)
	}
	return c.Do(ctx, &Request{
		Operation:    OpUpdateArticle,
		Method:       http.MethodPut,
		Endpoint:     "/articles/" + url.PathEscape(id),
		Body:         input,
		RequiresAuth: true,
	})
}

// DeleteArticle removes an article. Requires authentication.
func (c *Client) DeleteArticle(ctx context.Context, id string) *Envelope {
	if id == "" {
		return newFailureEnvelope(KindValidation, "article id is required", nil)
	}
	return c.Do(ctx, &Request{
		Operation:    OpDeleteArticle,
		Method:       http.MethodDelete,
		Endpoint:     "/articles/" + url.PathEscape(id),
		RequiresAuth: true,
	})
}

// ListAuthors fetches all contributor profiles. Cached, standby-capable.
func (c *Client) ListAuthors(ctx context.Context) *Envelope {
	return c.Do(ctx, &Request{
		Operation: OpListAuthors,
		Method:    http.MethodGet,
		Endpoint:  "/authors",
		Standby: &StandbyQuery{
			Resource: "authors",
			Order:    "name.asc",
		},
	})
}

// GetAuthor fetches one contributor profile. Cached, standby-capable.
func (c *Client) GetAuthor(ctx context.Context, id string) *Envelope {
	if id == "" {
		return newFailureEnvelope(KindValidation, "author id is required", nil)
	}
	return c.Do(ctx, &Request{
		Operation: OpGetAuthor,
		Method:    http.MethodGet,
		Endpoint:  "/authors/" + url.PathEscape(id),
		Standby:   singleStandbyQuery("authors", id),
	})
}

// ListCategories fetches all categories. Cached, standby-capable.
func (c *Client) ListCategories(ctx context.Context) *Envelope {
	return c.Do(ctx, &Request{
		Operation: OpListCategories,
		Method:    http.MethodGet,
		Endpoint:  "/categories",
		Standby: &StandbyQuery{
			Resource: "categories",
			Order:    "name.asc",
		},
	})
}

// ListGallery fetches a page of gallery items. Cached, standby-capable.
func (c *Client) ListGallery(ctx context.Context, opts GalleryListOptions) *Envelope {
	query := url.Values{}
	if opts.Page > 0 {
		query.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.Limit > 0 {
		query.Set("limit", strconv.Itoa(opts.Limit))
	}

	page, limit := normalizeWindow(opts.Page, opts.Limit)
	return c.Do(ctx, &Request{
		Operation: OpListGallery,
		Method:    http.MethodGet,
		Endpoint:  "/gallery",
		Query:     query,
		Standby: &StandbyQuery{
			Resource: "gallery_items",
			Order:    "createdAt.desc",
			Limit:    limit,
			Offset:   (page - 1) * limit,
		},
	})
}

// Ask sends a question about site content to the AI endpoint. Never cached,
// primary only.
func (c *Client) Ask(ctx context.Context, ask AskRequest) *Envelope {
	if ask.Question == "" {
		return newFailureEnvelope(KindValidation, "question is required", nil)
	}
	return c.Do(ctx, &Request{
		Operation: OpAsk,
		Method:    http.MethodPost,
		Endpoint:  "/ai/ask",
		Body:      ask,
	})
}

// Summarize asks the AI endpoint for an article summary. Never cached,
// primary only.
func (c *Client) Summarize(ctx context.Context, req SummarizeRequest) *Envelope {
	if req.ArticleID == "" && req.Content == "" {
		return newFailureEnvelope(KindValidation, "article id or content is required", nil)
	}
	return c.Do(ctx, &Request{
		Operation: OpSummarize,
		Method:    http.MethodPost,
		Endpoint:  "/ai/summarize",
		Body:      req,
	})
}

// Health probes the primary backend. Freshness matters here, so the
// response is never cached and the standby never answers for it.
func (c *Client) Health(ctx context.Context) *Envelope {
	return c.Do(ctx, &Request{
		Operation: OpHealth,
		Method:    http.MethodGet,
		Endpoint:  "/health",
		NoCache:   true,
	})
}

// standbyQuery translates list options into the standby dialect.
func (opts ArticleListOptions) standbyQuery() *StandbyQuery {
	filters := url.Values{}
	if opts.Status != "" {
		filters.Set("status", "eq."+opts.Status)
	}
	if opts.AuthorID != "" {
		filters.Set("authorId", "eq."+opts.AuthorID)
	}
	if opts.CategoryID != "" {
		filters.Set("categoryId", "eq."+opts.CategoryID)
	}
	if opts.Search != "" {
		filters.Set("title", "ilike.*"+opts.Search+"*")
	}

	sortBy := opts.SortBy
	if sortBy == "" {
		sortBy = "createdAt"
	}
	sortOrder := opts.SortOrder
	if sortOrder != "asc" {
		sortOrder = "desc"
	}

	page, limit := normalizeWindow(opts.Page, opts.Limit)
	return &StandbyQuery{
		Resource: "articles",
		Filters:  filters,
		Order:    sortBy + "." + sortOrder,
		Limit:    limit,
		Offset:   (page - 1) * limit,
	}
}

// singleStandbyQuery addresses one row by primary key.
func singleStandbyQuery(resource, id string) *StandbyQuery {
	filters := url.Values{}
	filters.Set("id", "eq."+id)
	return &StandbyQuery{
		Resource: resource,
		Filters:  filters,
		Single:   true,
	}
}

// normalizeWindow applies the backend's default page size so the standby
// window and synthesized meta stay concrete.
func normalizeWindow(page, limit int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 10
	}
	return page, limit
}
