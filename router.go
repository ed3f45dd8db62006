package apiclient

// BackendTarget names which backend serves a call. The set is closed: every
// request goes to exactly one of the two.
type BackendTarget int

const (
	// BackendPrimary is the platform's own REST service. It owns business
	// logic and authentication and answers in the envelope shape.
	BackendPrimary BackendTarget = iota

	// BackendStandby is the read-only data service used when the primary is
	// configured off. It answers raw resource collections that the client
	// wraps into envelopes itself.
	BackendStandby
)

// String implements fmt.Stringer for logging and metrics labels.
func (t BackendTarget) String() string {
	switch t {
	case BackendStandby:
		return "standby"
	default:
		return "primary"
	}
}

// Operation identifies a logical call for routing, logging and metrics.
type Operation string

const (
	OpLogin          Operation = "auth.login"
	OpRegister       Operation = "auth.register"
	OpLogout         Operation = "auth.logout"
	OpListArticles   Operation = "articles.list"
	OpGetArticle     Operation = "articles.get"
	OpCreateArticle  Operation = "articles.create"
	OpUpdateArticle  Operation = "articles.update"
	OpDeleteArticle  Operation = "articles.delete"
	OpListAuthors    Operation = "authors.list"
	OpGetAuthor      Operation = "authors.get"
	OpListCategories Operation = "categories.list"
	OpListGallery    Operation = "gallery.list"
	OpAsk            Operation = "ai.ask"
	OpSummarize      Operation = "ai.summarize"
	OpHealth         Operation = "health"
	OpCustom         Operation = "custom"
)

// StandbyCapable reports whether the operation may be served by the standby
// backend. The standby exposes raw read collections only, so auth, AI,
// health and every mutation always target the primary.
func (op Operation) StandbyCapable() bool {
	switch op {
	case OpListArticles, OpGetArticle, OpListAuthors, OpGetAuthor, OpListCategories, OpListGallery:
		return true
	default:
		return false
	}
}

// route picks the backend for one call. The standby flag is re-evaluated on
// every call so a flip takes effect immediately, but there is no automatic
// failover: a live primary failure never reroutes to the standby.
func (c *Client) route(req *Request) BackendTarget {
	if req.Standby == nil || !req.Operation.StandbyCapable() {
		return BackendPrimary
	}
	if c.standbyURL == "" {
		return BackendPrimary
	}
	if c.useStandby == nil || !c.useStandby() {
		return BackendPrimary
	}
	return BackendStandby
}
