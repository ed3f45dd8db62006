package apiclient

import (
	json "github.com/goccy/go-json"
)

// The types below mirror the wire shapes of the content platform. The server
// owns the schema; fields the client never inspects stay as raw JSON so a
// server-side addition does not require a client release.

// Article is a single news article as returned by both backends.
type Article struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Slug        string          `json:"slug"`
	Summary     string          `json:"summary,omitempty"`
	Content     string          `json:"content,omitempty"`
	Status      string          `json:"status,omitempty"`
	ImageURL    string          `json:"imageUrl,omitempty"`
	AuthorID    string          `json:"authorId,omitempty"`
	CategoryID  string          `json:"categoryId,omitempty"`
	Tags        []string        `json:"tags,omitempty"`
	Author      json.RawMessage `json:"author,omitempty"`
	Category    json.RawMessage `json:"category,omitempty"`
	PublishedAt string          `json:"publishedAt,omitempty"`
	CreatedAt   string          `json:"createdAt,omitempty"`
	UpdatedAt   string          `json:"updatedAt,omitempty"`
}

// Article status values accepted by the backends.
const (
	StatusDraft     = "DRAFT"
	StatusPublished = "PUBLISHED"
	StatusArchived  = "ARCHIVED"
)

// ArticleInput is the payload for creating or updating an article.
type ArticleInput struct {
	Title      string   `json:"title"`
	Slug       string   `json:"slug,omitempty"`
	Summary    string   `json:"summary,omitempty"`
	Content    string   `json:"content"`
	Status     string   `json:"status,omitempty"`
	ImageURL   string   `json:"imageUrl,omitempty"`
	AuthorID   string   `json:"authorId,omitempty"`
	CategoryID string   `json:"categoryId,omitempty"`
	Tags       []string `json:"tags,omitempty"`
}

// ArticleListOptions narrows and pages a ListArticles call. The zero value
// asks for the backend defaults.
type ArticleListOptions struct {
	Page       int
	Limit      int
	Status     string
	AuthorID   string
	CategoryID string
	Search     string
	SortBy     string
	SortOrder  string
}

// Author is a contributor profile.
type Author struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	Bio       string `json:"bio,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
}

// Category groups articles.
type Category struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description,omitempty"`
}

// GalleryItem is one photo in the gallery.
type GalleryItem struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Caption   string `json:"caption,omitempty"`
	ImageURL  string `json:"imageUrl"`
	TakenAt   string `json:"takenAt,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
}

// GalleryListOptions pages a ListGallery call.
type GalleryListOptions struct {
	Page  int
	Limit int
}

// LoginRequest carries the credentials for Login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest carries the fields for Register.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthSession is the data payload of a successful Login or Register call.
// User stays raw; the client only needs the token.
type AuthSession struct {
	Token string          `json:"token"`
	User  json.RawMessage `json:"user,omitempty"`
}

// AskRequest queries the AI endpoint about site content.
type AskRequest struct {
	Question  string `json:"question"`
	ArticleID string `json:"articleId,omitempty"`
}

// AskAnswer is the data payload of an Ask call.
type AskAnswer struct {
	Answer  string          `json:"answer"`
	Sources json.RawMessage `json:"sources,omitempty"`
}

// SummarizeRequest asks the AI endpoint for an article summary. Either the
// article ID or inline content is set.
type SummarizeRequest struct {
	ArticleID string `json:"articleId,omitempty"`
	Content   string `json:"content,omitempty"`
}

// Summary is the data payload of a Summarize call.
type Summary struct {
	Summary string `json:"summary"`
}

// HealthStatus is the data payload of a Health call.
type HealthStatus struct {
	Status  string `json:"status"`
	Uptime  string `json:"uptime,omitempty"`
	Version string `json:"version,omitempty"`
}
