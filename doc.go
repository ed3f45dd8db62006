// Package apiclient is the outbound data-access client for the Onward
// Dominicans content platform. It is the one component every call site goes
// through to reach the remote data services, and it assumes the network, the
// primary backend and the standby backend can each fail independently.
//
// Behind a single facade it layers:
//
//   - A uniform response envelope: every operation returns an *Envelope with
//     Success, Data/Error and a timestamp — never a Go error for request
//     outcomes
//   - Time-boxed memoization of successful reads (lazy-expiry TTL cache)
//   - Retries with exponential backoff for transport failures and retryable
//     statuses (408, 429, 5xx); terminal statuses short-circuit
//   - A hard per-attempt deadline that cancels the in-flight transport call
//   - Bearer-token lifecycle with pluggable durable storage (memory, file,
//     Redis) and a startup invalidation policy
//   - Transparent routing to a standby read-only data service, normalizing
//     its query dialect and raw responses into the same envelope
//   - Opt-in request de-duplication, client-side rate limiting and
//     Prometheus metrics
//
// Typical usage:
//
//	client := apiclient.New(
//	    apiclient.WithBaseURL("https://api.example.com/api"),
//	    apiclient.WithStandby("https://standby.example.com/rest/v1", apiKey),
//	    apiclient.WithStandbyEnabled(false),
//	    apiclient.WithMetrics(),
//	)
//	env := client.ListArticles(ctx, apiclient.ArticleListOptions{Limit: 10})
//	if !env.Success {
//	    log.Println(env.ErrorMessage())
//	    return
//	}
//	articles, err := apiclient.DecodeData[[]apiclient.Article](env)
//
// A single *Client is safe for concurrent use; construct one per process and
// share it.
package apiclient
