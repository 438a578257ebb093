package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/devloop-tools/eventbus/internal/eventstore"
)

// parseQuery reads ?type=, ?since=, ?limit= from r, defaulting limit to
// the store's own default and ignoring an unparseable since/limit rather
// than erroring — a malformed filter degrades to "no filter" instead of
// failing the whole query.
func parseQuery(r *http.Request) eventstore.Query {
	q := r.URL.Query()

	query := eventstore.Query{
		Type: q.Get("type"),
	}

	if sinceStr := q.Get("since"); sinceStr != "" {
		if since, err := time.Parse(time.RFC3339, sinceStr); err == nil {
			query.Since = since
		} else if since, err := time.Parse("2006-01-02T15:04:05.000Z", sinceStr); err == nil {
			query.Since = since
		}
	}

	if limitStr := q.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			query.Limit = limit
		}
	}

	return query
}
