package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/atttc/ladder/internal/domain"
	"github.com/go-chi/chi/v5"
)

// PathID parses a numeric path parameter.
func PathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.ErrValidation(fmt.Sprintf("invalid %s", name))
	}
	return id, nil
}

// PathTier parses a tier path parameter.
func PathTier(r *http.Request, name string) (domain.Tier, error) {
	tier, err := domain.ParseTier(chi.URLParam(r, name))
	if err != nil {
		return "", domain.ErrValidation(err.Error())
	}
	return tier, nil
}

// Query reads optional typed query parameters, remembering the first parse failure.
type Query struct {
	r   *http.Request
	err error
}

// NewQuery wraps the request's query string.
func NewQuery(r *http.Request) *Query {
	return &Query{r: r}
}

// Err returns the first parse failure as a validation error.
func (q *Query) Err() error {
	return q.err
}

func (q *Query) fail(name string) {
	if q.err == nil {
		q.err = domain.ErrValidation(fmt.Sprintf("invalid query parameter %s", name))
	}
}

// String returns a pointer to the value, or nil when absent.
func (q *Query) String(name string) *string {
	v := q.r.URL.Query().Get(name)
	if v == "" {
		return nil
	}
	return &v
}

// Int64 parses an optional integer.
func (q *Query) Int64(name string) *int64 {
	s := q.String(name)
	if s == nil {
		return nil
	}
	v, err := strconv.ParseInt(*s, 10, 64)
	if err != nil {
		q.fail(name)
		return nil
	}
	return &v
}

// Int parses an optional integer, returning 0 when absent.
func (q *Query) Int(name string) int {
	v := q.Int64(name)
	if v == nil {
		return 0
	}
	return int(*v)
}

// Bool parses an optional boolean.
func (q *Query) Bool(name string) *bool {
	s := q.String(name)
	if s == nil {
		return nil
	}
	v, err := strconv.ParseBool(*s)
	if err != nil {
		q.fail(name)
		return nil
	}
	return &v
}

// Date parses an optional YYYY-MM-DD date.
func (q *Query) Date(name string) *time.Time {
	s := q.String(name)
	if s == nil {
		return nil
	}
	v, err := domain.ParseDate(*s)
	if err != nil {
		q.fail(name)
		return nil
	}
	return &v
}

// Tier parses an optional tier name.
func (q *Query) Tier(name string) *domain.Tier {
	s := q.String(name)
	if s == nil {
		return nil
	}
	v, err := domain.ParseTier(*s)
	if err != nil {
		q.fail(name)
		return nil
	}
	return &v
}
