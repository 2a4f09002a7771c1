package repository

import (
	"context"
	"net/url"
	"strconv"

	"qpinta/internal/backend"
)

// Rows is the table access the repositories need from the hosted backend.
type Rows interface {
	Select(ctx context.Context, table string, query url.Values, out interface{}) error
	Insert(ctx context.Context, table string, body interface{}, out interface{}) error
	Update(ctx context.Context, table string, filter url.Values, body interface{}) error
	Delete(ctx context.Context, table string, filter url.Values) error
}

func byID(id int64) url.Values {
	return url.Values{"id": {backend.Eq(strconv.FormatInt(id, 10))}}
}
