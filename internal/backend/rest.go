package backend

import (
	"context"
	"net/http"
	"net/url"
)

// Eq builds a PostgREST equality filter value.
func Eq(value string) string {
	return "eq." + value
}

func tablePath(table string, query url.Values) string {
	path := restPrefix + table
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	return path
}

// Select reads the rows of table matching query into out (a pointer to a
// slice).
func (c *Client) Select(ctx context.Context, table string, query url.Values, out interface{}) error {
	resp, err := c.execute("select "+table, c.newRequest(ctx), http.MethodGet, tablePath(table, query))
	if err != nil {
		return err
	}
	return decode(resp, out)
}

// Insert writes body into table and decodes the echoed rows into out.
func (c *Client) Insert(ctx context.Context, table string, body interface{}, out interface{}) error {
	req := c.newRequest(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Prefer", "return=representation").
		SetBody(body)

	resp, err := c.execute("insert "+table, req, http.MethodPost, tablePath(table, nil))
	if err != nil {
		return err
	}
	return decode(resp, out)
}

// Update applies a partial update to the rows of table matching filter.
func (c *Client) Update(ctx context.Context, table string, filter url.Values, body interface{}) error {
	req := c.newRequest(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Prefer", "return=minimal").
		SetBody(body)

	_, err := c.execute("update "+table, req, http.MethodPatch, tablePath(table, filter))
	return err
}

// Delete removes the rows of table matching filter.
func (c *Client) Delete(ctx context.Context, table string, filter url.Values) error {
	_, err := c.execute("delete "+table, c.newRequest(ctx), http.MethodDelete, tablePath(table, filter))
	return err
}
