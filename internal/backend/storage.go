package backend

import (
	"context"
	"net/http"
	"net/url"
)

func (c *Client) objectPath(name string) string {
	return storagePrefix + url.PathEscape(c.bucket) + "/" + url.PathEscape(name)
}

// Upload stores data in the image bucket under name and returns the key that
// records should reference.
func (c *Client) Upload(ctx context.Context, name, contentType string, data []byte) (string, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	req := c.newRequest(ctx).
		SetHeader("Content-Type", contentType).
		SetHeader("x-upsert", "false").
		SetBody(data)

	if _, err := c.execute("upload "+name, req, http.MethodPost, c.objectPath(name)); err != nil {
		return "", err
	}
	return name, nil
}

// Remove deletes a stored object by key.
func (c *Client) Remove(ctx context.Context, name string) error {
	_, err := c.execute("remove "+name, c.newRequest(ctx), http.MethodDelete, c.objectPath(name))
	return err
}
