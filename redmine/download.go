package redmine

import (
	"context"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
)

// DownloadFile fetches raw content, such as an attachment's content_url.
// Relative URLs resolve against the base URL. The request carries the api
// key and is retried like any other GET.
func (c *Client) DownloadFile(ctx context.Context, contentURL string) ([]byte, error) {
	if contentURL == "" {
		return nil, ErrContentURLEmpty
	}

	ctx = c.operation(ctx, "download_file", "content_url", contentURL)
	c.log(ctx).InfoContext(ctx, "downloading file")

	resp, err := c.api.Get(ctx, contentURL)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// DownloadText fetches content like DownloadFile and decodes it as UTF-8.
// A leading byte order mark is dropped. Content that is not valid UTF-8
// fails with ErrInvalidText.
func (c *Client) DownloadText(ctx context.Context, contentURL string) (string, error) {
	data, err := c.DownloadFile(ctx, contentURL)
	if err != nil {
		return "", err
	}

	text, err := unicode.UTF8BOM.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", contentURL, err)
	}
	// The decoder substitutes U+FFFD for bad bytes, so check the input.
	if !utf8.Valid(data) {
		return "", fmt.Errorf("decode %s: %w", contentURL, ErrInvalidText)
	}
	return string(text), nil
}
