package redmine

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
)

// UploadFile attaches a local file to an issue.
//
// The upload happens in two strictly sequential phases. The file is first
// staged on uploads.json in a single attempt; anything but 201 with a token
// fails with *UploadError and nothing else is sent. The token is then
// attached to the issue with a PUT that is retried like any other update.
func (c *Client) UploadFile(ctx context.Context, issueID int, path string, opts UploadOptions) error {
	if issueID <= 0 {
		return ErrIssueIDInvalid
	}
	if path == "" {
		return ErrFilePathRequired
	}
	if opts.ContentType == "" {
		return ErrContentTypeRequired
	}

	name := filepath.Base(path)
	if opts.FileName != nil && *opts.FileName != "" {
		name = *opts.FileName
	}

	ctx = c.operation(ctx, "upload_file", "issue_id", issueID, "path", path, "filename", name)

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read upload file: %w", err)
	}

	token, err := c.StageUpload(ctx, name, data)
	if err != nil {
		return err
	}

	return c.putIssue(ctx, issueID, issueFields{
		Notes:    opts.Notes,
		StatusID: opts.StatusID,
		Uploads: []UploadRef{{
			Token:       token,
			Filename:    name,
			ContentType: opts.ContentType,
		}},
	})
}

// StageUpload sends data to uploads.json and returns the upload token.
// The token is valid for a single following issue update. Staging is not
// retried.
func (c *Client) StageUpload(ctx context.Context, filename string, data []byte) (string, error) {
	c.log(ctx).InfoContext(ctx, "uploading file", "filename", filename, "bytes", len(data))

	ref := "uploads.json?filename=" + url.QueryEscape(filename)
	resp, err := c.api.PostOnce(ctx, ref, "application/octet-stream", data)
	if err != nil {
		return "", &UploadError{Filename: filename, Err: err}
	}

	if resp.StatusCode != http.StatusCreated {
		c.log(ctx).ErrorContext(ctx, "problem uploading file",
			"filename", filename, "status", resp.StatusCode, "body", string(resp.Body))
		return "", &UploadError{Filename: filename, StatusCode: resp.StatusCode, Body: resp.Body}
	}

	var out uploadResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return "", &UploadError{Filename: filename, StatusCode: resp.StatusCode, Body: resp.Body, Err: err}
	}
	if out.Upload.Token == "" {
		return "", &UploadError{Filename: filename, StatusCode: resp.StatusCode, Body: resp.Body, Err: ErrUploadTokenMissing}
	}

	return out.Upload.Token, nil
}
