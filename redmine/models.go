package redmine

import "encoding/json"

// Document is a JSON document returned by Redmine, passed through as parsed.
// The client does not model the issue schema beyond what its own
// operations need.
type Document = map[string]any

// UpdateOptions holds the fields of an issue update. Nil fields are not
// sent, so the server keeps its current values for them.
type UpdateOptions struct {
	// Notes is added to the issue's journal.
	Notes *string

	// StatusID is the new status (for example 2 for "In Progress").
	StatusID *int

	// AssignedToID is the id of the user to assign the issue to.
	AssignedToID *string
}

func (o UpdateOptions) empty() bool {
	return o.Notes == nil && o.StatusID == nil && o.AssignedToID == nil
}

// AssignOptions holds the optional fields sent with AssignToAuthor.
type AssignOptions struct {
	Notes    *string
	StatusID *int
}

// UploadOptions configures UploadFile.
type UploadOptions struct {
	// ContentType is the MIME type recorded for the attachment. Required.
	ContentType string

	// FileName is the name of the file once uploaded. Defaults to the last
	// element of the local path.
	FileName *string

	// Notes is sent along with the attachment.
	Notes *string

	// StatusID optionally changes the issue status in the same update.
	StatusID *int
}

// UploadRef attaches a staged upload to an issue.
type UploadRef struct {
	Token       string `json:"token"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
}

// issueRequest is the body of PUT issues/{id}.json.
type issueRequest struct {
	Issue issueFields `json:"issue"`
}

type issueFields struct {
	Notes        *string     `json:"notes,omitempty"`
	StatusID     *int        `json:"status_id,omitempty"`
	AssignedToID *string     `json:"assigned_to_id,omitempty"`
	Uploads      []UploadRef `json:"uploads,omitempty"`
}

type uploadResponse struct {
	Upload struct {
		Token string `json:"token"`
	} `json:"upload"`
}

type issueListResponse struct {
	Issues     []Document `json:"issues"`
	TotalCount *int       `json:"total_count"`
}

type authorResponse struct {
	Issue struct {
		Author *struct {
			ID json.Number `json:"id"`
		} `json:"author"`
	} `json:"issue"`
}

// String returns a pointer to s, for optional fields.
func String(s string) *string {
	return &s
}

// Int returns a pointer to i, for optional fields.
func Int(i int) *int {
	return &i
}
