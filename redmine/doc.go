// Package redmine provides a client for the Redmine REST API.
//
// The client authenticates with an api key, reads issues, uploads files and
// updates issue notes, status and assignee. Every call runs synchronously on
// the caller's goroutine.
//
// # Usage
//
//	cfg := &redmine.Config{
//		URL:    "https://redmine.example.com/",
//		APIKey: os.Getenv("REDMINE_API_KEY"),
//	}
//
//	client, err := redmine.NewClient(cfg, redmine.WithLogger(logger))
//	if err != nil {
//		return err
//	}
//
//	issue, err := client.GetIssueData(ctx, 42)
//
//	err = client.UpdateIssue(ctx, 42, redmine.UpdateOptions{
//		Notes:    redmine.String("done"),
//		StatusID: redmine.Int(4),
//	})
//
// # Retries
//
// GET and PUT requests are retried on any status other than success and 401,
// waiting Config.RetryWait (60s by default) between attempts, for at most
// MaxAttempts attempts. A 401 is never retried. Staging an upload is a
// single attempt.
//
// # Uploads
//
// UploadFile stages the file on uploads.json, then attaches the returned
// token to the issue. The second request is only sent if staging returned
// 201 with a token:
//
//	err := client.UploadFile(ctx, 42, "/tmp/report.pdf", redmine.UploadOptions{
//		ContentType: "application/pdf",
//		Notes:       redmine.String("nightly report"),
//	})
//
// # Error Handling
//
// Failures are typed so callers can branch without parsing messages:
//
//	var exhausted *devhttp.ExhaustedRetriesError
//	switch {
//	case redmine.IsUnauthorized(err):
//		// api key rejected
//	case errors.As(err, &exhausted):
//		// exhausted.StatusCode, exhausted.Body
//	case redmine.IsUploadFailed(err):
//		// staging failed, nothing attached
//	}
package redmine
