// Package errors turns Redmine client failures into user-friendly CLI
// errors.
//
// Core types:
//   - CLIError: Wraps errors with message, suggestion, and details
//   - ErrorMessenger: Interface for customizing error messages
//
// Wrap classifies by error kind rather than by message text, so a
// rejected api key, an exhausted retry budget, an unreachable server and a
// refused upload each get their own guidance:
//
//	if err := client.UploadFile(ctx, id, path, opts); err != nil {
//	    err = errors.Wrap(err, errors.WithServerURL(client.BaseURL()))
//	    fmt.Fprintln(os.Stderr, err)
//	    os.Exit(errors.ExitCode(err))
//	}
package errors
