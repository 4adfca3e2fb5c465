package transcriber

import "errors"

var (
	// ErrSubmissionRejected means the service refused the submission outright
	// (bad credentials, malformed audio, unsupported format). Never retried.
	ErrSubmissionRejected = errors.New("transcriber: submission rejected")

	// ErrRateLimited means the service pushed back on request volume. Retried
	// with backoff, each retry counted against the attempt cap.
	ErrRateLimited = errors.New("transcriber: rate limited")

	// ErrTransient covers network failures and 5xx responses. Retried a small
	// bounded number of times.
	ErrTransient = errors.New("transcriber: transient failure")

	// ErrTimeout means a job did not finish inside the polling deadline.
	ErrTimeout = errors.New("transcriber: job timed out")
)
