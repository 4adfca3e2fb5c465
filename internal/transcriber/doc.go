// Package transcriber talks to the external speech-to-text service.
//
// The flow is submit, poll, fetch: a submission returns a job id, the job is
// polled until done or rejected, and the completed transcript is fetched by
// job id. Errors are classified into four sentinels so callers can pick the
// right recovery: reject permanently, back off, retry briefly, or give up on
// a deadline.
package transcriber
