// Package capture turns a shared URL into an analysis decision and the events
// that record it.
//
// The Pipeline asks the analysis service whether the content is worth an
// interruption, derives the decision confidence and ignore reason locally,
// emits a telemetry event and schedules recall reminders. RecallService
// covers the user-initiated follow-ups: grading an answer, submitting a
// recall score and leaving feedback.
//
// Only the analysis call (and grading) can fail observably, with
// ErrRetryable. Everything downstream of it is reported to a diag.Sink and
// otherwise swallowed.
package capture
