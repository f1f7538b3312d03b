// Package analysis defines the boundary to the remote analysis and grading
// service: request and response types, the Analyzer and Grader interfaces,
// and the errors implementations return. The HTTP implementation lives in
// internal/platform/remote.
package analysis
