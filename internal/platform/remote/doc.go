// Package remote implements analysis.Analyzer and analysis.Grader over HTTP
// against the remote analysis service.
package remote
