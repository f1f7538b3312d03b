// Package api exposes the capture and delivery subsystem over HTTP. Handlers
// translate requests into calls on the capture pipeline, the recall service
// and the delivery facade, and map their errors to safe status codes.
package api
