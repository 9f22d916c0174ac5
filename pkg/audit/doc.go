// Package audit records authentication attempts for after-the-fact review.
//
// Every login processed by the gateway, successful or not, becomes one
// Record. The DBRecorder persists records to PostgreSQL; recording runs off
// the request path so a slow audit sink never delays a login response.
package audit
