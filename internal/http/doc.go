// Package http provides HTTP handlers and middleware for the staffing API.
//
// The router exposes the following endpoints:
//   - GET /events, POST /events, GET /events/{id}, DELETE /events/{id}: event
//     management endpoints exchanging the `eventDTO` payload defined in
//     event_handler.go. Event responses embed the full assignment list.
//   - GET /events/{id}/assignments: latest known assignment snapshot for the
//     event, preferring the in-process sync layer over the store.
//   - POST /events/{id}/assignments: adds a resource as pending. Body:
//     {"resourceId"}.
//   - POST /events/{id}/assignments/{resourceId}/confirm: promotes a resource
//     into a quota slot. Body: {"force"}. A non-forced confirm that hits an
//     advisory double-booking returns 409 CONFLICT_DETECTED with the
//     conflicting events; repeating with force applies it. A confirm past the
//     quota returns 409 QUOTA_EXCEEDED regardless of force.
//   - POST /events/{id}/assignments/{resourceId}/refuse: marks the resource
//     refused. Allowed from any state.
//   - DELETE /events/{id}/assignments/{resourceId}: removes the assignment.
//   - PUT /events/{id}/required-count: changes the confirmed quota. Body:
//     {"requiredResourceCount"}.
//   - GET /events/{id}/conflicts?resourceId=...: advisory double-booking scan
//     without mutating anything.
//   - GET /resources, POST /resources, GET /resources/{id}, PUT
//     /resources/{id}, DELETE /resources/{id}: staff directory endpoints
//     exchanging the `resourceDTO` payload defined in resource_handler.go.
//
// Mutating assignment endpoints accept an optional X-Origin-ID header naming
// the surface that issued the change; the value is forwarded to the sync
// layer so other surfaces can tell their own updates apart.
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
