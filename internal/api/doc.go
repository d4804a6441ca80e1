// Package api exposes the rubric store over HTTP and provides a client for it.
//
// # Routes
//
//	GET  /healthz                      liveness
//	GET  /metrics                      Prometheus metrics
//	GET  /rubric?rubricID=<id>         one rubric
//	GET  /rubric/orgdefault            {orgID, hasDefault}
//	PUT  /rubric                       create or replace a whole rubric
//	GET  /rubrics                      summaries, most recently updated first
//	POST /rubric/snapshot              {rubricID, reviewID} -> snapshot
//
// Every /rubric* route is scoped to the organization named by the X-Org-ID
// header. Errors use the envelope {"error": {"message", "code", "details"}}.
//
// Client implements document.Persistence against these routes, so an edit
// session can run against a remote store.
package api
