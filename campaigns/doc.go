// Package campaigns is the resource query layer over the campaign API.
//
// Service has one method per resource kind:
//
//	GET /campaigns                 List
//	GET /campaigns/{id}            Get
//	GET /campaigns/insights        Aggregate
//	GET /campaigns/{id}/insights   Insights
//
// Each call builds the escaped address, forwards the caller's context to the
// fetch client, and returns its result or its *errors.Failure unchanged. No
// retry or caching happens here; see fetch and querycache.
//
// Filter and Sort are in-memory helpers for list views.
package campaigns
