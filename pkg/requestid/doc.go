// Package requestid correlates log records belonging to one HTTP request.
//
// Middleware attaches an ID to every request; LoggerExtractor plugs into
// logger.WithContextExtractors so records made with the request context
// carry it as "request_id".
package requestid
