/*
Package observability provides lifecycle hooks for monitoring the exhibit engine.

LogHooks writes every navigation event to a structured logger; Metrics records the same events
as Prometheus series and also counts dispatcher deliveries by outcome.
*/
package observability
