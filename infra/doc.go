// Package infra holds the adapters behind the core contracts: the
// scheduling service HTTP client, the SQLite store, MQTT, metrics sinks,
// logging and Sentry. Packages here depend on core, never the reverse.
package infra
