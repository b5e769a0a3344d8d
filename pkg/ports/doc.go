/*
Package ports defines the driven-port interfaces of the funnel engine.

Adapters (memory, redis, yaml files, webhooks, HTTP streams) implement
these interfaces so the core navigation machine stays decoupled from
storage, configuration sources, and outbound transports.
*/
package ports
