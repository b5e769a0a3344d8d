/*
Package session coordinates concurrent access to funnel session state.

It provides a Manager that serializes operations per session via
reference-counted in-process locks, with an optional distributed locker
for multi-replica deployments.
*/
package session
