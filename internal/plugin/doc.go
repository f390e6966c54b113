// Package plugin delivers forward values of applied load reports to plugins.
//
// The main components are:
//
//   - [Dispatcher]: bounded queue plus worker pool, never blocks the caller
//   - [Webhook]: plugin POSTing forward values as JSON to an HTTP endpoint
//   - [Func]: adapter turning a plain callback into a plugin
//
// Plugin failures are logged and counted; they never reach the report path.
package plugin
