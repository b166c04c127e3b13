// Package control
// Author: momentics <momentics@gmail.com>
//
// Configuration, reload, metrics and debug introspection for the gateway.
//
// Provides:
//   - Environment and .env configuration with validation
//   - Reload hooks run on SIGHUP
//   - Prometheus collectors on a private registry
//   - Named debug probes served as JSON
package control
