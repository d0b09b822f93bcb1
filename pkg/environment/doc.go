// Package environment names the deployment environments the service runs in
// and carries the active one through request contexts.
//
// The environment is read once at startup (APP_ENV) and parsed with Parse,
// which accepts the short aliases "dev", "stage" and "prod". Development mode
// switches the logger to text output and turns on driver command logging.
package environment
