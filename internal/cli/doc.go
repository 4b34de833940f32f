// Package cli turns the poolsweep command line into an app.Config. Usage
// errors are returned as ExitError so the entrypoint can pick the exit code.
package cli
