// Package logging provides file-based logging with rotation for DocDex.
// Logs are written as JSON lines to ~/.docdex/logs/ so the MCP server can
// stay silent on stdout and stderr while remaining debuggable.
//
// CLI commands may additionally mirror logs to stderr.
package logging
