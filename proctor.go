// Package proctor runs Python project tooling (tests, linting, type
// checking, audits) behind an MCP server, executing every tool as a
// stdio-isolated child process.
package proctor

// Version is the proctor release version.
const Version = "0.2.0"
