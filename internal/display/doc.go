// Package display renders findings, warnings, and progress for the CLI.
package display
