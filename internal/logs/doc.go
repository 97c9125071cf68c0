// Package logs reads back the application log file for the CLI: the trailing
// lines for a quick look, and a polling follow mode for live output.
package logs
