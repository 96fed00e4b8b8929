// Package cli turns command-line arguments into a validated app.Config. It
// owns flag definitions, usage text, and process exit codes; everything past
// argument handling belongs to the app package.
package cli
