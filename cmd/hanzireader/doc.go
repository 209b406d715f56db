// Package main hosts the hanzireader CLI entrypoint and command graph.
//
// The Cobra command tree exposes the local reader database: reading progress
// per book, saved vocabulary, the dictionary and audio caches, and database
// health. It centralizes configuration resolution, logging setup, and store
// opening so subcommands only describe what they print.
package main
