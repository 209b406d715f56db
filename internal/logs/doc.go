// Package logs reads the JSON log file written by the logging package.
//
// Entries are decoded line by line with bounded memory, filtered by level,
// component, book, or event type, and optionally followed as the file grows.
// Lines that are not JSON objects are kept as raw messages so a partially
// written or hand-edited file still displays.
package logs
