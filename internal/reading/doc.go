// Package reading tracks where the reader is in each book.
//
// A Tracker sits between the reading view and the store. It loads the saved
// position when a book is activated, hands it back exactly once for scroll
// restoration, and persists new positions. High-frequency scroll samples are
// debounced so only the last sample in a burst reaches the database, and a
// sequence check keeps an older write from landing after a newer one.
//
// When the store reports it is unavailable the tracker keeps serving positions
// from memory and stops writing. Progress is then lost on exit, which is
// logged once.
//
// Shelf derives bookshelf percentages and labels from stored progress.
package reading
