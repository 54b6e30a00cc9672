// Package timeouts defines shared timeout constants used across turnkeeper
// commands.
package timeouts

import "time"

// ReadHeader limits how long an HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long a server waits for in-flight work during
// graceful shutdown.
const Shutdown = 5 * time.Second

// Interaction bounds the work done for one chat interaction. Discord expects an
// initial response within three seconds.
const Interaction = 3 * time.Second

// StoreBusy is the sqlite busy_timeout applied to every connection.
const StoreBusy = 5 * time.Second

// BoltOpen caps how long bbolt waits for the file lock held by another process.
const BoltOpen = time.Second
