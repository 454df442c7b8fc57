// Package bridge implements the file-based command/response protocol shared
// with the extension panel running inside Premiere Pro.
//
// The dispatcher writes command-<id>.json into a scratch directory, the panel
// executes the embedded ExtendScript payload in the host, and writes
// response-<id>.json next to it. The dispatcher polls for the response file
// until it appears or the per-call timeout elapses, then deletes both files.
//
// Key properties:
//   - One correlation id per Execute call; concurrent calls never share files
//   - The response file's presence is the sole completion signal
//   - Plain busy-polling at a fixed interval; no push notification exists
//   - Cleanup happens only on the success path; timed-out exchanges leave
//     their files on disk for post-mortem inspection (see Dispatcher.Sweep)
//
// Error handling:
//   - Execute before Initialize → ErrNotInitialized, no filesystem access
//   - No response within the timeout → ErrTimeout
//   - Response file with invalid JSON → parse error, files left in place
//   - Application-level failures travel inside the response payload and are
//     the caller's responsibility to interpret
//
// The protocol makes no ordering claim across concurrent commands: the panel
// may process pending command files in any order.
package bridge
