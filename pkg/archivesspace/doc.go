// Package archivesspace provides a session-holding client for the
// ArchivesSpace staff API, the typed catalog records cascflow reads and
// writes, and the flattened arrangement view derived from a record's
// ancestry.
//
// A Client is constructed and authenticated once per run and passed
// explicitly to the components that need it. Transport-level failures
// (connection resets, protocol errors, dial failures) are retried with
// exponential backoff bounded by a total elapsed-time ceiling; responses
// that arrive, including application errors, are never retried.
package archivesspace
