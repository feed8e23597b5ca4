// Package connection manages device sessions and retries device calls.
//
// Every SOAP call to a Ricoh service carries a session ID obtained from
// startSession. A Manager owns that session for one service endpoint:
//   - Connect starts a session, always discovering service capabilities
//     before it reports success
//   - WithSession runs an operation inside a session, opening and closing
//     one around it when the caller does not already hold a session
//   - switching between shared and exclusive sessions closes the current
//     session first
//
// # Retries
//
// Devices drop requests while busy printing. A Retrier repeats a call that
// failed with a transient transport error, up to three attempts in total,
// immediately and with a warning per retry. Business faults are never
// retried. Every failure leaving the Retrier is an *OperationFailedError
// naming the host and operation.
//
// RetryConfig.Backoff spaces retries out exponentially; by default there is no
// delay.
package connection
