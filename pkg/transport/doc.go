// Package transport carries SOAP envelopes to a device over HTTP.
//
// A Client is bound to one service endpoint, for example
// http://printer1/DH/devicemanagement. Every outgoing envelope is passed
// through the envelope normalizer before it is posted, and every exchange is
// reported to the configured capture logger.
//
// # Error Classification
//
// Callers retry only transient failures:
//   - ErrEntryPointNotFound: the endpoint answered 404
//   - *CommunicationError: the request never completed, timed out, or the
//     device answered 5xx without a SOAP fault
//
// Everything else is final: a *wire.Fault is a business failure reported by
// the device, and ErrMalformedResponse means the device answered with
// something that is not a SOAP envelope.
package transport
