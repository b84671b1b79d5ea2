// Package posting decides whether a financial record may be changed based on
// its lifecycle status.
//
// A record in draft status is fully open. A posted record is read-only for
// every caller and every record type. Records are read through a Loader that
// the caller supplies per call, so the package holds no state and is safe for
// concurrent use.
package posting
