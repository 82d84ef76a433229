// Package sanitizer normalizes client supplied strings before they are
// validated or used in store queries.
//
// Sanitizers never reject input. They only make equivalent spellings equal,
// so " reserved " and "RESERVED" select the same filter, and leave
// validation to the validator package.
package sanitizer
