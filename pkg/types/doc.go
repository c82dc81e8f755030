// Package types defines the capability interfaces shared by every storage
// medium (Readable, Writable, Erasable, Bounded), the address and region
// model, the word model, and the error taxonomy reported by all capability
// operations.
//
// A medium implements any subset of the capability interfaces. Generic code
// asks for the intersection it needs (for example ReadWriter) and checks it
// once, at construction time, with Require or one of the As helpers.
package types
