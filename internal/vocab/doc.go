// Package vocab loads and serves the controlled vocabularies every
// enum-typed record field is checked against.
//
// The registry is loaded once from a declarative CUE source and is
// immutable afterwards: consumers hold a shared read-only reference and
// unsynchronized concurrent reads are safe. Extending a vocabulary means
// editing the CUE source, never runtime mutation.
package vocab
