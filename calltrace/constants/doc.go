// Package constants centralizes shared literals: header names, masked-value
// placeholders, and logger namespaces.
package constants
