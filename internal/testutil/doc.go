// Package testutil contains helper builders and utilities used across tests
// to reduce boilerplate when constructing core model objects (events,
// scripted executors) and asserting behaviors. They are not intended for
// production usage.
package testutil
