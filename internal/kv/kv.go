// Package kv provides the durable key-value string storage used to persist the session.
package kv

// Store is a synchronous key-value string store. A missing key is reported
// with ok == false, never as an error.
type Store interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
}
