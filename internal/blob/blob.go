// Package blob provides byte storage for uploaded file content.
package blob

// Store persists raw file bytes under opaque keys.
type Store interface {
	Write(key string, data []byte) error
	Read(key string) ([]byte, error)
	Delete(key string) error
	Exists(key string) bool
}
