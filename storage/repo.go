package storage

// Repo is the durable key/value storage backing the client session.
// Get returns errors.ErrKeyNotFound when the key has never been set or was deleted.
type Repo interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}
