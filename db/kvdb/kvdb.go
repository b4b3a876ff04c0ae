package kvdb

type DB interface {
	Set(bucket string, key string, value string) error
	Get(bucket string, key string) (string, error)
	Delete(bucket string, key string) error
	GetAllKeys(bucket string) ([]string, error)
	// Last returns up to limit values, starting from the greatest key.
	Last(bucket string, limit int) ([]string, error)
	Close() error
}
