package storage

import (
	"errors"
	"fmt"
)

// ErrObjectNotExist is returned by Delete and mapped by Exists when no
// object lives under the requested key.
var ErrObjectNotExist = errors.New("storage: object does not exist")

// ConfigError reports invalid provider configuration. It is raised during
// validation, before any network call is made.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("storage config: missing %s", e.Field)
	}
	return fmt.Sprintf("storage config: %s: %s", e.Field, e.Reason)
}

// BucketError reports a failed bucket creation.
type BucketError struct {
	Bucket string
	Err    error
}

func (e *BucketError) Error() string {
	return fmt.Sprintf("failed to create bucket %s: %v", e.Bucket, e.Err)
}

func (e *BucketError) Unwrap() error { return e.Err }

// WriteError reports a failed object write. The upload flow leaves the
// file without a URL when it sees one.
type WriteError struct {
	Key string
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to write object %s: %v", e.Key, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }
