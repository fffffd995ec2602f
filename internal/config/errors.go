package config

import "errors"

// Validation errors returned by Config.Validate, matched with errors.Is.
var (
	// ErrUnknownDriver is returned when storage.driver names no known backend.
	ErrUnknownDriver = errors.New("unknown storage driver: want memory, fs, s3, sqlite or postgres")

	// ErrMissingBucket is returned when the s3 driver has no bucket.
	ErrMissingBucket = errors.New("s3 storage requires storage.blob.s3.bucket")

	// ErrMissingDSN is returned when the postgres driver has no DSN.
	ErrMissingDSN = errors.New("postgres storage requires storage.postgres.dsn")

	// ErrInvalidRateLimit is returned when the mutation rate limit or burst is not positive.
	ErrInvalidRateLimit = errors.New("invalid rate limit: rate and burst must be positive")

	// ErrEmptyKey is returned when the storage key is blank.
	ErrEmptyKey = errors.New("storage key must not be empty")

	// ErrInvalidLogFormat is returned when log.format is neither text nor json.
	ErrInvalidLogFormat = errors.New("invalid log format: want text or json")

	// ErrConfigNotFound is returned when an explicitly requested config file does not exist.
	ErrConfigNotFound = errors.New("configuration file not found")
)
