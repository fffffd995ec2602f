package domain

import "fmt"

// LoadError is returned when the seed resource cannot be fetched or parsed.
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("cannot load default data %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// ParseError is returned when serialized input is not valid JSON.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid JSON: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// RegionNotFoundError is returned when no region matches the requested name.
type RegionNotFoundError struct {
	Region string
}

func (e *RegionNotFoundError) Error() string {
	return fmt.Sprintf("cannot find region: %s", e.Region)
}

// SiteNotFoundError is returned when no site in the region has the number.
type SiteNotFoundError struct {
	Region string
	Number int
}

func (e *SiteNotFoundError) Error() string {
	return fmt.Sprintf("cannot find site number=%d in region %s", e.Number, e.Region)
}

// DuplicateNumberError is returned when a number is already used in the region.
type DuplicateNumberError struct {
	Region string
	Number int
}

func (e *DuplicateNumberError) Error() string {
	return fmt.Sprintf("number %d already exists in region %s", e.Number, e.Region)
}

// ValidationError reports a field that failed validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}
