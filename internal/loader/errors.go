package loader

import "fmt"

type Kind string

const (
	KindNetwork  Kind = "network"
	KindNotFound Kind = "not_found"
	KindParse    Kind = "parse"
)

// LoadError describes why a contacts source could not be loaded.
type LoadError struct {
	Kind   Kind
	Source string
	// Status is the HTTP status code for unsuccessful responses, 0 otherwise.
	Status int
	Err    error
}

func (e *LoadError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("load %s: %s: http %d", e.Source, e.Kind, e.Status)
	}
	return fmt.Sprintf("load %s: %s: %v", e.Source, e.Kind, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
