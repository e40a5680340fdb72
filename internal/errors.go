package internal

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates a referenced remote object does not exist in the cluster.
	ErrNotFound = errors.New("not found")
	// ErrCredentialsNotFound indicates the kubeconfig path does not resolve to a file.
	ErrCredentialsNotFound = errors.New("kubeconfig not found")
	// ErrTemplateNotFound indicates a resource template could not be located.
	ErrTemplateNotFound = errors.New("template not found")
)

type ValidationError string

func (err ValidationError) Error() string { return string(err) }

func (ValidationError) Is(err error) bool {
	_, ok := err.(ValidationError)
	return ok
}

func IsValidationErr(err error) bool {
	return errors.Is(err, ValidationError(""))
}

// ClusterAPIError preserves the upstream status code and message of a rejected
// or failed control-plane call for diagnostics.
type ClusterAPIError struct {
	Status  int
	Message string
}

func (err ClusterAPIError) Error() string {
	if err.Status == 0 {
		return "cluster api error: " + err.Message
	}
	return fmt.Sprintf("cluster api error (status %d): %s", err.Status, err.Message)
}

func (ClusterAPIError) Is(err error) bool {
	_, ok := err.(ClusterAPIError)
	return ok
}

func IsClusterAPIErr(err error) bool {
	return errors.Is(err, ClusterAPIError{})
}

// TemplateParseError indicates a template's static form, or the document produced
// by placeholder substitution, is not a well formed resource description.
type TemplateParseError struct {
	Name string
	Err  error
}

func (err TemplateParseError) Error() string {
	return fmt.Sprintf("failed to parse template %s: %v", err.Name, err.Err)
}

func (err TemplateParseError) Unwrap() error { return err.Err }

func (TemplateParseError) Is(err error) bool {
	_, ok := err.(TemplateParseError)
	return ok
}
