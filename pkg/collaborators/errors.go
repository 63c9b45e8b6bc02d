// Package collaborators defines the error reported when an external data
// source (log API, roster file, event store) cannot be reached or read.
package collaborators

import "fmt"

const (
	Collaborator_Etherscan  = "etherscan"
	Collaborator_Roster     = "roster"
	Collaborator_EventStore = "eventStore"
)

// CollaboratorUnavailableError reports that a collaborator failed to return
// data for Resource. Values depending on that resource are treated as absent.
type CollaboratorUnavailableError struct {
	Collaborator string
	Resource     string
	Err          error
}

func (e *CollaboratorUnavailableError) Error() string {
	return fmt.Sprintf("%s unavailable for '%s': %v", e.Collaborator, e.Resource, e.Err)
}

func (e *CollaboratorUnavailableError) Unwrap() error {
	return e.Err
}

func NewCollaboratorUnavailableError(collaborator string, resource string, err error) *CollaboratorUnavailableError {
	return &CollaboratorUnavailableError{
		Collaborator: collaborator,
		Resource:     resource,
		Err:          err,
	}
}
