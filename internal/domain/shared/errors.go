package shared

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound        = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists   = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput    = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrInvalidState    = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrRecordDeleted   = NewDomainError("RECORD_DELETED", "Record has been deleted")
	ErrReleaseLocked   = NewDomainError("RELEASE_LOCKED", "Release is being processed by another worker")
	ErrAssetNotFound   = NewDomainError("ASSET_NOT_FOUND", "Release asset could not be fetched")
	ErrFileNotStaged   = NewDomainError("FILE_NOT_STAGED", "File has no staged content to commit")
	ErrFilesIncomplete = NewDomainError("FILES_INCOMPLETE", "Draft has uncommitted files")
)
