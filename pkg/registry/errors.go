package registry

import "fmt"

// Error codes returned by PostMessage. The values are part of the wire
// contract and must not change.
const (
	ErrCodeMessageAlreadyPosted uint32 = 100
	ErrCodeInvalidSignature     uint32 = 101
)

// PostError is a protocol-level rejection of a post. It is an ordinary
// result: the registry is unchanged and no event was emitted.
type PostError struct {
	Code    uint32 `json:"code"`
	Message string `json:"message"`
}

func (e *PostError) Error() string {
	return fmt.Sprintf("post rejected (code %d): %s", e.Code, e.Message)
}

// Is matches any PostError with the same code, so errors.Is works against
// the sentinels below.
func (e *PostError) Is(target error) bool {
	t, ok := target.(*PostError)
	return ok && t.Code == e.Code
}

var (
	ErrMessageAlreadyPosted = &PostError{Code: ErrCodeMessageAlreadyPosted, Message: "message already posted"}
	ErrInvalidSignature     = &PostError{Code: ErrCodeInvalidSignature, Message: "invalid signature"}
)

// NewPostError builds a PostError for code with the standard message.
func NewPostError(code uint32) *PostError {
	switch code {
	case ErrCodeMessageAlreadyPosted:
		return &PostError{Code: code, Message: ErrMessageAlreadyPosted.Message}
	case ErrCodeInvalidSignature:
		return &PostError{Code: code, Message: ErrInvalidSignature.Message}
	default:
		return &PostError{Code: code, Message: "unknown error"}
	}
}
