package notify

import "errors"

var (
	// ErrTemplateNotFound indicates the template file was not found.
	ErrTemplateNotFound = errors.New("template not found")

	// ErrLayoutNotFound indicates the layout file was not found.
	ErrLayoutNotFound = errors.New("layout not found")

	// ErrRenderFailed indicates template rendering failed.
	ErrRenderFailed = errors.New("failed to render template")

	// ErrInvalidFrontmatter indicates invalid YAML frontmatter.
	ErrInvalidFrontmatter = errors.New("invalid frontmatter")

	// ErrNoAddress indicates the recipient has no email address.
	ErrNoAddress = errors.New("recipient has no email address")

	// ErrPushRejected indicates the push service answered with a non-zero code.
	ErrPushRejected = errors.New("push service rejected message")

	// ErrPushStatus indicates the push service answered with a non-200 status.
	ErrPushStatus = errors.New("push service returned unexpected status")
)
