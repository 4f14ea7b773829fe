package notify

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Template is a markdown template split into its frontmatter and body.
type Template struct {
	Metadata map[string]any
	Body     string
}

// ParseTemplate extracts the optional YAML frontmatter of a markdown template.
// Content without a leading "---" is returned whole as the body.
func ParseTemplate(content []byte) (*Template, error) {
	delimiter := []byte("---")

	if !bytes.HasPrefix(content, delimiter) {
		return &Template{Metadata: make(map[string]any), Body: string(content)}, nil
	}

	afterFirst := bytes.TrimLeft(bytes.TrimPrefix(content, delimiter), "\n\r")
	if len(afterFirst) == 0 {
		return nil, fmt.Errorf("%w: no content after opening delimiter", ErrInvalidFrontmatter)
	}

	endIdx := bytes.Index(afterFirst, delimiter)
	if endIdx == -1 {
		return nil, fmt.Errorf("%w: closing delimiter not found", ErrInvalidFrontmatter)
	}

	front := afterFirst[:endIdx]
	body := bytes.TrimLeft(afterFirst[endIdx+len(delimiter):], "\r\n")

	metadata := make(map[string]any)
	if len(bytes.TrimSpace(front)) > 0 {
		if err := yaml.Unmarshal(front, &metadata); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFrontmatter, err)
		}
	}

	return &Template{Metadata: metadata, Body: string(body)}, nil
}
