package notify_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/go-birthday-reminder/internal/notify"
)

func TestParseTemplate(t *testing.T) {
	t.Run("with frontmatter", func(t *testing.T) {
		tpl, err := notify.ParseTemplate([]byte("---\nsubject: Hi {{.Name}}\n---\n# Hello\n"))
		require.NoError(t, err)
		assert.Equal(t, "Hi {{.Name}}", tpl.Metadata["subject"])
		assert.Equal(t, "# Hello\n", tpl.Body)
	})

	t.Run("without frontmatter", func(t *testing.T) {
		tpl, err := notify.ParseTemplate([]byte("plain body"))
		require.NoError(t, err)
		assert.Empty(t, tpl.Metadata)
		assert.Equal(t, "plain body", tpl.Body)
	})

	t.Run("empty frontmatter", func(t *testing.T) {
		tpl, err := notify.ParseTemplate([]byte("---\n\n---\nbody"))
		require.NoError(t, err)
		assert.Empty(t, tpl.Metadata)
		assert.Equal(t, "body", tpl.Body)
	})

	invalid := map[string]string{
		"nothing after opening": "---",
		"unclosed":              "---\nsubject: x\nbody",
		"bad yaml":              "---\nsubject: [unclosed\n---\nbody",
	}
	for name, content := range invalid {
		t.Run(name, func(t *testing.T) {
			_, err := notify.ParseTemplate([]byte(content))
			assert.ErrorIs(t, err, notify.ErrInvalidFrontmatter)
		})
	}
}
