package email_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authkit/pkg/email"
)

func TestDevSender_SendEmail(t *testing.T) {
	t.Parallel()

	t.Run("writes html and metadata files", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		sender := email.NewDevSender(dir)

		err := sender.SendEmail(context.Background(), email.SendEmailParams{
			SendTo:   "alice@example.com",
			Subject:  "Email Confirmation",
			BodyHTML: "<p>token</p>",
			Tag:      "verification",
		})
		require.NoError(t, err)

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		require.Len(t, entries, 2)

		var htmlFound, jsonFound bool
		for _, e := range entries {
			switch filepath.Ext(e.Name()) {
			case ".html":
				htmlFound = true
				data, err := os.ReadFile(filepath.Join(dir, e.Name()))
				require.NoError(t, err)
				assert.Equal(t, "<p>token</p>", string(data))
			case ".json":
				jsonFound = true
			}
		}
		assert.True(t, htmlFound)
		assert.True(t, jsonFound)
	})

	t.Run("rejects invalid params", func(t *testing.T) {
		t.Parallel()

		sender := email.NewDevSender(t.TempDir())

		err := sender.SendEmail(context.Background(), email.SendEmailParams{
			SendTo:   "not-an-email",
			Subject:  "x",
			BodyHTML: "y",
		})
		assert.ErrorIs(t, err, email.ErrInvalidParams)
	})
}
