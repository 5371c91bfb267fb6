package cookie_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authkit/pkg/cookie"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func roundTrip(t *testing.T, write func(w http.ResponseWriter)) *http.Request {
	t.Helper()
	rec := httptest.NewRecorder()
	write(rec)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}

func TestManager_New(t *testing.T) {
	t.Parallel()

	t.Run("no secrets", func(t *testing.T) {
		t.Parallel()
		_, err := cookie.New(nil)
		assert.ErrorIs(t, err, cookie.ErrNoSecret)
	})

	t.Run("blank secrets are dropped", func(t *testing.T) {
		t.Parallel()
		_, err := cookie.New([]string{"", ""})
		assert.ErrorIs(t, err, cookie.ErrNoSecret)
	})

	t.Run("short secret", func(t *testing.T) {
		t.Parallel()
		_, err := cookie.New([]string{"too-short"})
		assert.ErrorIs(t, err, cookie.ErrSecretTooShort)
	})
}

func TestManager_Signed(t *testing.T) {
	t.Parallel()

	m, err := cookie.New([]string{testSecret})
	require.NoError(t, err)

	t.Run("round trip", func(t *testing.T) {
		t.Parallel()

		req := roundTrip(t, func(w http.ResponseWriter) {
			m.SetSigned(w, "sid", "some-value")
		})

		value, err := m.GetSigned(req, "sid")
		require.NoError(t, err)
		assert.Equal(t, "some-value", value)
	})

	t.Run("tampered value is rejected", func(t *testing.T) {
		t.Parallel()

		rec := httptest.NewRecorder()
		m.SetSigned(rec, "sid", "some-value")
		raw := rec.Result().Cookies()[0]

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "sid", Value: "x" + raw.Value})

		_, err := m.GetSigned(req, "sid")
		assert.Error(t, err)
	})

	t.Run("missing cookie", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		_, err := m.GetSigned(req, "sid")
		assert.ErrorIs(t, err, cookie.ErrCookieNotFound)
	})

	t.Run("rotated secret still verifies", func(t *testing.T) {
		t.Parallel()

		old, err := cookie.New([]string{testSecret})
		require.NoError(t, err)
		rotated, err := cookie.New([]string{strings.Repeat("n", 32), testSecret})
		require.NoError(t, err)

		req := roundTrip(t, func(w http.ResponseWriter) {
			old.SetSigned(w, "sid", "survivor")
		})

		value, err := rotated.GetSigned(req, "sid")
		require.NoError(t, err)
		assert.Equal(t, "survivor", value)
	})
}

func TestManager_Encrypted(t *testing.T) {
	t.Parallel()

	m, err := cookie.New([]string{testSecret})
	require.NoError(t, err)

	t.Run("round trip", func(t *testing.T) {
		t.Parallel()

		req := roundTrip(t, func(w http.ResponseWriter) {
			require.NoError(t, m.SetEncrypted(w, "sid", `{"user":"alice"}`))
		})

		value, err := m.GetEncrypted(req, "sid")
		require.NoError(t, err)
		assert.Equal(t, `{"user":"alice"}`, value)
	})

	t.Run("ciphertext is opaque", func(t *testing.T) {
		t.Parallel()

		rec := httptest.NewRecorder()
		require.NoError(t, m.SetEncrypted(rec, "sid", "plaintext-marker"))
		assert.NotContains(t, rec.Result().Cookies()[0].Value, "plaintext-marker")
	})

	t.Run("garbage is rejected", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "sid", Value: "bm90LWEtY29va2ll"})

		_, err := m.GetEncrypted(req, "sid")
		assert.ErrorIs(t, err, cookie.ErrDecryptionFailed)
	})
}

func TestManager_Delete(t *testing.T) {
	t.Parallel()

	m, err := cookie.New([]string{testSecret})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	m.Delete(rec, "sid")

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)
	assert.Empty(t, cookies[0].Value)
}
