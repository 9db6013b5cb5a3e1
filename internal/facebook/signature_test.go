package facebook

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSignatureVerifier(t *testing.T) {
	verifier := NewSignatureVerifier("app-secret")
	body := []byte(`{"object":"page","entry":[]}`)

	t.Run("accepts untampered payload", func(t *testing.T) {
		assert.True(t, verifier.Verify(body, verifier.Sign(body)))
	})

	t.Run("rejects signature from wrong secret", func(t *testing.T) {
		other := NewSignatureVerifier("different-secret")
		assert.False(t, verifier.Verify(body, other.Sign(body)))
	})

	t.Run("rejects tampered body", func(t *testing.T) {
		signature := verifier.Sign(body)
		tampered := []byte(`{"object":"page","entry":[{}]}`)
		assert.False(t, verifier.Verify(tampered, signature))
	})

	t.Run("rejects malformed header", func(t *testing.T) {
		assert.False(t, verifier.Verify(body, "not-a-signature"))
		assert.False(t, verifier.Verify(body, "sha1=abcdef"))
		assert.False(t, verifier.Verify(body, ""))
	})

	t.Run("rejects empty body", func(t *testing.T) {
		assert.False(t, verifier.Verify(nil, verifier.Sign(nil)))
	})
}
