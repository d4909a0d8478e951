package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// fast keeps the tests quick
var fast = Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 8, KeyLength: 16}

func TestHashAndVerify(t *testing.T) {
	encoded, err := HashWithParams("correct horse", fast)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(encoded, "$argon2id$v=19$m=1024,t=1,p=1$"))

	ok, err := Verify("correct horse", encoded)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Verify("wrong horse", encoded)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashUsesRandomSalt(t *testing.T) {
	a, err := HashWithParams("secret", fast)
	require.NoError(t, err)
	b, err := HashWithParams("secret", fast)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestVerifyRejectsMalformedHashes(t *testing.T) {
	for _, encoded := range []string{
		"",
		"plain",
		"$argon2i$v=19$m=1024,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=x,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=1024,t=1,p=1$!!$aGFzaA",
	} {
		_, err := Verify("secret", encoded)
		assert.ErrorIs(t, err, ErrInvalidHash, encoded)
	}

	_, err := Verify("secret", "$argon2id$v=16$m=1024,t=1,p=1$c2FsdA$aGFzaA")
	assert.ErrorIs(t, err, ErrIncompatibleVersion)
}

func TestNeedsRehash(t *testing.T) {
	weak, err := HashWithParams("secret", fast)
	require.NoError(t, err)
	assert.True(t, NeedsRehash(weak))

	legacy, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)
	assert.True(t, NeedsRehash(string(legacy)))

	current, err := Hash("secret")
	require.NoError(t, err)
	assert.False(t, NeedsRehash(current))
}
