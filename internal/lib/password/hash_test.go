package password_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/materials-api/internal/lib/password"
	"github.com/magabrotheeeer/materials-api/internal/lib/validation"
	"github.com/magabrotheeeer/materials-api/internal/models"
)

func TestGetHash_AcceptedRegistrationPasswords(t *testing.T) {
	tests := []struct {
		name     string
		password string
	}{
		{"shortest allowed", "abc123"},
		{"exactly 72 bytes", strings.Repeat("a", 72)},
		{"73 bytes", strings.Repeat("a", 73)},
		{"longest allowed", strings.Repeat("x", 128)},
		{"cyrillic over 72 bytes", strings.Repeat("пароль", 20)},
	}

	v := validation.New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, validation.Struct(v, models.DummyUser{Email: "u@example.com", Password: tt.password}))

			hash, err := password.GetHash(tt.password)
			require.NoError(t, err)
			assert.NotEqual(t, tt.password, hash)
			assert.NoError(t, password.CompareHash(hash, tt.password))
		})
	}
}

func TestRegistrationPasswordLength(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantMsg  string
	}{
		{"five characters", "abc12", "Ensure this field has at least 6 characters."},
		{"129 characters", strings.Repeat("x", 129), "Ensure this field has no more than 128 characters."},
	}

	v := validation.New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validation.Struct(v, models.DummyUser{Email: "u@example.com", Password: tt.password})
			var verr *models.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, []string{tt.wantMsg}, verr.Fields["password"])
		})
	}
}

func TestCompareHash(t *testing.T) {
	long := strings.Repeat("a", 72)
	shortHash, err := password.GetHash("secret123")
	require.NoError(t, err)
	longHash, err := password.GetHash(long + "tail-one")
	require.NoError(t, err)

	tests := []struct {
		name    string
		hash    string
		attempt string
		wantErr bool
	}{
		{"matching password", shortHash, "secret123", false},
		{"wrong password", shortHash, "secret124", true},
		{"empty password", shortHash, "", true},
		{"long password matches", longHash, long + "tail-one", false},
		{"long passwords differ past 72 bytes", longHash, long + "tail-two", true},
		{"long password prefix", longHash, long, true},
		{"not a bcrypt hash", "plain", "plain", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := password.CompareHash(tt.hash, tt.attempt)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestGetHash_Salted(t *testing.T) {
	first, err := password.GetHash("secret123")
	require.NoError(t, err)
	second, err := password.GetHash("secret123")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.NoError(t, password.CompareHash(second, "secret123"))
}
