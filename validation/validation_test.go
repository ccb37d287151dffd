package validation_test

import (
	"testing"

	"github.com/jrsteele09/go-pin-client/validation"
	"github.com/stretchr/testify/require"
)

func TestValidateUserName(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"ab1", false},
		{"ab12", true},
		{"AB12", false},
		{"john.doe_99-x", true},
		{"", false},
		{"with space", false},
		{"émile", false},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			require.Equal(t, tc.want, validation.ValidateUserName(tc.in))
		})
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"valid", "Passw0rd!", true},
		{"valid without digit", "Password!", true},
		{"all lowercase", "password", false},
		{"no lowercase", "PASSW0RD!", false},
		{"no symbol", "Passw0rdX", false},
		{"too short", "Pa!s0", false},
		{"sixteen chars", "Abcdefghijklmn!1", true},
		{"seventeen chars", "Abcdefghijklmno!1", false},
		{"disallowed symbol", "Passw0rd!#", false},
		{"space", "Pass w0rd!", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, validation.ValidatePassword(tc.in))
		})
	}
}

func TestValidateEmail(t *testing.T) {
	require.True(t, validation.ValidateEmail("jane@example.com"))
	require.True(t, validation.ValidateEmail("jane.doe+pins@mail.example.in"))
	require.True(t, validation.ValidateEmail("team@pins.org"))
	require.False(t, validation.ValidateEmail("jane@example.net"))
	require.False(t, validation.ValidateEmail("jane.example.com"))
	require.False(t, validation.ValidateEmail("@example.com"))
	require.False(t, validation.ValidateEmail(""))
}

func TestValidateFullName(t *testing.T) {
	require.True(t, validation.ValidateFullName("Jo"))
	require.True(t, validation.ValidateFullName("Jane Doe"))
	require.True(t, validation.ValidateFullName("Ana Maria Lopez"))
	require.False(t, validation.ValidateFullName("J Doe"))
	require.False(t, validation.ValidateFullName("Jane  Doe"))
	require.False(t, validation.ValidateFullName("Jane3"))
	require.False(t, validation.ValidateFullName(""))
}

func TestValidateMobile(t *testing.T) {
	require.True(t, validation.ValidateMobile("9876543210"))
	require.False(t, validation.ValidateMobile("987654321"))
	require.False(t, validation.ValidateMobile("98765432100"))
	require.False(t, validation.ValidateMobile("98765-4321"))
}

func TestValidateForm(t *testing.T) {
	require.True(t, validation.ValidateForm("user", "pw"))
	require.False(t, validation.ValidateForm("", "pw"))
	require.False(t, validation.ValidateForm("user", ""))
}

func TestMessage(t *testing.T) {
	require.Equal(t, "Passwords do not match.", validation.Message(validation.FieldConfirmPassword))
	require.Equal(t, "This field is required.", validation.Message("unknown"))
}

func TestRequired_Missing(t *testing.T) {
	type form struct {
		Email    string `json:"email" validate:"required"`
		Username string `json:"username" validate:"required"`
		Bio      string `json:"bio"`
	}
	r := validation.NewRequired()

	t.Run("all present", func(t *testing.T) {
		require.Empty(t, r.Missing(form{Email: "a@b.com", Username: "abcd"}))
	})

	t.Run("reports json names in order", func(t *testing.T) {
		require.Equal(t, []string{"email", "username"}, r.Missing(form{Bio: "hi"}))
	})
}
