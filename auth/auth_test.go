package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"messenger-lab/errors"
)

func TestHashAndComparePassword(t *testing.T) {
	req := require.New(t)

	hash, err := HashPassword("Str0ng&Secret!pass")
	req.NoError(err)
	req.Contains(hash, "$argon2id$")

	ok, err := ComparePassword("Str0ng&Secret!pass", hash)
	req.NoError(err)
	req.True(ok)

	ok, err = ComparePassword("wrong password", hash)
	req.NoError(err)
	req.False(ok)

	_, err = ComparePassword("anything", "not-a-hash")
	req.ErrorIs(err, errors.ErrInvalidHash)
}

func TestHashPassword_SaltedPerCall(t *testing.T) {
	req := require.New(t)
	first, err := HashPassword("Str0ng&Secret!pass")
	req.NoError(err)
	second, err := HashPassword("Str0ng&Secret!pass")
	req.NoError(err)
	req.NotEqual(first, second)
}

func TestTokenRoundTrip(t *testing.T) {
	req := require.New(t)

	token, err := GenerateToken("user-1", "alice", time.Hour)
	req.NoError(err)

	claims, err := ValidateToken(token)
	req.NoError(err)
	req.Equal("user-1", claims.UserID)
	req.Equal("alice", claims.Username)
	req.Equal("messenger-lab", claims.Issuer)
}

func TestValidateToken_RejectsExpired(t *testing.T) {
	req := require.New(t)

	token, err := GenerateToken("user-1", "alice", -time.Minute)
	req.NoError(err)

	_, err = ValidateToken(token)
	req.Error(err)
}

func TestValidateToken_RejectsGarbage(t *testing.T) {
	_, err := ValidateToken("definitely.not.ajwt")
	require.Error(t, err)
}

func TestSession_Identity(t *testing.T) {
	req := require.New(t)
	session := NewSession()

	_, ok := session.CurrentUserID()
	req.False(ok)

	token, err := GenerateToken("user-1", "alice", time.Hour)
	req.NoError(err)
	req.NoError(session.Authenticate(token))

	id, ok := session.CurrentUserID()
	req.True(ok)
	req.Equal("user-1", id)

	session.SignOut()
	_, ok = session.CurrentUserID()
	req.False(ok)
}

func TestSession_RejectsInvalidToken(t *testing.T) {
	req := require.New(t)
	session := NewSession()
	req.Error(session.Authenticate("broken"))
	_, ok := session.CurrentUserID()
	req.False(ok)
}

func TestRegister_MintsUserAndHash(t *testing.T) {
	req := require.New(t)

	user, hash, err := Register(RegisterRequest{
		Username: "alice",
		Email:    "alice@example.org",
		Password: "Str0ng&Secret!pass",
	})
	req.NoError(err)
	req.NotEmpty(user.ID)
	req.Equal("alice", user.Username)
	req.Equal("alice@example.org", user.Email)

	ok, err := ComparePassword("Str0ng&Secret!pass", hash)
	req.NoError(err)
	req.True(ok)

	_, _, err = Register(RegisterRequest{Username: "alice", Email: "bad", Password: "Str0ng&Secret!pass"})
	req.Error(err)
}

func TestValidateRegister(t *testing.T) {
	tests := []struct {
		name    string
		req     RegisterRequest
		wantErr bool
	}{
		{
			name: "valid request",
			req: RegisterRequest{
				Username: "alice",
				Email:    "alice@example.org",
				Password: "Str0ng&Secret!pass",
			},
		},
		{
			name: "short username",
			req: RegisterRequest{
				Username: "al",
				Email:    "alice@example.org",
				Password: "Str0ng&Secret!pass",
			},
			wantErr: true,
		},
		{
			name: "bad email",
			req: RegisterRequest{
				Username: "alice",
				Email:    "not-an-email",
				Password: "Str0ng&Secret!pass",
			},
			wantErr: true,
		},
		{
			name: "password too short",
			req: RegisterRequest{
				Username: "alice",
				Email:    "alice@example.org",
				Password: "Sh0rt!",
			},
			wantErr: true,
		},
		{
			name: "password without complexity",
			req: RegisterRequest{
				Username: "alice",
				Email:    "alice@example.org",
				Password: "alllowercaseletters",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRegister(tt.req)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}
