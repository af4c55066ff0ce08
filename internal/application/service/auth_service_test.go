package service

import (
	"context"
	"errors"
	"testing"

	"github.com/garyjia/travel-desk/internal/apperror"
	"github.com/garyjia/travel-desk/internal/application/port"
	"github.com/garyjia/travel-desk/internal/domain/entity"
	"github.com/garyjia/travel-desk/internal/domain/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthService_Login(t *testing.T) {
	s := newStore(t)
	user := s.addUser(t, "emp@example.com", entity.RoleIDEmployee, nil)
	inactive := s.addUser(t, "gone@example.com", entity.RoleIDEmployee, nil)
	require.NoError(t, s.users.SetActive(context.Background(), inactive.ID, false))

	tokens := &mockTokens{}
	svc := NewAuthService(s.users, tokens, plainHasher{}, &mockLogger{})

	t.Run("valid credentials", func(t *testing.T) {
		result, err := svc.Login(context.Background(), "emp@example.com", "secret")
		require.NoError(t, err)
		assert.Equal(t, "token-emp@example.com", result.Token)
		assert.Equal(t, int64(28800), result.ExpiresIn)
		assert.Equal(t, user.ID, result.User.ID)

		require.Len(t, tokens.issued, 1)
		assert.Equal(t, workflow.RoleEmployee, tokens.issued[0].Role)
		assert.Equal(t, user.ID, tokens.issued[0].UserID)
	})

	tests := []struct {
		name     string
		email    string
		password string
		wantCode apperror.Code
		wantMsg  string
	}{
		{"blank email", " ", "secret", apperror.CodeValidation, MsgCredentialsRequired},
		{"blank password", "emp@example.com", "", apperror.CodeValidation, MsgCredentialsRequired},
		{"unknown user", "nobody@example.com", "secret", apperror.CodeUnauthorized, MsgInvalidCredentials},
		{"wrong password", "emp@example.com", "guess", apperror.CodeUnauthorized, MsgInvalidCredentials},
		{"inactive user", "gone@example.com", "secret", apperror.CodeUnauthorized, MsgInvalidCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Login(context.Background(), tt.email, tt.password)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, apperror.GetCode(err))
			assert.Equal(t, tt.wantMsg, apperror.Message(err))
		})
	}
}

func TestAuthService_Authenticate(t *testing.T) {
	s := newStore(t)
	user := s.addUser(t, "emp@example.com", entity.RoleIDEmployee, nil)
	inactive := s.addUser(t, "gone@example.com", entity.RoleIDEmployee, nil)
	require.NoError(t, s.users.SetActive(context.Background(), inactive.ID, false))

	claimsFor := map[string]*port.SessionClaims{
		"good":    {UserID: user.ID, Email: user.Email, Role: workflow.RoleAdmin},
		"ghost":   {UserID: 404},
		"retired": {UserID: inactive.ID},
	}
	tokens := &mockTokens{verify: func(token string) (*port.SessionClaims, error) {
		if c, ok := claimsFor[token]; ok {
			return c, nil
		}
		return nil, errors.New("signature invalid")
	}}
	svc := NewAuthService(s.users, tokens, plainHasher{}, &mockLogger{})

	got, err := svc.Authenticate(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	// the stored role wins over the one in the token
	assert.Equal(t, workflow.RoleEmployee, got.RoleName)

	for _, token := range []string{"", "forged", "ghost", "retired"} {
		_, err := svc.Authenticate(context.Background(), token)
		assert.Equal(t, apperror.CodeUnauthorized, apperror.GetCode(err), "token %q", token)
		assert.Equal(t, MsgInvalidToken, apperror.Message(err), "token %q", token)
	}
}
