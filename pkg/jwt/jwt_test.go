package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken(42, "agent@example.com", string(RoleAgent))
	require.NoError(t, err)

	claims, err := ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "agent@example.com", claims.Email)
	assert.Equal(t, string(RoleAgent), claims.Role)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	_, err := ValidateToken("not.a.token")
	assert.Error(t, err)
}

func TestServiceValidatesItsOwnTokens(t *testing.T) {
	svc := NewService("", time.Hour)
	token, err := svc.GenerateToken(7, "owner@example.com", string(RoleOwner))
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
}

func TestRoleHierarchy(t *testing.T) {
	owner := &JWTClaims{Role: string(RoleOwner)}
	admin := &JWTClaims{Role: string(RoleAdmin)}
	agent := &JWTClaims{Role: string(RoleAgent)}

	assert.True(t, owner.HasRole(RoleAdmin))
	assert.True(t, owner.HasRole(RoleAgent))
	assert.True(t, admin.HasRole(RoleAdmin))
	assert.False(t, admin.HasRole(RoleOwner))
	assert.False(t, agent.HasRole(RoleAdmin))
	assert.True(t, agent.HasRole(RoleAgent))
}

func TestPermissions(t *testing.T) {
	agent := &JWTClaims{Role: string(RoleAgent)}
	admin := &JWTClaims{Role: string(RoleAdmin)}

	assert.True(t, agent.HasPermission(PermReadConversation))
	assert.True(t, agent.HasPermission(PermWriteConversation))
	assert.False(t, agent.HasPermission(PermManageIntegration))
	assert.True(t, admin.HasPermission(PermManageIntegration))
}

func TestValidRole(t *testing.T) {
	assert.True(t, ValidRole(RoleOwner))
	assert.True(t, ValidRole(RoleAgent))
	assert.False(t, ValidRole(Role("superuser")))
}
