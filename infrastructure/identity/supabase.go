// Package identity adapts the Supabase auth service to the identity port.
// Roles live in app metadata under the "role" key; accounts without one are
// treated as plain users.
package identity

import (
	"context"
	"fmt"

	"songarchive-backend/domain"

	"github.com/google/uuid"
	"github.com/supabase-community/gotrue-go/types"
	"github.com/supabase-community/supabase-go"
	"go.uber.org/zap"
)

const roleMetadataKey = "role"

// Provider implements user verification and administration against Supabase.
// The client must be constructed with the service role key; the admin
// endpoints reject anon keys.
type Provider struct {
	client *supabase.Client
	logger *zap.Logger
}

// NewProvider creates a Supabase-backed identity provider.
func NewProvider(projectURL, serviceRoleKey string, logger *zap.Logger) (*Provider, error) {
	client, err := supabase.NewClient(projectURL, serviceRoleKey, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create supabase client: %w", err)
	}
	return &Provider{client: client, logger: logger}, nil
}

// VerifyToken resolves an access token to the account it belongs to.
// The underlying client carries the context through its HTTP request.
func (p *Provider) VerifyToken(ctx context.Context, token string) (*domain.User, error) {
	resp, err := p.client.Auth.WithToken(token).GetUser()
	if err != nil {
		return nil, fmt.Errorf("token verification failed: %w", err)
	}
	user := toDomainUser(resp.User)
	return &user, nil
}

// ListUsers returns every account known to the identity service.
func (p *Provider) ListUsers(ctx context.Context) ([]domain.User, error) {
	resp, err := p.client.Auth.AdminListUsers()
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	users := make([]domain.User, 0, len(resp.Users))
	for _, u := range resp.Users {
		users = append(users, toDomainUser(u))
	}
	return users, nil
}

// UpdateUserRole writes the role into the account's app metadata and returns
// the updated user.
func (p *Provider) UpdateUserRole(ctx context.Context, userID string, role domain.Role) (*domain.User, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("unknown role %q", role)
	}
	id, err := uuid.Parse(userID)
	if err != nil {
		return nil, fmt.Errorf("invalid user id %q: %w", userID, err)
	}

	resp, err := p.client.Auth.AdminUpdateUser(types.AdminUpdateUserRequest{
		UserID: id,
		AppMetadata: map[string]interface{}{
			roleMetadataKey: string(role),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update role for user %s: %w", userID, err)
	}

	p.logger.Info("User role updated",
		zap.String("userId", userID),
		zap.String("role", string(role)),
	)

	user := toDomainUser(resp.User)
	return &user, nil
}

// DeleteUser removes the account from the identity service.
func (p *Provider) DeleteUser(ctx context.Context, userID string) error {
	id, err := uuid.Parse(userID)
	if err != nil {
		return fmt.Errorf("invalid user id %q: %w", userID, err)
	}
	if err := p.client.Auth.AdminDeleteUser(types.AdminDeleteUserRequest{UserID: id}); err != nil {
		return fmt.Errorf("failed to delete user %s: %w", userID, err)
	}
	p.logger.Info("User deleted", zap.String("userId", userID))
	return nil
}

func toDomainUser(u types.User) domain.User {
	user := domain.User{
		ID:        u.ID.String(),
		Email:     u.Email,
		Role:      roleFromMetadata(u.AppMetadata),
		CreatedAt: u.CreatedAt,
	}
	if name, ok := u.UserMetadata["name"].(string); ok {
		user.DisplayName = name
	}
	if u.LastSignInAt != nil {
		user.LastSignIn = *u.LastSignInAt
	}
	return user
}

func roleFromMetadata(meta map[string]interface{}) domain.Role {
	raw, ok := meta[roleMetadataKey].(string)
	if !ok {
		return domain.RoleUser
	}
	role := domain.Role(raw)
	if !role.Valid() {
		return domain.RoleUser
	}
	return role
}
