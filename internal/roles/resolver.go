package roles

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/ovenfresh/bakeshop/internal/models"
)

// Resolver looks up a user's role in a single round trip. It deliberately
// queries with an unscoped handle: every other query in this codebase is
// filtered by the caller's own user id, but a freshly signed-in user needs
// their role before any of those scopes apply.
type Resolver struct {
	DB *gorm.DB
}

func NewResolver(db *gorm.DB) *Resolver {
	return &Resolver{DB: db}
}

// ResolveRole returns the role string for userID. Callers treat an error as
// "no role": log it and proceed with non-admin privileges.
func (r *Resolver) ResolveRole(ctx context.Context, userID uint) (string, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Select("role").First(&user, userID).Error; err != nil {
		return "", fmt.Errorf("roles: lookup user %d: %w", userID, err)
	}
	return user.Role, nil
}
