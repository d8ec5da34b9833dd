// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"fmt"

	"github.com/taibuivan/passgate/pkg/pagination"
)

// # Service Layer

// Service exposes read access to user accounts.
//
// Mutations of credentials, tokens and roles belong to the auth service, which
// owns the rules around them.
type Service struct {
	users Store
}

// NewService constructs a new [Service].
func NewService(users Store) *Service {
	return &Service{users: users}
}

/*
GetProfile retrieves the client-safe profile of a user.

Parameters:
  - ctx: context.Context
  - userID: string

Returns:
  - Profile: The public projection of the user
  - error: ErrNotFound or storage failures
*/
func (service *Service) GetProfile(ctx context.Context, userID string) (Profile, error) {
	user, err := service.users.FindByID(ctx, userID)
	if err != nil {
		return Profile{}, fmt.Errorf("account_service_get_profile_failed: %w", err)
	}
	return user.Profile(), nil
}

// ListUsers returns one page of profiles, oldest first, and the total user count.
func (service *Service) ListUsers(ctx context.Context, params pagination.Params) ([]Profile, int, error) {
	params = pagination.Clamp(params.Page, params.Limit)

	users, total, err := service.users.List(ctx, params.Limit, params.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("account_service_list_users_failed: %w", err)
	}

	profiles := make([]Profile, 0, len(users))
	for i := range users {
		profiles = append(profiles, users[i].Profile())
	}
	return profiles, total, nil
}
