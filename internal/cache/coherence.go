package cache

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/azisaba/azisaba-commander-api/internal/core/ports"
)

// Set bundles the four process-local caches so startup and coherence wiring
// stay in one place.
type Set struct {
	Users           *Users
	Permissions     *Permissions
	UserPermissions *UserPermissions
	TwoFA           *TwoFARegistered

	log zerolog.Logger
}

func NewSet(users *Users, permissions *Permissions, userPermissions *UserPermissions, twoFA *TwoFARegistered, log zerolog.Logger) *Set {
	return &Set{
		Users:           users,
		Permissions:     permissions,
		UserPermissions: userPermissions,
		TwoFA:           twoFA,
		log:             log,
	}
}

// Start launches the interval refresh of every cache.
func (s *Set) Start(ctx context.Context) {
	s.Users.Start(ctx)
	s.Permissions.Start(ctx)
	s.UserPermissions.Start(ctx)
	s.TwoFA.Start(ctx)
}

// Bind subscribes to the invalidation bus and maps each received topic to
// the matching cache's refresh. The subscription runs until ctx is
// cancelled.
func (s *Set) Bind(ctx context.Context, bus ports.InvalidationBus) {
	go bus.Subscribe(ctx, func(topic ports.Topic) {
		s.log.Debug().Str("topic", string(topic)).Msg("invalidation received")
		switch topic {
		case ports.TopicUsers:
			_ = s.Users.Refresh(ctx)
		case ports.TopicPermissions:
			_ = s.Permissions.Refresh(ctx)
		case ports.TopicUserPermissions:
			_ = s.UserPermissions.Refresh(ctx)
		case ports.TopicTwoFA:
			_ = s.TwoFA.Refresh(ctx)
		}
	})
}
