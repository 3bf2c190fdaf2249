package ports

import "context"

// Topic is the closed set of invalidation messages. A message carries no
// payload beyond the topic; its only effect is a refresh of the matching
// cache on every subscribed process.
type Topic string

const (
	TopicUsers           Topic = "USERS"
	TopicPermissions     Topic = "PERMISSIONS"
	TopicUserPermissions Topic = "USER_PERMISSIONS"
	TopicTwoFA           Topic = "2FA"
)

// ParseTopic maps a wire token back to a Topic. Unknown tokens are
// discarded by returning false; the protocol must never refresh on a
// message it does not understand.
func ParseTopic(s string) (Topic, bool) {
	switch t := Topic(s); t {
	case TopicUsers, TopicPermissions, TopicUserPermissions, TopicTwoFA:
		return t, true
	}
	return "", false
}

// InvalidationBus is the cross-process cache-coherence channel. Publish is
// fire-and-forget: a publish failure must never fail the mutation that
// triggered it. Subscribe delivers topics until ctx is cancelled; delivery
// is best-effort with no ordering or acknowledgment.
type InvalidationBus interface {
	Publish(ctx context.Context, topic Topic) error
	Subscribe(ctx context.Context, handle func(Topic))
}
