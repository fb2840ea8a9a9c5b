package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// UserSessionPrefix namespaces session IDs minted for anonymous inbound
// requests. Clients that carry their own token never see this prefix.
const UserSessionPrefix = "user"

// NewUserSessionID mints a stable ID for a user-initiated conversation.
func NewUserSessionID() string {
	return UserSessionPrefix + "-" + uuid.New().String()
}

// NewEphemeralSessionID mints an ID for one autonomous scheduler tick. The
// reserved prefix keeps it disjoint from the user ID space, the nanosecond
// timestamp makes it traceable in logs, and the random suffix keeps
// concurrent ticks distinct even within the same nanosecond.
func NewEphemeralSessionID(prefix string) string {
	suffix := strings.SplitN(uuid.New().String(), "-", 2)[0]
	return fmt.Sprintf("%s-%d-%s", prefix, time.Now().UnixNano(), suffix)
}

// IsEphemeralSessionID reports whether id was minted by
// NewEphemeralSessionID with the given prefix.
func IsEphemeralSessionID(id, prefix string) bool {
	return strings.HasPrefix(id, prefix+"-")
}
