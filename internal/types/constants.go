package types

const ContextUserKey = "user"

// AccessTokenHeader carries a replacement access token when the guard
// silently rotates an expired one from the refresh cookie.
const AccessTokenHeader = "X-Access-Token"

const (
	RoleOwner  = "OWNER"
	RoleMember = "MEMBER"
)

const (
	NotificationUnseen = "UNSEEN"
	NotificationSeen   = "SEEN"
)
