package model

// AccessLevel is the permission tier stored on a user record.
type AccessLevel int

const (
	AccessLevelBanned       AccessLevel = 0
	AccessLevelDefault      AccessLevel = 50
	AccessLevelModerator    AccessLevel = 100
	AccessLevelAdmin        AccessLevel = 150
	AccessLevelOwner        AccessLevel = 200
	AccessLevelBotModerator AccessLevel = 250
	AccessLevelBotAdmin     AccessLevel = 300
	AccessLevelBotOwner     AccessLevel = 350
	AccessLevelUnknown      AccessLevel = 65536
)

func (l AccessLevel) String() string {
	switch l {
	case AccessLevelBanned:
		return "banned"
	case AccessLevelDefault:
		return "default"
	case AccessLevelModerator:
		return "moderator"
	case AccessLevelAdmin:
		return "admin"
	case AccessLevelOwner:
		return "owner"
	case AccessLevelBotModerator:
		return "bot_moderator"
	case AccessLevelBotAdmin:
		return "bot_admin"
	case AccessLevelBotOwner:
		return "bot_owner"
	default:
		return "unknown"
	}
}
