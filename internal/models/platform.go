package models

// Platform identifies the social network a profile was harvested from.
// The set is fixed; a profile's platform never changes after construction.
type Platform string

const (
	PlatformTelegram  Platform = "telegram"
	PlatformInstagram Platform = "instagram"
	PlatformFacebook  Platform = "facebook"
	PlatformTwitter   Platform = "twitter"
)

// AllPlatforms lists every supported platform in campaign order:
// Telegram is resolved first (direct lookups during ingestion), the
// fuzzy-search platforms follow.
var AllPlatforms = []Platform{
	PlatformTelegram,
	PlatformInstagram,
	PlatformFacebook,
	PlatformTwitter,
}

func (p Platform) Valid() bool {
	switch p {
	case PlatformTelegram, PlatformInstagram, PlatformFacebook, PlatformTwitter:
		return true
	}
	return false
}
