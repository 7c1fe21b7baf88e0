package models

// CheckpointRecord tracks which platforms have been checked for one
// person during a resolution campaign. Each flag transitions false→true
// exactly once and never reverts; a person is fully resolved when all
// four flags are set.
type CheckpointRecord struct {
	PersonID         int64 `json:"person_id"`
	TelegramChecked  bool  `json:"telegram_checked"`
	InstagramChecked bool  `json:"instagram_checked"`
	FacebookChecked  bool  `json:"facebook_checked"`
	TwitterChecked   bool  `json:"twitter_checked"`
}

// Checked reports the flag for one platform.
func (c CheckpointRecord) Checked(platform Platform) bool {
	switch platform {
	case PlatformTelegram:
		return c.TelegramChecked
	case PlatformInstagram:
		return c.InstagramChecked
	case PlatformFacebook:
		return c.FacebookChecked
	case PlatformTwitter:
		return c.TwitterChecked
	}
	return false
}

// Complete reports whether every platform has been checked.
func (c CheckpointRecord) Complete() bool {
	return c.TelegramChecked && c.InstagramChecked && c.FacebookChecked && c.TwitterChecked
}
