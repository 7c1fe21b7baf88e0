package platform

import (
	"context"

	"github.com/your-org/unfold/internal/models"
)

// RawProfile is the untyped identity record returned by a platform search
// before it is wrapped into a models.Profile.
type RawProfile struct {
	ExternalID string
	Username   string
	FirstName  string
	LastName   string
	FullName   string
	Biography  string
	Private    bool
	Phone      string // raw, unparsed
	Locations  []models.Location
}

// Client is the per-platform lookup and download contract consumed by the
// campaign orchestrator. Implementations own their network behavior, rate
// discipline and session state; the engine only sequences calls.
//
// "Not found" is a normal negative result: SearchByUsername returns
// (nil, nil) and SearchByKeywords returns an empty slice. Errors are
// reserved for the taxonomy in this package plus genuine I/O failures.
type Client interface {
	Platform() models.Platform

	// SearchByUsername performs an exact username lookup.
	SearchByUsername(ctx context.Context, username string) (*RawProfile, error)

	// SearchByKeywords performs a fuzzy keyword search, returning at most
	// maxResults candidates.
	SearchByKeywords(ctx context.Context, keywords string, maxResults int) ([]RawProfile, error)

	// DownloadProfilePhoto saves the profile picture to path. False means
	// the profile has none.
	DownloadProfilePhoto(ctx context.Context, prof *models.Profile, path string) (bool, error)

	// DownloadPostImages saves up to maxCount recent post images into dir.
	// False means the profile has no posts to download.
	DownloadPostImages(ctx context.Context, prof *models.Profile, dir string, maxCount int) (bool, error)

	Authenticated() bool
	Blocked() bool
	Errors() []ClientError

	// Close terminates the client's session, releasing sockets or browser
	// handles. Safe to call more than once.
	Close() error
}

// TelegramClient extends Client with the direct-lookup operations used
// during initial group ingestion. Telegram has no fuzzy search pass.
type TelegramClient interface {
	Client

	// LookupByID fetches a profile by its numeric Telegram ID; (nil, nil)
	// when no such user exists.
	LookupByID(ctx context.Context, id int64) (*RawProfile, error)

	// ListMembers enumerates the members of a group the session belongs to.
	ListMembers(ctx context.Context, group string) ([]RawProfile, error)

	// MemberActivity counts recent messages per member external ID,
	// scanning at most messageLimit messages. Used to rank members by
	// activity before ingestion.
	MemberActivity(ctx context.Context, group string, messageLimit int) (map[string]int, error)
}
