package digest

// Default overview settings
const (
	DefaultSourceCap   = 5
	DefaultSourceLabel = "Source"
	DefaultTitle       = "Untitled"
)

// Log field name constants
const (
	LogFieldChannelID = "channel_id"
	LogFieldDigestID  = "digest_id"
	LogFieldCount     = "count"
	LogFieldDuplicate = "duplicates"
)

// Metric operation constants
const (
	OperationCreate = "create"
)

// Time format constants
const (
	TimeFormatWindow = "2006-01-02 15:04 MST"
)

// Digest formatting constants
const (
	DigestSeparatorLine   = "━━━━━━━━━━━━━━━━━━━━━━\n"
	DigestSourceSeparator = ", "
	EmojiDigest           = "📰"
	EmojiSources          = "📊"
	EmojiFailed           = "⚠️"
	EmojiNote             = "📝"
	EmojiBullet           = "•"
	DigestSourceVia       = "   ↳ %s"
)
