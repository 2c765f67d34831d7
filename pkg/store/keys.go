package store

import "strings"

// Key layout shared by every component
const (
	WhitelistKey     = "whitelist"
	BlacklistPattern = "blacklist:*"

	warnPrefix       = "warn:"
	instancePrefix   = "instance:"
	blacklistPrefix  = "blacklist:"
	syncPrefix       = "sync:"
	submissionPrefix = "submission:"
)

func WarnKey(userID string) string      { return warnPrefix + userID }
func InstanceKey(userID string) string  { return instancePrefix + userID }
func BlacklistKey(userID string) string { return blacklistPrefix + userID }
func SyncKey(guildID string) string     { return syncPrefix + guildID }
func SubmissionKey(id string) string    { return submissionPrefix + id }

// BlacklistUserID extracts the user ID from a blacklist key
func BlacklistUserID(key string) (string, bool) {
	if !strings.HasPrefix(key, blacklistPrefix) {
		return "", false
	}
	id := strings.TrimPrefix(key, blacklistPrefix)
	return id, id != ""
}
