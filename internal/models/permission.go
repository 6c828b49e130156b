package models

// Capabilities an API key can be granted.
const (
	PermissionContentGenerate = "content:generate"
	PermissionAudioTranscribe = "audio:transcribe"
	PermissionImageGenerate   = "image:generate"
	PermissionAnalyticsRead   = "analytics:read"
	PermissionUserRead        = "user:read"
	PermissionUserUpdate      = "user:update"

	// PermissionAll grants every capability.
	PermissionAll = "*"
)

var knownPermissions = map[string]struct{}{
	PermissionContentGenerate: {},
	PermissionAudioTranscribe: {},
	PermissionImageGenerate:   {},
	PermissionAnalyticsRead:   {},
	PermissionUserRead:        {},
	PermissionUserUpdate:      {},
	PermissionAll:             {},
}

// Permissions lists the grantable values in display order.
func Permissions() []string {
	return []string{
		PermissionContentGenerate,
		PermissionAudioTranscribe,
		PermissionImageGenerate,
		PermissionAnalyticsRead,
		PermissionUserRead,
		PermissionUserUpdate,
		PermissionAll,
	}
}

func IsValidPermission(p string) bool {
	_, ok := knownPermissions[p]
	return ok
}
