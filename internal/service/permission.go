package service

import "github.com/klya-ai/klya-api/internal/models"

// HasPermission reports whether the key grants capability, directly or via "*".
// Unknown capabilities are simply not granted.
func HasPermission(apiKey *models.APIKey, capability string) bool {
	if apiKey == nil {
		return false
	}
	for _, p := range apiKey.Permissions {
		if p == capability || p == models.PermissionAll {
			return true
		}
	}
	return false
}
