package domain

// Notification topics published on the process-wide hub.
const (
	TopicDataRestored  = "data-restored"
	TopicBackupCreated = "backup-created"
	TopicBackupDeleted = "backup-deleted"
)
