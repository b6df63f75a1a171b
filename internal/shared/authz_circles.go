package shared

// Circle and membership permissions.
const (
	PermCirclesView    = "circles:view"
	PermCirclesCreate  = "circles:create"
	PermCirclesEdit    = "circles:edit"
	PermCirclesDelete  = "circles:delete"
	PermCirclesManage  = "circles:manage"
	PermCirclesArchive = "circles:archive"

	PermMembersView    = "members:view"
	PermMembersInvite  = "members:invite"
	PermMembersEdit    = "members:edit"
	PermMembersRemove  = "members:remove"
	PermMembersApprove = "members:approve"

	PermDocumentsView   = "documents:view"
	PermDocumentsUpload = "documents:upload"
	PermDocumentsDelete = "documents:delete"
	PermDocumentsShare  = "documents:share"

	PermAnnouncementsView   = "announcements:view"
	PermAnnouncementsCreate = "announcements:create"
	PermAnnouncementsEdit   = "announcements:edit"
	PermAnnouncementsDelete = "announcements:delete"
)

// CircleScopes lists all permissions related to circles and their members.
func CircleScopes() []string {
	return []string{
		PermCirclesView,
		PermCirclesCreate,
		PermCirclesEdit,
		PermCirclesDelete,
		PermCirclesManage,
		PermCirclesArchive,
		PermMembersView,
		PermMembersInvite,
		PermMembersEdit,
		PermMembersRemove,
		PermMembersApprove,
		PermDocumentsView,
		PermDocumentsUpload,
		PermDocumentsDelete,
		PermDocumentsShare,
		PermAnnouncementsView,
		PermAnnouncementsCreate,
		PermAnnouncementsEdit,
		PermAnnouncementsDelete,
	}
}
