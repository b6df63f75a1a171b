package rbac

import "github.com/rounds-hq/rounds/internal/shared"

// System role names. Priorities increase strictly with seniority and are
// fixed at seed time.
const (
	RoleMember      = "Member"
	RoleFacilitator = "Facilitator"
	RolePTM         = "PTM"
	RoleManager     = "Manager"
	RoleDirector    = "Director"
	RoleAdmin       = "Admin"
)

// System role priorities.
const (
	PriorityMember      = 10
	PriorityFacilitator = 20
	PriorityPTM         = 30
	PriorityManager     = 40
	PriorityDirector    = 50
	PriorityAdmin       = 60
)

// RoleSeed describes a system role to be loaded at initialization.
type RoleSeed struct {
	Name        string
	Description string
	Priority    int
	Permissions []string
}

// Catalog returns the full permission catalog. It is seeded once and
// immutable afterwards; removing an entry is a breaking migration.
func Catalog() []Permission {
	perms := make([]Permission, 0, len(catalogDescriptions))
	for _, key := range allPermissionKeys() {
		perms = append(perms, Permission{Key: key, Description: catalogDescriptions[key]})
	}
	return perms
}

// SystemRoles returns the six seeded roles with their fixed priorities and
// permission bundles. Effective permissions are always the union across all
// held roles, so each bundle only needs to cover its own tier.
func SystemRoles() []RoleSeed {
	return []RoleSeed{
		{
			Name:        RoleMember,
			Description: "Regular circle participant",
			Priority:    PriorityMember,
			Permissions: []string{
				shared.PermCirclesView,
				shared.PermMembersView,
				shared.PermMeetingsView,
				shared.PermMeetingsAttend,
				shared.PermDocumentsView,
				shared.PermAnnouncementsView,
				shared.PermSurveysView,
				shared.PermSurveysRespond,
				shared.PermNotificationsView,
				shared.PermPaymentsView,
			},
		},
		{
			Name:        RoleFacilitator,
			Description: "Runs circle meetings and day-to-day circle life",
			Priority:    PriorityFacilitator,
			Permissions: []string{
				shared.PermCirclesView,
				shared.PermCirclesManage,
				shared.PermMembersView,
				shared.PermMembersInvite,
				shared.PermMeetingsView,
				shared.PermMeetingsAttend,
				shared.PermMeetingsCreate,
				shared.PermMeetingsEdit,
				shared.PermMeetingsCancel,
				shared.PermMeetingsRecordAttendance,
				shared.PermDocumentsView,
				shared.PermDocumentsUpload,
				shared.PermDocumentsShare,
				shared.PermAnnouncementsView,
				shared.PermAnnouncementsCreate,
				shared.PermSurveysCreate,
			},
		},
		{
			Name:        RolePTM,
			Description: "Part-time manager overseeing a group of circles",
			Priority:    PriorityPTM,
			Permissions: []string{
				shared.PermCirclesCreate,
				shared.PermCirclesEdit,
				shared.PermMembersEdit,
				shared.PermMembersApprove,
				shared.PermReportsView,
				shared.PermSurveysView,
				shared.PermSurveysExport,
				shared.PermNotificationsSend,
			},
		},
		{
			Name:        RoleManager,
			Description: "Regional manager with operational oversight",
			Priority:    PriorityManager,
			Permissions: []string{
				shared.PermCirclesArchive,
				shared.PermMembersRemove,
				shared.PermDocumentsDelete,
				shared.PermAnnouncementsEdit,
				shared.PermAnnouncementsDelete,
				shared.PermPaymentsCreate,
				shared.PermPaymentsExport,
				shared.PermReportsCreate,
				shared.PermReportsExport,
				shared.PermUsersView,
			},
		},
		{
			Name:        RoleDirector,
			Description: "Director with financial and staffing authority",
			Priority:    PriorityDirector,
			Permissions: []string{
				shared.PermPaymentsRefund,
				shared.PermPaymentsManageMethods,
				shared.PermBillingView,
				shared.PermBillingManage,
				shared.PermReportsShare,
				shared.PermUsersCreate,
				shared.PermUsersEdit,
				shared.PermAuditView,
				shared.PermSettingsView,
				shared.PermNotificationsManageTemplates,
			},
		},
		{
			Name:        RoleAdmin,
			Description: "Platform administrator",
			Priority:    PriorityAdmin,
			Permissions: allPermissionKeys(),
		},
	}
}

func allPermissionKeys() []string {
	var keys []string
	keys = append(keys, shared.CoreScopes()...)
	keys = append(keys, shared.CircleScopes()...)
	keys = append(keys, shared.MeetingScopes()...)
	keys = append(keys, shared.PaymentScopes()...)
	return keys
}

var catalogDescriptions = map[string]string{
	shared.PermUsersView:       "View user accounts",
	shared.PermUsersCreate:     "Create user accounts",
	shared.PermUsersEdit:       "Edit user accounts",
	shared.PermUsersDeactivate: "Deactivate user accounts",

	shared.PermRolesView:   "View role definitions",
	shared.PermRolesAssign: "Grant roles to principals",
	shared.PermRolesRevoke: "Revoke roles from principals",
	shared.PermRolesEdit:   "Edit custom role definitions",

	shared.PermPermissionsView: "View the permission catalog",

	shared.PermAuditView:   "View the audit trail",
	shared.PermAuditExport: "Export the audit trail",

	shared.PermSettingsView: "View platform settings",
	shared.PermSettingsEdit: "Edit platform settings",

	shared.PermCirclesView:    "View circles",
	shared.PermCirclesCreate:  "Create circles",
	shared.PermCirclesEdit:    "Edit circle details",
	shared.PermCirclesDelete:  "Delete circles",
	shared.PermCirclesManage:  "Manage circle membership and schedule",
	shared.PermCirclesArchive: "Archive circles",

	shared.PermMembersView:    "View circle members",
	shared.PermMembersInvite:  "Invite members to a circle",
	shared.PermMembersEdit:    "Edit member profiles",
	shared.PermMembersRemove:  "Remove members from a circle",
	shared.PermMembersApprove: "Approve membership applications",

	shared.PermDocumentsView:   "View circle documents",
	shared.PermDocumentsUpload: "Upload circle documents",
	shared.PermDocumentsDelete: "Delete circle documents",
	shared.PermDocumentsShare:  "Share circle documents",

	shared.PermAnnouncementsView:   "View announcements",
	shared.PermAnnouncementsCreate: "Create announcements",
	shared.PermAnnouncementsEdit:   "Edit announcements",
	shared.PermAnnouncementsDelete: "Delete announcements",

	shared.PermMeetingsView:             "View meetings",
	shared.PermMeetingsCreate:           "Schedule meetings",
	shared.PermMeetingsEdit:             "Edit meetings",
	shared.PermMeetingsCancel:           "Cancel meetings",
	shared.PermMeetingsAttend:           "Attend meetings",
	shared.PermMeetingsRecordAttendance: "Record meeting attendance",

	shared.PermSurveysView:    "View surveys",
	shared.PermSurveysCreate:  "Create surveys",
	shared.PermSurveysRespond: "Respond to surveys",
	shared.PermSurveysExport:  "Export survey results",

	shared.PermNotificationsView:            "View notifications",
	shared.PermNotificationsSend:            "Send notifications",
	shared.PermNotificationsManageTemplates: "Manage notification templates",

	shared.PermPaymentsView:          "View payments",
	shared.PermPaymentsCreate:        "Record payments",
	shared.PermPaymentsRefund:        "Refund payments",
	shared.PermPaymentsExport:        "Export payment data",
	shared.PermPaymentsManageMethods: "Manage payment methods",

	shared.PermBillingView:   "View billing status",
	shared.PermBillingManage: "Manage billing",

	shared.PermReportsView:   "View reports",
	shared.PermReportsCreate: "Create reports",
	shared.PermReportsExport: "Export reports",
	shared.PermReportsShare:  "Share reports",
}
