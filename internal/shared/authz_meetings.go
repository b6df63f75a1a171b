package shared

// Meeting scheduling and communication permissions.
const (
	PermMeetingsView             = "meetings:view"
	PermMeetingsCreate           = "meetings:create"
	PermMeetingsEdit             = "meetings:edit"
	PermMeetingsCancel           = "meetings:cancel"
	PermMeetingsAttend           = "meetings:attend"
	PermMeetingsRecordAttendance = "meetings:record_attendance"

	PermSurveysView    = "surveys:view"
	PermSurveysCreate  = "surveys:create"
	PermSurveysRespond = "surveys:respond"
	PermSurveysExport  = "surveys:export"

	PermNotificationsView            = "notifications:view"
	PermNotificationsSend            = "notifications:send"
	PermNotificationsManageTemplates = "notifications:manage_templates"
)

// MeetingScopes lists all permissions related to meetings and communication.
func MeetingScopes() []string {
	return []string{
		PermMeetingsView,
		PermMeetingsCreate,
		PermMeetingsEdit,
		PermMeetingsCancel,
		PermMeetingsAttend,
		PermMeetingsRecordAttendance,
		PermSurveysView,
		PermSurveysCreate,
		PermSurveysRespond,
		PermSurveysExport,
		PermNotificationsView,
		PermNotificationsSend,
		PermNotificationsManageTemplates,
	}
}
