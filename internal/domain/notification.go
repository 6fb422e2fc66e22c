package domain

type MessageType string

const (
	MessageInquiry MessageType = "INQUIRY"
	MessageBooking MessageType = "BOOKING"
)

// NotificationRoute says where a message for a tenant goes and who it is from.
type NotificationRoute struct {
	TenantID   string `json:"tenantId"`
	Recipient  string `json:"recipient"`
	Sender     string `json:"sender"`
	SenderName string `json:"senderName"`
}

// NotificationPayload mirrors the wire shape {type, siteName, data}.
type NotificationPayload struct {
	Type     MessageType    `json:"type"`
	SiteName string         `json:"siteName"`
	Data     map[string]any `json:"data"`
}

// Inquiry is a pre-sales question from a tour page or the contact form.
type Inquiry struct {
	TourTitle     string `json:"tourTitle"`
	FullName      string `json:"fullName"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	Travelers     string `json:"travelers"`
	ArrivalDate   string `json:"arrivalDate"`
	DepartureDate string `json:"departureDate"`
	Message       string `json:"message"`
}

type Email struct {
	FromName  string
	FromEmail string
	To        string
	ReplyTo   string
	Subject   string
	Text      string
}
