package notify

import "storefront/internal/domain"

var bodyTemplates = map[domain.MessageType]string{
	domain.MessageBooking: `
PAYMENT CONFIRMED
-----------------
Tour: {{ data.tours }}
Customer: {{ data.customerName }}
Email: {{ data.customerEmail }}
Phone: {{ data.customerPhone }}
Amount: ${{ data.amount }}
Confirmation: {{ data.confirmationId }}
{% if data.manualQuote != "" %}Needs manual quote: {{ data.manualQuote }}
{% endif %}Site: {{ siteName }}
`,
	domain.MessageInquiry: `
NEW INQUIRY DETAILS
-------------------
Tour: {{ data.tourTitle | default: "General Inquiry" }}
Name: {{ data.fullName }}
Email: {{ data.email }}
Phone: {{ data.phone }}
Travelers: {{ data.travelers }}
Dates: {{ data.arrivalDate }} to {{ data.departureDate }}

Message:
{{ data.message }}

Sent from: {{ siteName }}
`,
}
