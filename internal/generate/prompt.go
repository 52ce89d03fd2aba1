package generate

import (
	"fmt"
	"strings"

	"rentalsign/internal/aggregate"
)

// Terms are the caller-supplied contract terms. Request-level dates, total,
// and status take precedence over these when the rental request carries its
// own values.
type Terms struct {
	OwnerName    string
	ClientName   string
	EquipmentRef string
	StartDate    string
	EndDate      string
	TotalValue   string
	Status       string
}

// DateOnly truncates an ISO timestamp to its date portion. Values without a
// time component pass through unchanged.
func DateOnly(v string) string {
	if idx := strings.IndexByte(v, 'T'); idx >= 0 {
		return v[:idx]
	}
	return v
}

// EffectiveDates resolves the start/end dates, preferring request-level
// values over the supplied terms.
func EffectiveDates(terms Terms, req *aggregate.RentalRequest) (string, string) {
	start, end := terms.StartDate, terms.EndDate
	if req != nil && req.StartDate != "" {
		start = req.StartDate
	}
	if req != nil && req.EndDate != "" {
		end = req.EndDate
	}
	return DateOnly(start), DateOnly(end)
}

// EffectiveTotal resolves the contract total, preferring the request-level
// total price over the supplied terms.
func EffectiveTotal(terms Terms, req *aggregate.RentalRequest) string {
	if req != nil && req.TotalPrice != "" {
		return req.TotalPrice
	}
	return terms.TotalValue
}

// BuildPrompt renders the deterministic generation prompt. It is a pure
// function of its inputs: identical terms and aggregated context always
// produce the identical prompt. Absent records contribute empty strings.
func BuildPrompt(terms Terms, actx *aggregate.Context) string {
	if actx == nil {
		actx = &aggregate.Context{}
	}
	owner := profileOrZero(actx.Owner)
	client := profileOrZero(actx.Client)
	equipment := equipmentOrZero(actx.FirstEquipment())

	requestID, requestStatus, quantityLabel := "N/A", "N/A", "N/A"
	status := terms.Status
	if status == "" {
		status = "active"
	}
	quantity := 1
	if actx.Request != nil {
		requestID = fmt.Sprintf("%d", actx.Request.ID)
		if actx.Request.Status != "" {
			requestStatus = actx.Request.Status
			status = actx.Request.Status
		}
		if actx.Request.Quantity > 0 {
			quantity = actx.Request.Quantity
			quantityLabel = fmt.Sprintf("%d", actx.Request.Quantity)
		}
	}

	startDate, endDate := EffectiveDates(terms, actx.Request)
	total := EffectiveTotal(terms, actx.Request)

	var b strings.Builder
	b.WriteString("Generate a professional HTML equipment rental contract based on the following data:\n\n")

	b.WriteString("Rental Request Details:\n")
	fmt.Fprintf(&b, "- Request ID: %s\n", requestID)
	fmt.Fprintf(&b, "- Status: %s\n", requestStatus)
	fmt.Fprintf(&b, "- Quantity: %s\n\n", quantityLabel)

	b.WriteString("Contract Terms:\n")
	fmt.Fprintf(&b, "- Owner Name: %s\n", terms.OwnerName)
	fmt.Fprintf(&b, "- Client Name: %s\n", terms.ClientName)
	fmt.Fprintf(&b, "- Start Date: %s\n", startDate)
	fmt.Fprintf(&b, "- End Date: %s\n", endDate)
	fmt.Fprintf(&b, "- Total Value: %s TND\n", total)
	fmt.Fprintf(&b, "- Equipment ID: %s\n\n", terms.EquipmentRef)

	b.WriteString("Owner Profile:\n")
	writeProfile(&b, owner)
	b.WriteString("\nClient Profile:\n")
	writeProfile(&b, client)

	b.WriteString("\nEquipment Information:\n")
	fmt.Fprintf(&b, "- Name: %s\n", equipment.Name)
	fmt.Fprintf(&b, "- Brand: %s\n", equipment.Brand)
	fmt.Fprintf(&b, "- Location: %s\n", equipment.Location)
	fmt.Fprintf(&b, "- Price per day: %s TND\n", equipment.PricePerDay)
	fmt.Fprintf(&b, "- Condition: %s\n", equipment.Condition)
	fmt.Fprintf(&b, "- Rental Location: %s\n", equipment.RentalLocation)
	fmt.Fprintf(&b, "- Description: %s\n\n", equipment.ShortDescription)

	b.WriteString("Detailed Description:\n")
	fmt.Fprintf(&b, "%s\n\n", equipment.DetailedDescription)

	b.WriteString("Please return a well-structured HTML contract that includes:\n")
	b.WriteString("1. Parties' names and contact information\n")
	fmt.Fprintf(&b, "2. Equipment details including quantity (%d)\n", quantity)
	b.WriteString("3. Rental terms including dates and total value\n")
	fmt.Fprintf(&b, "4. Special conditions based on request status (%s)\n", status)
	b.WriteString("5. Signature sections for both parties\n")
	b.WriteString("6. Cancellation policy if status is 'canceled'\n")
	return b.String()
}

func writeProfile(b *strings.Builder, p aggregate.Profile) {
	fullName := strings.TrimSpace(p.FirstName + " " + p.LastName)
	fmt.Fprintf(b, "- Full Name: %s\n", fullName)
	fmt.Fprintf(b, "- Phone: %s\n", p.Phone)
	fmt.Fprintf(b, "- Address: %s, %s, %s, %s, %s\n",
		p.Address.Street, p.Address.City, p.Address.State,
		p.Address.PostalCode, p.Address.Country)
}

func profileOrZero(p *aggregate.Profile) aggregate.Profile {
	if p == nil {
		return aggregate.Profile{}
	}
	return *p
}

func equipmentOrZero(e *aggregate.Equipment) aggregate.Equipment {
	if e == nil {
		return aggregate.Equipment{}
	}
	return *e
}
