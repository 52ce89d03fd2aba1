package aggregate

// External payloads are defined with every field optional: these services are
// best-effort and the document generator substitutes empty strings for
// anything absent. Zero values are the documented defaults.

// Address is the postal address nested in a profile.
type Address struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// Profile is one party's identity record from the profile service.
type Profile struct {
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Phone     string  `json:"phone"`
	Address   Address `json:"address"`
}

// Equipment is one catalog record from the equipment service.
type Equipment struct {
	Name                string `json:"stuffname"`
	Brand               string `json:"brand"`
	Location            string `json:"location"`
	PricePerDay         string `json:"price_per_day"`
	Condition           string `json:"state"`
	RentalLocation      string `json:"rental_location"`
	ShortDescription    string `json:"short_description"`
	DetailedDescription string `json:"detailed_description"`
}

// RentalRequest is the rental-request record this contract originates from.
type RentalRequest struct {
	ID         int64  `json:"id"`
	Status     string `json:"status"`
	Quantity   int    `json:"quantity"`
	TotalPrice string `json:"total_price"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
}

// Context is the transient union of fetched records. Each member is nil when
// its fetch failed or returned nothing; it is owned by one aggregation call
// and discarded after document generation.
type Context struct {
	Owner     *Profile
	Client    *Profile
	Equipment []*Equipment
	Request   *RentalRequest
}

// FirstEquipment returns the first non-nil equipment record, if any.
func (c *Context) FirstEquipment() *Equipment {
	if c == nil {
		return nil
	}
	for _, eq := range c.Equipment {
		if eq != nil {
			return eq
		}
	}
	return nil
}
