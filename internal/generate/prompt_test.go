package generate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentalsign/internal/aggregate"
)

func TestDateOnly(t *testing.T) {
	assert.Equal(t, "2026-03-01", DateOnly("2026-03-01T10:30:00Z"))
	assert.Equal(t, "2026-03-01", DateOnly("2026-03-01"))
	assert.Equal(t, "", DateOnly(""))
}

func TestEffectiveDates(t *testing.T) {
	terms := Terms{StartDate: "2026-01-01", EndDate: "2026-01-10"}

	t.Run("request dates win", func(t *testing.T) {
		req := &aggregate.RentalRequest{StartDate: "2026-02-01T00:00:00Z", EndDate: "2026-02-05"}
		start, end := EffectiveDates(terms, req)
		assert.Equal(t, "2026-02-01", start)
		assert.Equal(t, "2026-02-05", end)
	})

	t.Run("terms fill what the request lacks", func(t *testing.T) {
		req := &aggregate.RentalRequest{StartDate: "2026-02-01"}
		start, end := EffectiveDates(terms, req)
		assert.Equal(t, "2026-02-01", start)
		assert.Equal(t, "2026-01-10", end)
	})

	t.Run("nil request falls back to terms", func(t *testing.T) {
		start, end := EffectiveDates(terms, nil)
		assert.Equal(t, "2026-01-01", start)
		assert.Equal(t, "2026-01-10", end)
	})
}

func TestEffectiveTotal(t *testing.T) {
	terms := Terms{TotalValue: "100"}
	assert.Equal(t, "150", EffectiveTotal(terms, &aggregate.RentalRequest{TotalPrice: "150"}))
	assert.Equal(t, "100", EffectiveTotal(terms, &aggregate.RentalRequest{}))
	assert.Equal(t, "100", EffectiveTotal(terms, nil))
}

func TestBuildPrompt(t *testing.T) {
	terms := Terms{
		OwnerName:    "Amal Rentals",
		ClientName:   "Youssef Ben Ali",
		EquipmentRef: "10",
		StartDate:    "2026-03-01",
		EndDate:      "2026-03-08",
		TotalValue:   "150",
	}
	actx := &aggregate.Context{
		Owner:  &aggregate.Profile{FirstName: "Amal", LastName: "Rentals", Phone: "+216 20 000 000"},
		Client: &aggregate.Profile{FirstName: "Youssef", LastName: "Ben Ali"},
		Equipment: []*aggregate.Equipment{
			{Name: "Drill", Brand: "Bosch", PricePerDay: "25", Condition: "good"},
		},
		Request: &aggregate.RentalRequest{ID: 7, Status: "accepted", Quantity: 2, TotalPrice: "150"},
	}

	t.Run("includes every section with resolved values", func(t *testing.T) {
		prompt := BuildPrompt(terms, actx)
		require.NotEmpty(t, prompt)

		assert.Contains(t, prompt, "- Request ID: 7\n")
		assert.Contains(t, prompt, "- Status: accepted\n")
		assert.Contains(t, prompt, "- Quantity: 2\n")
		assert.Contains(t, prompt, "- Owner Name: Amal Rentals\n")
		assert.Contains(t, prompt, "- Client Name: Youssef Ben Ali\n")
		assert.Contains(t, prompt, "- Total Value: 150 TND\n")
		assert.Contains(t, prompt, "- Full Name: Amal Rentals\n")
		assert.Contains(t, prompt, "- Name: Drill\n")
		assert.Contains(t, prompt, "- Price per day: 25 TND\n")
		assert.Contains(t, prompt, "Equipment details including quantity (2)")
		assert.Contains(t, prompt, "Special conditions based on request status (accepted)")
		assert.Contains(t, prompt, "Cancellation policy if status is 'canceled'")
	})

	t.Run("deterministic for identical inputs", func(t *testing.T) {
		assert.Equal(t, BuildPrompt(terms, actx), BuildPrompt(terms, actx))
	})

	t.Run("absent records substitute empty strings and defaults", func(t *testing.T) {
		prompt := BuildPrompt(terms, nil)

		assert.Contains(t, prompt, "- Request ID: N/A\n")
		assert.Contains(t, prompt, "- Status: N/A\n")
		assert.Contains(t, prompt, "- Quantity: N/A\n")
		assert.Contains(t, prompt, "- Full Name: \n")
		assert.Contains(t, prompt, "Equipment details including quantity (1)")
		assert.Contains(t, prompt, "Special conditions based on request status (active)")
		assert.NotContains(t, prompt, "<nil>")
	})

	t.Run("request values override term dates and total", func(t *testing.T) {
		withReq := &aggregate.Context{
			Request: &aggregate.RentalRequest{ID: 9, StartDate: "2026-05-01T09:00:00Z", EndDate: "2026-05-03", TotalPrice: "999"},
		}
		prompt := BuildPrompt(terms, withReq)
		assert.Contains(t, prompt, "- Start Date: 2026-05-01\n")
		assert.Contains(t, prompt, "- End Date: 2026-05-03\n")
		assert.Contains(t, prompt, "- Total Value: 999 TND\n")
		assert.NotContains(t, prompt, "2026-03-01")
	})

	t.Run("terms status is the fallback when the request has none", func(t *testing.T) {
		canceled := terms
		canceled.Status = "canceled"

		prompt := BuildPrompt(canceled, nil)
		assert.Contains(t, prompt, "Special conditions based on request status (canceled)")

		// A status on the rental request still wins.
		prompt = BuildPrompt(canceled, actx)
		assert.Contains(t, prompt, "Special conditions based on request status (accepted)")
	})

	t.Run("zero quantity keeps the defaults", func(t *testing.T) {
		prompt := BuildPrompt(terms, &aggregate.Context{Request: &aggregate.RentalRequest{ID: 3}})
		assert.Contains(t, prompt, "- Quantity: N/A\n")
		assert.Contains(t, prompt, "quantity (1)")
	})

	t.Run("numbered output instructions close the prompt", func(t *testing.T) {
		prompt := BuildPrompt(terms, actx)
		idx := strings.Index(prompt, "Please return a well-structured HTML contract")
		require.Positive(t, idx)
		tail := prompt[idx:]
		for _, n := range []string{"1.", "2.", "3.", "4.", "5.", "6."} {
			assert.Contains(t, tail, n)
		}
	})
}
