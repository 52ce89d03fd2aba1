package handler

import (
	"encoding/json"
	"fmt"
)

// GenerateContractRequest mirrors the caller-facing JSON. equipmentId may be
// a single identifier or a list; both decode into EquipmentIDs.
type GenerateContractRequest struct {
	OwnerID      string       `json:"rentalId"`
	ClientID     string       `json:"clientId"`
	EquipmentIDs equipmentIDs `json:"equipmentId"`
	RequestID    string       `json:"requestId"`
	StartDate    string       `json:"startDate"`
	EndDate      string       `json:"endDate"`
	TotalPrice   string       `json:"total_price"`
	Status       string       `json:"status"`
	SignerEmail  string       `json:"signer_email"`
	SignerName   string       `json:"signer_name"`
	ReturnURL    string       `json:"return_url"`
}

// equipmentIDs accepts "abc", 42, ["abc"], or [42] on the wire.
type equipmentIDs []string

func (e *equipmentIDs) UnmarshalJSON(data []byte) error {
	var single any
	if err := json.Unmarshal(data, &single); err != nil {
		return err
	}
	switch v := single.(type) {
	case nil:
		*e = nil
	case string:
		*e = equipmentIDs{v}
	case float64:
		*e = equipmentIDs{trimFloat(v)}
	case []any:
		out := make(equipmentIDs, 0, len(v))
		for _, item := range v {
			switch iv := item.(type) {
			case string:
				out = append(out, iv)
			case float64:
				out = append(out, trimFloat(iv))
			default:
				return fmt.Errorf("equipmentId entries must be strings or numbers")
			}
		}
		*e = out
	default:
		return fmt.Errorf("equipmentId must be a string, number, or list")
	}
	return nil
}

func trimFloat(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%v", v)
}

// WebhookRequest is the provider's envelope-event notification body.
type WebhookRequest struct {
	EnvelopeID            string `json:"envelopeId"`
	Status                string `json:"status"`
	StatusChangedDateTime string `json:"statusChangedDateTime"`
}
