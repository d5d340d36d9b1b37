package notify

import (
	"time"

	"dealdesk/deal"
)

// DealDescriptionPayload is the flat body posted to the description webhook.
type DealDescriptionPayload struct {
	Event                  string    `json:"event"`
	SubmissionID           int64     `json:"submission_id"`
	Status                 string    `json:"status"`
	PropertyAddress        string    `json:"property_address"`
	PropertyType           *string   `json:"property_type"`
	AskingPrice            *int64    `json:"asking_price"`
	SubmitterName          string    `json:"submitter_name"`
	SubmitterEmail         string    `json:"submitter_email"`
	SubmitterPhone         *string   `json:"submitter_phone"`
	Notes                  *string   `json:"notes"`
	Latitude               *float64  `json:"latitude"`
	Longitude              *float64  `json:"longitude"`
	PurchaseAgreementKey   *string   `json:"purchase_agreement_key"`
	AssignmentAgreementKey *string   `json:"assignment_agreement_key"`
	CreatedAt              time.Time `json:"created_at"`
}

// JvAgreementPayload is the flat body posted to the JV agreement webhook.
type JvAgreementPayload struct {
	Event           string  `json:"event"`
	SubmissionID    int64   `json:"submission_id"`
	RecipientName   string  `json:"recipient_name"`
	RecipientEmail  string  `json:"recipient_email"`
	LLCName         string  `json:"llc_name"`
	PropertyAddress string  `json:"property_address"`
	AskingPrice     *int64  `json:"asking_price"`
	JvAgreementKey  *string `json:"jv_agreement_key"`
}

const (
	EventDealDescription = "deal_description"
	EventJvAgreement     = "jv_agreement"
)

func NewDealDescriptionPayload(d deal.Deal) DealDescriptionPayload {
	return DealDescriptionPayload{
		Event:                  EventDealDescription,
		SubmissionID:           d.ID,
		Status:                 d.Status,
		PropertyAddress:        d.PropertyAddress,
		PropertyType:           d.PropertyType,
		AskingPrice:            d.AskingPrice,
		SubmitterName:          d.SubmitterName,
		SubmitterEmail:         d.SubmitterEmail,
		SubmitterPhone:         d.SubmitterPhone,
		Notes:                  d.Notes,
		Latitude:               d.Latitude,
		Longitude:              d.Longitude,
		PurchaseAgreementKey:   d.PurchaseAgreementKey,
		AssignmentAgreementKey: d.AssignmentAgreementKey,
		CreatedAt:              d.CreatedAt.UTC(),
	}
}

func NewJvAgreementPayload(d deal.Deal, r deal.JvRecipient) JvAgreementPayload {
	return JvAgreementPayload{
		Event:           EventJvAgreement,
		SubmissionID:    d.ID,
		RecipientName:   r.Name,
		RecipientEmail:  r.Email,
		LLCName:         r.LLCName,
		PropertyAddress: d.PropertyAddress,
		AskingPrice:     d.AskingPrice,
		JvAgreementKey:  d.JvAgreementKey,
	}
}
