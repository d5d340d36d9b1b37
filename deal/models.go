package deal

import "time"

// StatusNew is assigned to deals created through the public form. Staff may
// move a deal to any other non-blank status.
const StatusNew = "new"

// Deal mirrors the deal_submissions table.
type Deal struct {
	ID                     int64
	Status                 string
	SubmitterName          string
	SubmitterEmail         string
	SubmitterPhone         *string
	PropertyAddress        string
	PropertyType           *string
	AskingPrice            *int64
	Notes                  *string
	Latitude               *float64
	Longitude              *float64
	PurchaseAgreementKey   *string
	AssignmentAgreementKey *string
	JvAgreementKey         *string
	SentDealDescriptionAt  *time.Time
	SentJvAgreementAt      *time.Time
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// CreateParams contains the columns written when a deal is first submitted.
type CreateParams struct {
	Status          string
	SubmitterName   string
	SubmitterEmail  string
	SubmitterPhone  *string
	PropertyAddress string
	PropertyType    *string
	AskingPrice     *int64
	Notes           *string
	Latitude        *float64
	Longitude       *float64
}

// Patch lists the mutable fields of a deal. Nil fields are left untouched.
type Patch struct {
	Status                *string
	Document              *DocumentChange
	SentDealDescriptionAt *time.Time
	SentJvAgreementAt     *time.Time
}

// DocumentChange sets one document reference. A nil Key clears it.
type DocumentChange struct {
	Type DocumentType
	Key  *string
}

func (p Patch) isEmpty() bool {
	return p.Status == nil && p.Document == nil && p.SentDealDescriptionAt == nil && p.SentJvAgreementAt == nil
}

// ListFilters selects one page of deals ordered by creation time descending.
// Cursor is the id of the first deal of the page; nil starts from the newest.
type ListFilters struct {
	Status string
	Cursor *int64
	Limit  int
}

// Page is one slice of a listing. NextCursor is nil on the last page.
type Page struct {
	Deals      []Deal
	NextCursor *int64
}

// Result is returned by mutating operations.
type Result struct {
	Success bool
	Message string
}

// JvRecipient names the party a JV agreement is sent to.
type JvRecipient struct {
	Name    string
	Email   string
	LLCName string
}

// SubmitParams is the public intake form payload.
type SubmitParams struct {
	SubmitterName   string
	SubmitterEmail  string
	SubmitterPhone  string
	PropertyAddress string
	PropertyType    string
	AskingPrice     *int64
	Notes           string
}

// ListParams is the caller-facing listing input. A nil Limit means DefaultLimit.
type ListParams struct {
	Status string
	Cursor *int64
	Limit  *int
}

const (
	DefaultLimit = 20
	MaxLimit     = 100
)
