package deal

import (
	"context"
	"fmt"
	"strings"
)

// DocumentType is the closed set of agreements a deal can reference.
type DocumentType int

const (
	DocumentJV DocumentType = iota + 1
	DocumentPurchase
	DocumentAssignment
)

// ParseDocumentType maps the wire names jv, purchase and assignment.
func ParseDocumentType(s string) (DocumentType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "jv":
		return DocumentJV, nil
	case "purchase":
		return DocumentPurchase, nil
	case "assignment":
		return DocumentAssignment, nil
	default:
		return 0, fmt.Errorf("deal: unknown document type %q", s)
	}
}

func (t DocumentType) Valid() bool {
	switch t {
	case DocumentJV, DocumentPurchase, DocumentAssignment:
		return true
	default:
		return false
	}
}

func (t DocumentType) String() string {
	switch t {
	case DocumentJV:
		return "jv"
	case DocumentPurchase:
		return "purchase"
	case DocumentAssignment:
		return "assignment"
	default:
		return fmt.Sprintf("DocumentType(%d)", int(t))
	}
}

// Label is the human-readable name used in result messages.
func (t DocumentType) Label() string {
	switch t {
	case DocumentJV:
		return "JV agreement"
	case DocumentPurchase:
		return "Purchase agreement"
	case DocumentAssignment:
		return "Assignment agreement"
	default:
		return "Document"
	}
}

// column is the deal_submissions column holding the object key.
func (t DocumentType) column() string {
	switch t {
	case DocumentJV:
		return "jv_agreement_key"
	case DocumentPurchase:
		return "purchase_agreement_key"
	case DocumentAssignment:
		return "assignment_agreement_key"
	default:
		panic(fmt.Sprintf("deal: no column for %v", t))
	}
}

// DocumentKey returns the object key referenced for t, or nil.
func (d Deal) DocumentKey(t DocumentType) *string {
	switch t {
	case DocumentJV:
		return d.JvAgreementKey
	case DocumentPurchase:
		return d.PurchaseAgreementKey
	case DocumentAssignment:
		return d.AssignmentAgreementKey
	default:
		return nil
	}
}

// SetDocumentKey updates the in-memory reference for t.
func (d *Deal) SetDocumentKey(t DocumentType, key *string) {
	switch t {
	case DocumentJV:
		d.JvAgreementKey = key
	case DocumentPurchase:
		d.PurchaseAgreementKey = key
	case DocumentAssignment:
		d.AssignmentAgreementKey = key
	}
}

// setDocument persists a single document reference on d. A nil key removes
// the reference and is reported as a success like an upload.
func (s *Service) setDocument(ctx context.Context, d Deal, t DocumentType, key *string) (Deal, string, error) {
	updated, err := s.repo.Update(ctx, d.ID, Patch{
		Document: &DocumentChange{Type: t, Key: key},
	})
	if err != nil {
		return Deal{}, "", err
	}
	if key == nil {
		return updated, fmt.Sprintf("%s removed successfully", t.Label()), nil
	}
	return updated, fmt.Sprintf("%s uploaded successfully", t.Label()), nil
}
