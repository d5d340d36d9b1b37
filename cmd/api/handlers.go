package main

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"dealdesk/auth"
	"dealdesk/deal"
	"dealdesk/failure"
)

type dealResponse struct {
	ID                     int64    `json:"id"`
	Status                 string   `json:"status"`
	SubmitterName          string   `json:"submitterName"`
	SubmitterEmail         string   `json:"submitterEmail"`
	SubmitterPhone         *string  `json:"submitterPhone"`
	PropertyAddress        string   `json:"propertyAddress"`
	PropertyType           *string  `json:"propertyType"`
	AskingPrice            *int64   `json:"askingPrice"`
	Notes                  *string  `json:"notes"`
	Latitude               *float64 `json:"latitude"`
	Longitude              *float64 `json:"longitude"`
	PurchaseAgreementKey   *string  `json:"purchaseAgreementKey"`
	AssignmentAgreementKey *string  `json:"assignmentAgreementKey"`
	JvAgreementKey         *string  `json:"jvAgreementKey"`
	SentDealDescriptionAt  *string  `json:"sentDealDescriptionAt"`
	SentJvAgreementAt      *string  `json:"sentJvAgreementAt"`
	CreatedAt              string   `json:"createdAt"`
	UpdatedAt              string   `json:"updatedAt"`
}

type listResponse struct {
	Deals      []dealResponse `json:"deals"`
	NextCursor *int64         `json:"nextCursor,omitempty"`
}

type resultResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type loginResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expiresAt"`
}

type uploadResponse struct {
	PresignedURL string `json:"presignedUrl"`
	ObjectKey    string `json:"objectKey"`
	ExpiresAt    string `json:"expiresAt"`
}

type urlResponse struct {
	URL string `json:"url"`
}

type submitRequest struct {
	SubmitterName   string `json:"submitterName"`
	SubmitterEmail  string `json:"submitterEmail"`
	SubmitterPhone  string `json:"submitterPhone"`
	PropertyAddress string `json:"propertyAddress"`
	PropertyType    string `json:"propertyType"`
	AskingPrice     *int64 `json:"askingPrice"`
	Notes           string `json:"notes"`
}

type statusRequest struct {
	Status string `json:"status"`
}

// documentRequest keeps objectKey raw so an explicit null can be told apart
// from a missing field.
type documentRequest struct {
	ObjectKey json.RawMessage `json:"objectKey"`
}

type uploadRequest struct {
	Filename string `json:"filename"`
}

type jvRequest struct {
	RecipientName  string `json:"recipientName"`
	RecipientEmail string `json:"recipientEmail"`
	LLCName        string `json:"llcName"`
}

func toDealResponse(d deal.Deal) dealResponse {
	return dealResponse{
		ID:                     d.ID,
		Status:                 d.Status,
		SubmitterName:          d.SubmitterName,
		SubmitterEmail:         d.SubmitterEmail,
		SubmitterPhone:         d.SubmitterPhone,
		PropertyAddress:        d.PropertyAddress,
		PropertyType:           d.PropertyType,
		AskingPrice:            d.AskingPrice,
		Notes:                  d.Notes,
		Latitude:               d.Latitude,
		Longitude:              d.Longitude,
		PurchaseAgreementKey:   d.PurchaseAgreementKey,
		AssignmentAgreementKey: d.AssignmentAgreementKey,
		JvAgreementKey:         d.JvAgreementKey,
		SentDealDescriptionAt:  formatOptionalTime(d.SentDealDescriptionAt),
		SentJvAgreementAt:      formatOptionalTime(d.SentJvAgreementAt),
		CreatedAt:              d.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:              d.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func formatOptionalTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.authService.Login(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    res.Token,
		Path:     "/",
		Expires:  res.ExpiresAt,
		MaxAge:   int(auth.TokenTTL / time.Second),
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, loginResponse{
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// handleLogout clears the cookie. Tokens stay valid until expiry.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSubmitDeal(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	d, err := s.dealService.Submit(r.Context(), deal.SubmitParams{
		SubmitterName:   req.SubmitterName,
		SubmitterEmail:  req.SubmitterEmail,
		SubmitterPhone:  req.SubmitterPhone,
		PropertyAddress: req.PropertyAddress,
		PropertyType:    req.PropertyType,
		AskingPrice:     req.AskingPrice,
		Notes:           req.Notes,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toDealResponse(d))
}

func (s *Server) handleListDeals(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := deal.ListParams{Status: strings.TrimSpace(q.Get("status"))}

	if raw := q.Get("cursor"); raw != "" {
		cursor, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			s.writeError(w, r, failure.Validation("cursor", "cursor must be an integer"))
			return
		}
		params.Cursor = &cursor
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			s.writeError(w, r, failure.Validation("limit", "limit must be an integer"))
			return
		}
		params.Limit = &limit
	}

	page, err := s.dealService.List(r.Context(), sessionToken(r), params)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := listResponse{Deals: make([]dealResponse, 0, len(page.Deals)), NextCursor: page.NextCursor}
	for _, d := range page.Deals {
		resp.Deals = append(resp.Deals, toDealResponse(d))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetDeal(w http.ResponseWriter, r *http.Request) {
	id, err := dealID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	d, err := s.dealService.Get(r.Context(), sessionToken(r), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDealResponse(d))
}

func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := dealID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req statusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.dealService.UpdateStatus(r.Context(), sessionToken(r), id, req.Status)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resultResponse(res))
}

func (s *Server) handleUpdateDocument(w http.ResponseWriter, r *http.Request) {
	id, err := dealID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	docType, err := documentType(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req documentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	key, err := objectKey(req.ObjectKey)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.dealService.UpdateDocument(r.Context(), sessionToken(r), id, docType, key)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resultResponse(res))
}

func (s *Server) handleDocumentURL(w http.ResponseWriter, r *http.Request) {
	id, err := dealID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	docType, err := documentType(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	url, err := s.dealService.DocumentURL(r.Context(), sessionToken(r), id, docType)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, urlResponse{URL: url})
}

func (s *Server) handleCreateUpload(w http.ResponseWriter, r *http.Request) {
	var req uploadRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	upload, err := s.dealService.CreateUploadURL(r.Context(), sessionToken(r), req.Filename)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, uploadResponse{
		PresignedURL: upload.URL,
		ObjectKey:    upload.ObjectKey,
		ExpiresAt:    upload.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleSendDealDescription(w http.ResponseWriter, r *http.Request) {
	id, err := dealID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.dealService.SendDealDescription(r.Context(), sessionToken(r), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resultResponse(res))
}

func (s *Server) handleSendJvAgreement(w http.ResponseWriter, r *http.Request) {
	id, err := dealID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req jvRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.dealService.SendJvAgreement(r.Context(), sessionToken(r), id, deal.JvRecipient{
		Name:    req.RecipientName,
		Email:   req.RecipientEmail,
		LLCName: req.LLCName,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resultResponse(res))
}

func dealID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, failure.Validation("id", "id must be a positive integer")
	}
	return id, nil
}

func documentType(r *http.Request) (deal.DocumentType, error) {
	t, err := deal.ParseDocumentType(chi.URLParam(r, "type"))
	if err != nil {
		return 0, failure.Validation("documentType", "documentType must be one of jv, purchase, assignment")
	}
	return t, nil
}

// objectKey maps a JSON string to a key and JSON null to a removal.
func objectKey(raw json.RawMessage) (*string, error) {
	if len(raw) == 0 {
		return nil, failure.Validation("objectKey", "objectKey is required; use null to remove")
	}
	if string(raw) == "null" {
		return nil, nil
	}
	var key string
	if err := json.Unmarshal(raw, &key); err != nil {
		return nil, failure.Validation("objectKey", "objectKey must be a string or null")
	}
	return &key, nil
}
