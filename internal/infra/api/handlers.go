package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"invoice-portal/internal/domain"
	"invoice-portal/internal/domain/model"
	"invoice-portal/internal/infra/logging"
	"invoice-portal/internal/usecase"
)

// maxLinkTTL caps merchant-chosen link lifetimes.
const maxLinkTTL = 90 * 24 * time.Hour

// accountResponse never carries the encrypted key.
type accountResponse struct {
	StripeAccountID string    `json:"stripe_account_id"`
	DisplayName     *string   `json:"display_name"`
	IconURL         *string   `json:"icon_url"`
	CreatedAt       time.Time `json:"created_at"`
}

func toAccountResponse(a *model.MerchantAccount) accountResponse {
	return accountResponse{
		StripeAccountID: a.StripeAccountID,
		DisplayName:     a.DisplayName,
		IconURL:         a.IconURL,
		CreatedAt:       a.CreatedAt,
	}
}

type linkAccountRequest struct {
	APIKey string `json:"api_key"`
}

type createLinkRequest struct {
	Email     string  `json:"email"`
	AccountID *string `json:"account_id"`
	TTLHours  int     `json:"ttl_hours"`
	Notify    bool    `json:"notify"`
}

type linkResponse struct {
	Token     string    `json:"token"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
	Notified  bool      `json:"notified"`
}

type requestLinkRequest struct {
	Email string `json:"email"`
}

// ---- merchant ----

func (s *Server) linkAccount(w http.ResponseWriter, r *http.Request) {
	userID, _ := logging.UserID(r.Context())
	var req linkAccountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	acc, err := s.accounts.Link(r.Context(), userID, req.APIKey)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAccountResponse(acc))
}

func (s *Server) listAccounts(w http.ResponseWriter, r *http.Request) {
	userID, _ := logging.UserID(r.Context())
	list, err := s.accounts.List(r.Context(), userID)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	items := make([]accountResponse, 0, len(list))
	for _, a := range list {
		items = append(items, toAccountResponse(a))
	}
	writeJSON(w, http.StatusOK, struct {
		Items []accountResponse `json:"items"`
	}{Items: items})
}

func (s *Server) revokeAccount(w http.ResponseWriter, r *http.Request) {
	userID, _ := logging.UserID(r.Context())
	if err := s.accounts.Revoke(r.Context(), userID, chi.URLParam(r, "accountID")); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) createLink(w http.ResponseWriter, r *http.Request) {
	userID, _ := logging.UserID(r.Context())
	var req createLinkRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	ttl := time.Duration(req.TTLHours) * time.Hour
	if req.TTLHours < 0 || ttl > maxLinkTTL {
		writeError(w, r, s.log, fmt.Errorf("%w: ttl_hours out of range", domain.ErrInvalidArgument))
		return
	}

	issued, err := s.links.Issue(r.Context(), usecase.IssueLinkInput{
		UserID:    userID,
		Email:     req.Email,
		AccountID: req.AccountID,
		TTL:       ttl,
		Origin:    model.LinkOriginMerchant,
		Notify:    req.Notify,
	})
	delivered := req.Notify
	if errors.Is(err, domain.ErrDelivery) && issued != nil {
		// the link exists; the merchant can still hand it over themselves
		delivered, err = false, nil
	}
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, linkResponse{
		Token:     issued.Link.Token,
		URL:       issued.URL,
		ExpiresAt: issued.Link.ExpiresAt,
		Notified:  delivered,
	})
}

// ---- customer ----

// requestLink answers identically whether or not the address has any invoices.
func (s *Server) requestLink(w http.ResponseWriter, r *http.Request) {
	var req requestLinkRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	userID := chi.URLParam(r, "userID")
	ctx := logging.WithUserID(r.Context(), userID)
	if err := s.links.RequestLink(ctx, userID, req.Email); err != nil {
		writeError(w, r.WithContext(ctx), s.log, err)
		return
	}
	writeJSON(w, http.StatusAccepted, struct {
		Status string `json:"status"`
	}{Status: "accepted"})
}

func (s *Server) getInvoices(w http.ResponseWriter, r *http.Request) {
	set, err := s.invoices.FetchForLink(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, set)
}

func (s *Server) getDocument(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	doc, err := s.invoices.Document(
		r.Context(),
		chi.URLParam(r, "token"),
		chi.URLParam(r, "chargeID"),
		usecase.DocumentEdits{
			Note:          q.Get("note"),
			CustomerName:  q.Get("customer_name"),
			CustomerEmail: q.Get("customer_email"),
		},
	)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", sanitizeFileName(doc.FileName)))
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.Body)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc.Body)
}

func sanitizeFileName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-', r == '.':
			return r
		default:
			return '_'
		}
	}, name)
}
