package handlers

import (
	"net/http"

	"github.com/Elizabethomito/talentbridge/backend/internal/models"
	"github.com/Elizabethomito/talentbridge/backend/internal/payment"
)

// PaymentStatus handles GET /api/challenges/{id}/payment  (owner only)
func (s *Server) PaymentStatus(w http.ResponseWriter, r *http.Request) {
	c, err := s.ownedChallenge(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	st, err := s.Payments.Status(r.Context(), c.ID)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respond(w, http.StatusOK, st)
}

// ConfirmCheckout handles POST /api/payments/checkout/confirm
//
// The checkout provider calls this with a token signed by the server secret
// once the prize pool is escrowed. No user session is involved.
func (s *Server) ConfirmCheckout(w http.ResponseWriter, r *http.Request) {
	var req models.CheckoutConfirmRequest
	if err := decode(r, &req); err != nil || req.Token == "" {
		respondError(w, http.StatusBadRequest, "token is required")
		return
	}
	st, err := payment.Confirm(r.Context(), s.Store, req.Token, s.Secret)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respond(w, http.StatusOK, st)
}
