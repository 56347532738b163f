package controllers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/rmjobsites-storefront/api/responses"
	"github.com/angelmondragon/rmjobsites-storefront/api/validators"
	"github.com/angelmondragon/rmjobsites-storefront/internal/checkout"
	pkgerrors "github.com/angelmondragon/rmjobsites-storefront/pkg/errors"
	"github.com/angelmondragon/rmjobsites-storefront/pkg/logger"
	"github.com/angelmondragon/rmjobsites-storefront/pkg/square"
)

// settleTimeout bounds how long a ?wait=true request blocks on entry work.
const settleTimeout = 15 * time.Second

// CheckoutService starts and tracks the live checkout session.
type CheckoutService interface {
	Enter(ctx context.Context) (*checkout.Session, error)
	Current() *checkout.Session
	Exit()
	TakeConfirmation() (*checkout.Receipt, bool)
}

// CardContainers receives what the customer types into the hosted card field.
type CardContainers interface {
	Fill(containerID string, entry square.CardEntry) error
	FillNonce(containerID, nonce string) error
}

type cardFillRequest struct {
	Nonce      string `json:"nonce"`
	Number     string `json:"number" validate:"required_without=Nonce"`
	ExpMonth   int    `json:"exp_month"`
	ExpYear    int    `json:"exp_year"`
	CVV        string `json:"cvv"`
	PostalCode string `json:"postal_code"`
}

type submitResponse struct {
	Confirmation checkout.Confirmation `json:"confirmation"`
	Redirect     string                `json:"redirect"`
}

// CheckoutEnter starts a session. An empty cart is answered with a redirect to the
// cart view.
func CheckoutEnter(svc CheckoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := svc.Enter(r.Context())
		if err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodeEmptyCart) {
				responses.WriteErrorRedirect(r.Context(), logg, w, err, checkout.RedirectCart)
				return
			}
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if waitRequested(r) {
			settle(r.Context(), session)
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, session.View())
	}
}

// CheckoutView renders the live session. With ?wait=true it first lets in-flight
// entry and pricing work settle.
func CheckoutView(svc CheckoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := currentSession(svc, w, r, logg)
		if !ok {
			return
		}
		if waitRequested(r) {
			settle(r.Context(), session)
		}
		responses.WriteSuccess(w, session.View())
	}
}

func CheckoutFillCard(svc CheckoutService, containers CardContainers, containerID string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := currentSession(svc, w, r, logg); !ok {
			return
		}
		var payload cardFillRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var err error
		if nonce := strings.TrimSpace(payload.Nonce); nonce != "" {
			err = containers.FillNonce(containerID, nonce)
		} else {
			err = containers.Fill(containerID, square.CardEntry{
				Number:     payload.Number,
				ExpMonth:   payload.ExpMonth,
				ExpYear:    payload.ExpYear,
				CVV:        payload.CVV,
				PostalCode: payload.PostalCode,
			})
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

// CheckoutRetryPricing re-runs order pricing after a failure.
func CheckoutRetryPricing(svc CheckoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := currentSession(svc, w, r, logg)
		if !ok {
			return
		}
		if err := session.RetryPricing(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, session.View())
	}
}

func CheckoutSubmit(svc CheckoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := currentSession(svc, w, r, logg)
		if !ok {
			return
		}
		var payload checkout.SubmitInput
		if err := validators.DecodeJSON(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		receipt, err := session.Submit(r.Context(), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, submitResponse{
			Confirmation: receipt.Confirmation(),
			Redirect:     checkout.RedirectConfirmation,
		})
	}
}

func CheckoutExit(svc CheckoutService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc.Exit()
		responses.WriteNoContent(w)
	}
}

// OrderConfirmation shows the receipt of the order just placed, once. Without one the
// view is sent home.
func OrderConfirmation(svc CheckoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		receipt, ok := svc.TakeConfirmation()
		if !ok {
			responses.WriteErrorRedirect(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "no recent order"), "/")
			return
		}
		responses.WriteSuccess(w, receipt.Confirmation())
	}
}

func currentSession(svc CheckoutService, w http.ResponseWriter, r *http.Request, logg *logger.Logger) (*checkout.Session, bool) {
	session := svc.Current()
	if session == nil {
		responses.WriteErrorRedirect(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "no checkout in progress"), checkout.RedirectCart)
		return nil, false
	}
	return session, true
}

func waitRequested(r *http.Request) bool {
	v := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("wait")))
	return v == "1" || v == "true"
}

func settle(ctx context.Context, session *checkout.Session) {
	ctx, cancel := context.WithTimeout(ctx, settleTimeout)
	defer cancel()
	_ = session.Wait(ctx)
}
