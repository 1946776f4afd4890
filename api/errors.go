package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"cardroom/domain/entities"
	"cardroom/domain/utils"

	log "github.com/sirupsen/logrus"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Error("Failed to encode JSON response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps domain errors onto HTTP statuses. Unrecognized
// errors become opaque 500s; the detail goes to the log, not the client.
func writeDomainError(w http.ResponseWriter, err error) {
	var insufficientFunds *entities.InsufficientFundsError
	var paymentFailed *entities.PaymentFailedError
	var paymentAmbiguous *entities.PaymentAmbiguousError

	switch {
	case errors.Is(err, entities.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")

	case errors.Is(err, entities.ErrDuplicateUser):
		writeError(w, http.StatusConflict, "username already taken")

	case errors.Is(err, entities.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid username or password")

	case errors.Is(err, entities.ErrInvalidTransition),
		errors.Is(err, entities.ErrAlreadySettled),
		errors.Is(err, entities.ErrWinnerNotMember),
		errors.Is(err, entities.ErrNoActivePlayers):
		writeError(w, http.StatusUnprocessableEntity, err.Error())

	case errors.As(err, &insufficientFunds):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
			"error":     "insufficient funds",
			"available": utils.FormatUSDC(insufficientFunds.Available),
			"required":  utils.FormatUSDC(insufficientFunds.Required),
		})

	case errors.As(err, &paymentFailed):
		writeError(w, http.StatusBadGateway, paymentFailed.Message)

	case errors.As(err, &paymentAmbiguous):
		writeJSON(w, http.StatusBadGateway, map[string]string{
			"error":     "payment outcome pending confirmation",
			"reference": paymentAmbiguous.Reference,
		})

	default:
		log.WithError(err).Error("Unhandled error in request")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
