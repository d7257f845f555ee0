package room

import (
	"errors"

	"blackjack-server/pkg/blackjack"

	"github.com/sirupsen/logrus"
)

// ErrTableLimitReached is returned when the maximum number of tables are open
var ErrTableLimitReached = blackjack.UserError("the maximum number of tables has been reached")

// ErrTableNotFound is returned when the table does not exist, or was closed while the request was pending
var ErrTableNotFound = blackjack.UserError("table not found")

// ErrUnknownAction is returned for a websocket message the dealer does not understand
var ErrUnknownAction = blackjack.UserError("unknown action")

// ErrInternal is what the client sees instead of an unexpected error
var ErrInternal = blackjack.UserError("something went wrong, please try again")

// userFacing returns err if it's safe to show to a player, otherwise ErrInternal
func userFacing(log logrus.FieldLogger, err error) error {
	var ue blackjack.UserError
	if errors.As(err, &ue) {
		return err
	}

	log.WithError(err).Error("unexpected error")
	return ErrInternal
}
