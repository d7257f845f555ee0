package blackjack

// UserError is an error that is safe to return in a response
type UserError string

func (u UserError) Error() string {
	return string(u)
}

// ErrWrongPhase is returned when a command is not legal in the table's current phase
var ErrWrongPhase = UserError("that action is not allowed right now")

// ErrNotCreator is returned when someone other than the creator tries to start betting
var ErrNotCreator = UserError("only the table creator can start the game")

// ErrEmptyTable is returned when betting is started without anyone seated
var ErrEmptyTable = UserError("at least one player is required to start")

// ErrPlayerNotSeated is returned when the player is not at the table
var ErrPlayerNotSeated = UserError("player is not seated at the table")

// ErrAlreadySeated is returned when an active player tries to join the same table again
var ErrAlreadySeated = UserError("player is already seated at the table")

// ErrTableFull is returned when every seat is taken
var ErrTableFull = UserError("the table is full")

// ErrRoundInProgress is returned when a player tries to join in the middle of a round
var ErrRoundInProgress = UserError("a round is in progress, join when it ends")

// ErrInsufficientBalance is returned when a bet or double exceeds the player's balance
var ErrInsufficientBalance = UserError("insufficient balance")

// ErrInvalidBet is returned when the bet amount is not positive
var ErrInvalidBet = UserError("bet must be greater than zero")

// ErrBetAlreadyPlaced is returned when the player has already bet this round
var ErrBetAlreadyPlaced = UserError("bet already placed")

// ErrNotYourTurn is returned when a player acts out of turn
var ErrNotYourTurn = UserError("it is not your turn")

// ErrInvalidDouble is returned when a player doubles with anything other than two cards
var ErrInvalidDouble = UserError("you can only double with two cards")

// ErrInvalidAction is returned for unknown player actions
var ErrInvalidAction = UserError("invalid action")
