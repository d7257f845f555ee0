package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"blackjack-server/internal/config"
	"blackjack-server/internal/jwt"
	"blackjack-server/pkg/db"
	"blackjack-server/pkg/store/postgres"

	"github.com/sirupsen/logrus"
	"golang.org/x/term"
)

var command = flag.String("c", "player", "specifies the command (player, credit, token)")
var playerID = flag.String("id", "", "the player ID, prompted for if empty")
var name = flag.String("name", "", "the display name of a new player")
var amount = flag.Int("amount", 0, "the amount to credit, negative to debit")
var ttl = flag.Duration("ttl", time.Hour*24, "how long a token is valid")

func main() {
	flag.Parse()

	switch *command {
	case "player":
		s := openStore()
		id := required("Player ID", *playerID)
		display := *name
		if display == "" {
			display = ask("Display name")
		}

		record, err := s.GetOrCreatePlayer(context.Background(), id, display, config.Instance().Game.InitialBalance)
		if err != nil {
			logrus.WithError(err).Fatal("could not create player")
		}

		fmt.Printf("Player %s (%s) has a balance of %d\n", record.ID, record.DisplayName, record.Balance)
	case "credit":
		s := openStore()
		id := required("Player ID", *playerID)
		credit := *amount
		if credit == 0 {
			val, err := strconv.Atoi(required("Amount", ""))
			if err != nil {
				logrus.WithError(err).Fatal("amount must be a number")
			}

			credit = val
		}

		balance, err := s.AdjustBalance(context.Background(), id, credit)
		if err != nil {
			logrus.WithError(err).Fatal("could not credit player")
		}

		fmt.Printf("Player %s now has a balance of %d\n", id, balance)
	case "token":
		if err := jwt.LoadKeys(); err != nil {
			logrus.WithError(err).Fatal("could not load JWT keys")
		}

		id := required("Player ID", *playerID)
		token, err := jwt.Sign(id, *name, *ttl)
		if err != nil {
			logrus.WithError(err).Fatal("could not sign token")
		}

		fmt.Println(token)
	default:
		logrus.Fatalf("unknown command: %s", *command)
	}
}

func openStore() *postgres.Store {
	cfg := config.Instance()
	if cfg.PGDSN == "" {
		logrus.Fatal("missing pgDsn in configuration")
	}

	dbh, err := db.Open(context.Background(), cfg.PGDSN)
	if err != nil {
		logrus.WithError(err).Fatal("could not connect to database")
	}

	return postgres.New(dbh)
}

// required returns value, or asks for it if it's empty
// Without a terminal there is nobody to ask.
func required(question, value string) string {
	if value != "" {
		return value
	}

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		logrus.Fatalf("%s is required", strings.ToLower(question))
	}

	answer := ask(question)
	if answer == "" {
		os.Exit(1)
	}

	return answer
}

func ask(question string) string {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return ""
	}

	fmt.Printf("%s: ", question)
	reader := bufio.NewReader(os.Stdin)
	str, err := reader.ReadString('\n')
	if err != nil {
		logrus.WithError(err).Warn("could not read answer")
	}

	return strings.TrimRight(str, "\r\n")
}
