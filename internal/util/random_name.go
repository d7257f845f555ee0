package util

import (
	"fmt"
	"math/rand"
	"sync"
	"time"
)

var adjectives = []string{
	"Lucky", "Golden", "Velvet", "Midnight", "Silver", "Crimson", "Emerald", "Royal", "Smoky", "Neon", "Dusty",
	"Red", "Blue", "Green", "Orange", "Purple", "Quiet", "Roaring", "Tall", "Grand", "Ultimate", "Prime",
	"Hidden", "Rolling", "Sly", "Brass", "Copper", "Jumping", "Running", "Charging", "Bouncing", "Wild",
}

var tables = []string{
	"Ace", "Jack", "Queen", "King", "Joker", "Shoe", "Chip", "Felt", "Dealer", "Pit", "Lounge",
	"Saloon", "Riverboat", "Parlor", "Den", "Club", "Spade", "Heart", "Diamond", "Horseshoe", "Clover",
	"Fox", "Wolf", "Tiger", "Otter", "Raven", "Coyote", "Stallion", "Cobra", "Falcon",
}

var (
	randomLock sync.Mutex
	random     = rand.New(rand.NewSource(time.Now().UnixNano())) // nolint:gosec
)

// GetRandomName returns a random table name by combining an adjective with a noun
func GetRandomName() string {
	randomLock.Lock()
	defer randomLock.Unlock()

	adjectivesIndex := random.Intn(len(adjectives))
	tablesIndex := random.Intn(len(tables))

	return fmt.Sprintf("%s %s", adjectives[adjectivesIndex], tables[tablesIndex])
}
