package util

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetRandomName(t *testing.T) {
	a := assert.New(t)

	random = rand.New(rand.NewSource(0)) // nolint:gosec
	first := GetRandomName()

	random = rand.New(rand.NewSource(0)) // nolint:gosec
	a.Equal(first, GetRandomName())

	parts := strings.Split(first, " ")
	if a.Len(parts, 2) {
		a.Contains(adjectives, parts[0])
		a.Contains(tables, parts[1])
	}
}
