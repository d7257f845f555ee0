package jwt

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"time"

	"blackjack-server/internal/config"

	jwtgo "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Issuer issues the JWT
const Issuer = "blackjack-auth"

// Audience is the intended JWT audience
const Audience = "blackjack-server"

var publicKey *rsa.PublicKey
var privateKey *rsa.PrivateKey

// Claims are the claims of a player's token
type Claims struct {
	Name string `json:"name,omitempty"`
	jwtgo.RegisteredClaims
}

// Player is the identity carried by a valid token
type Player struct {
	ID   string
	Name string
}

// LoadKeys will load the public key, and the private key if one is configured
// this method should only be called once.
func LoadKeys() error {
	cfg := config.Instance().JWT

	pub, err := loadPublicKey(cfg.PublicKey)
	if err != nil {
		return err
	}

	var priv *rsa.PrivateKey
	if cfg.PrivateKey != "" {
		if priv, err = loadPrivateKey(cfg.PrivateKey); err != nil {
			return err
		}
	}

	SetKeys(pub, priv)
	return nil
}

// SetKeys sets the keys directly
// A nil private key means this server can only verify tokens.
func SetKeys(pub *rsa.PublicKey, priv *rsa.PrivateKey) {
	publicKey = pub
	privateKey = priv
}

// Sign will sign a JWT for the player
func Sign(playerID, name string, ttl time.Duration) (string, error) {
	if privateKey == nil {
		return "", errors.New("no private key loaded")
	}

	now := time.Now()
	claims := Claims{
		Name: name,
		RegisteredClaims: jwtgo.RegisteredClaims{
			Audience: jwtgo.ClaimStrings{Audience},
			ID:       uuid.New().String(),
			IssuedAt: jwtgo.NewNumericDate(now),
			Issuer:   Issuer,
			Subject:  playerID,
		},
	}

	if ttl > 0 {
		claims.ExpiresAt = jwtgo.NewNumericDate(now.Add(ttl))
	}

	return jwtgo.NewWithClaims(jwtgo.SigningMethodRS256, claims).SignedString(privateKey)
}

// ValidPlayer will validate a signed JWT and return the player it identifies
func ValidPlayer(signedString string) (*Player, error) {
	if publicKey == nil {
		panic("LoadKeys() not called")
	}

	token, err := jwtgo.ParseWithClaims(signedString, &Claims{}, func(token *jwtgo.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwtgo.SigningMethodRSA); !ok {
			return nil, errors.New("expected RS256 signing method")
		}

		return publicKey, nil
	}, jwtgo.WithAudience(Audience), jwtgo.WithIssuer(Issuer))

	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, fmt.Errorf("expected jwt.Claims, got %T", token.Claims)
	}

	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}

	name := claims.Name
	if name == "" {
		name = claims.Subject
	}

	return &Player{ID: claims.Subject, Name: name}, nil
}

func loadPublicKey(path string) (*rsa.PublicKey, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	pem, err := jwtgo.ParseRSAPublicKeyFromPEM(b)
	if err != nil {
		logrus.WithError(err).WithField("path", path).Error("could not parse RSA public key")
		return nil, err
	}

	return pem, nil
}

func loadPrivateKey(path string) (*rsa.PrivateKey, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	pem, err := jwtgo.ParseRSAPrivateKeyFromPEM(b)
	if err != nil {
		logrus.WithError(err).WithField("path", path).Error("could not parse RSA private key")
		return nil, err
	}

	return pem, nil
}
