package session

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Manav0411/askbase-go/api"
)

// Credential decoding. The server issues an HS256 JWT whose claims carry the
// principal: "sub" (user ID as a string), "role", optionally "email", and
// "exp". The client decodes the claims without verifying the signature: it
// does not hold the signing key, and the derived identity is advisory; the
// server re-authenticates every request. A verify key may be supplied where
// available (tests, trusted deployments).

// decodeCredential parses the credential into a principal and expiry.
func decodeCredential(credential string, verifyKey []byte) (api.Principal, time.Time, error) {
	claims := jwt.MapClaims{}

	var err error
	if len(verifyKey) > 0 {
		_, err = jwt.NewParser(
			jwt.WithValidMethods([]string{"HS256"}),
			jwt.WithoutClaimsValidation(),
		).ParseWithClaims(credential, claims, func(*jwt.Token) (any, error) {
			return verifyKey, nil
		})
	} else {
		_, _, err = jwt.NewParser().ParseUnverified(credential, claims)
	}
	if err != nil {
		return api.Principal{}, time.Time{}, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}

	principal, err := principalFromClaims(claims)
	if err != nil {
		return api.Principal{}, time.Time{}, err
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return api.Principal{}, time.Time{}, fmt.Errorf("%w: missing exp claim", ErrInvalidCredential)
	}

	return principal, exp.Time, nil
}

func principalFromClaims(claims jwt.MapClaims) (api.Principal, error) {
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return api.Principal{}, fmt.Errorf("%w: missing sub claim", ErrInvalidCredential)
	}
	id, err := strconv.Atoi(sub)
	if err != nil {
		return api.Principal{}, fmt.Errorf("%w: sub %q is not a user id", ErrInvalidCredential, sub)
	}

	roleStr, _ := claims["role"].(string)
	role, err := api.ParseRole(roleStr)
	if err != nil {
		return api.Principal{}, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}

	email, _ := claims["email"].(string)

	return api.Principal{ID: id, Email: email, Role: role}, nil
}
