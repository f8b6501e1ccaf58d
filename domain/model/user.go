package model

import "github.com/golang-jwt/jwt"

// UserClaims is the JWT payload issued by the account service. Issuer carries
// the user id.
type UserClaims struct {
	UserName string `json:"user_name"`
	jwt.StandardClaims
}
