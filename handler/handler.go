package handler

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"feedboard/feed"
	"feedboard/store"
)

type Handler struct {
	Feed      *feed.Service
	Store     *store.Store
	Images    *store.ImageStore
	JWTSecret string
}

// userID extracts the authenticated user id from the token the JWT
// middleware stored on the context. Empty when the route was skipped
// by the middleware or the claim is missing.
func userID(c echo.Context) string {
	token, ok := c.Get("user").(*jwt.Token)
	if !ok {
		return ""
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return ""
	}
	id, _ := claims["userId"].(string)
	return id
}
