package handler

import (
	"net/http"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/juju/errors"
	"github.com/labstack/echo/v4"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/crypto/bcrypt"

	"feedboard/domain"
)

var sanitizerStrict = bluemonday.StrictPolicy()

const tokenLifetime = 6 * time.Hour

type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// Signup handles POST /auth/signup.
func (h *Handler) Signup(c echo.Context) error {
	var req signupRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	req.Email = strings.TrimSpace(req.Email)
	req.Password = strings.TrimSpace(req.Password)
	req.Name = strings.TrimSpace(req.Name)

	fields := []domain.FieldError{}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		fields = append(fields, domain.FieldError{
			Param: "email", Msg: "email address format is not valid"})
	} else {
		taken, err := h.Store.EmailTaken(c.Request().Context(), req.Email)
		if err != nil {
			return err
		}
		if taken {
			fields = append(fields, domain.FieldError{
				Param: "email", Msg: "email in use, please choose another"})
		}
	}
	if n := utf8.RuneCountInString(req.Password); n < 6 || n > 20 {
		fields = append(fields, domain.FieldError{
			Param: "password", Msg: "password must be 6 to 20 characters long"})
	}
	if n := utf8.RuneCountInString(req.Name); n < 2 || n > 15 {
		fields = append(fields, domain.FieldError{
			Param: "name", Msg: "name must be 2 to 15 characters long"})
	}
	if len(fields) > 0 {
		return domain.NewValidationError("Signup validation failed", fields...)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), 12)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	user := domain.User{
		ID:        uuid.NewString(),
		Email:     req.Email,
		Name:      req.Name,
		Status:    domain.DefaultStatus,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.Store.InsertUser(c.Request().Context(), &user, string(hashed)); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, map[string]string{
		"message": "User successfully created",
		"id":      user.ID,
	})
}

// Login handles POST /auth/login and issues a bearer token carrying
// the email, user id and a six hour expiry.
func (h *Handler) Login(c echo.Context) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return err
	}

	user, hashed, err := h.Store.UserByEmail(c.Request().Context(), req.Email)
	if errors.Is(err, errors.NotFound) {
		return errors.Unauthorizedf("email not found")
	}
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(req.Password)); err != nil {
		return errors.Unauthorizedf("password incorrect")
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"email":  user.Email,
		"userId": user.ID,
		"exp":    time.Now().Add(tokenLifetime).Unix(),
	})
	signed, err := token.SignedString([]byte(h.JWTSecret))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{
		"token":  signed,
		"userId": user.ID,
	})
}

// GetStatus handles GET /auth/status.
func (h *Handler) GetStatus(c echo.Context) error {
	user, err := h.Store.UserByID(c.Request().Context(), userID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"status": user.Status})
}

// UpdateStatus handles PUT /auth/status.
func (h *Handler) UpdateStatus(c echo.Context) error {
	var req struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return err
	}
	status := strings.TrimSpace(sanitizerStrict.Sanitize(req.Status))
	if n := utf8.RuneCountInString(status); n < 3 || n > 255 {
		return domain.NewValidationError("Status update failed",
			domain.FieldError{Param: "status", Msg: "status must be 3 to 255 characters long"})
	}

	err := h.Store.UpdateUserStatus(c.Request().Context(), userID(c), status, time.Now().UTC())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Status successfully updated"})
}
