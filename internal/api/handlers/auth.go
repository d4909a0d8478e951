package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"

	"github.com/chynybekuuludastan/story_generator/internal/api/middleware"
	"github.com/chynybekuuludastan/story_generator/internal/models"
	"github.com/chynybekuuludastan/story_generator/internal/repository"
	"github.com/chynybekuuludastan/story_generator/internal/utils/password"
)

// TokenRevoker revokes JWTs on logout and refresh
type TokenRevoker interface {
	BlacklistToken(ctx context.Context, token string, ttl time.Duration) error
}

// AuthConfig holds the token settings of the auth handler
type AuthConfig struct {
	JWTSecret     string
	JWTExpiration time.Duration
}

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	UserRepo repository.UserRepository
	Tokens   TokenRevoker
	Config   AuthConfig
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(repo repository.UserRepository, tokens TokenRevoker, cfg AuthConfig) *AuthHandler {
	return &AuthHandler{
		UserRepo: repo,
		Tokens:   tokens,
		Config:   cfg,
	}
}

// RegisterRequest represents a request to register a new user
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50" example:"ayse"`
	Email    string `json:"email" validate:"required,email" example:"ayse@example.com"`
	Password string `json:"password" validate:"required,min=8" example:"securePassword"`
}

// LoginRequest represents a request to log in
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email" example:"ayse@example.com"`
	Password string `json:"password" validate:"required" example:"securePassword"`
}

// ChangePasswordRequest represents a request to change the current password
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,nefield=CurrentPassword"`
}

// TokenResponse represents a JWT token response
type TokenResponse struct {
	AccessToken string `json:"access_token" example:"eyJhbGciOiJIUzI1..."`
	TokenType   string `json:"token_type" example:"bearer"`
	ExpiresIn   int    `json:"expires_in" example:"86400"`
}

// @Summary Register a new parent account
// @Description Register a new parent account
// @Tags auth
// @Accept json
// @Produce json
// @Param user body RegisterRequest true "User Registration"
// @Success 201 {object} SuccessResponse "User created successfully"
// @Failure 400 {object} ErrorResponse "Invalid request"
// @Failure 409 {object} ErrorResponse "User already exists"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	req := new(RegisterRequest)
	if err := c.BodyParser(req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Username, a valid email and a password of at least 8 characters are required")
	}

	// Check if user already exists
	exists, err := h.UserRepo.ExistsByEmail(req.Email)
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, "Database error")
	}
	if exists {
		return fail(c, fiber.StatusConflict, "Email already registered")
	}

	exists, err = h.UserRepo.ExistsByUsername(req.Username)
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, "Database error")
	}
	if exists {
		return fail(c, fiber.StatusConflict, "Username already taken")
	}

	hashedPassword, err := password.Hash(req.Password)
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, "Failed to hash password")
	}

	role, err := h.UserRepo.FindRoleByName(models.RoleParent)
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, "Default role is missing")
	}

	user := models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hashedPassword,
		RoleID:       role.ID,
	}
	if err := h.UserRepo.Create(&user); err != nil {
		return fail(c, fiber.StatusInternalServerError, "Failed to create user")
	}

	return respond(c, fiber.StatusCreated, fiber.Map{
		"id":       user.ID,
		"username": user.Username,
		"email":    user.Email,
		"role":     role.Name,
	})
}

// @Summary User login
// @Description Authenticate a user and return JWT token
// @Tags auth
// @Accept json
// @Produce json
// @Param credentials body LoginRequest true "Login Credentials"
// @Success 200 {object} SuccessResponse{data=TokenResponse} "Login successful"
// @Failure 400 {object} ErrorResponse "Invalid request"
// @Failure 401 {object} ErrorResponse "Invalid credentials"
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	req := new(LoginRequest)
	if err := c.BodyParser(req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Email and password are required")
	}

	user, err := h.UserRepo.FindByEmail(req.Email)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Invalid credentials")
	}
	if !checkPassword(req.Password, user.PasswordHash) {
		return fail(c, fiber.StatusUnauthorized, "Invalid credentials")
	}

	// upgrade bcrypt and outdated argon2 hashes while the plain password is at hand
	if password.NeedsRehash(user.PasswordHash) {
		if hash, err := password.Hash(req.Password); err == nil {
			_ = h.UserRepo.UpdatePassword(user.ID, hash)
		}
	}

	return h.issueToken(c, user)
}

// @Summary Current user
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse "User not found"
// @Router /auth/me [get]
func (h *AuthHandler) GetMe(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	user, err := h.UserRepo.FindWithRole(userID)
	if err != nil {
		return fail(c, fiber.StatusNotFound, "User not found")
	}

	return respond(c, fiber.StatusOK, fiber.Map{
		"id":         user.ID,
		"username":   user.Username,
		"email":      user.Email,
		"role":       user.Role.Name,
		"created_at": user.CreatedAt,
	})
}

// @Summary Refresh the access token
// @Description Issues a new token and revokes the one used for the request
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} SuccessResponse{data=TokenResponse}
// @Failure 401 {object} ErrorResponse "Invalid user"
// @Router /auth/refresh [post]
func (h *AuthHandler) RefreshToken(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	user, err := h.UserRepo.FindWithRole(userID)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Invalid user")
	}

	if err := h.revokeCurrent(c); err != nil {
		return fail(c, fiber.StatusServiceUnavailable, "Failed to revoke the previous token")
	}

	return h.issueToken(c, user)
}

// @Summary Logout
// @Description Revokes the token used for the request
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} SuccessResponse
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if err := h.revokeCurrent(c); err != nil {
		return fail(c, fiber.StatusServiceUnavailable, "Failed to revoke token")
	}

	return respond(c, fiber.StatusOK, fiber.Map{"message": "Logged out successfully"})
}

// @Summary Change password
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body ChangePasswordRequest true "Passwords"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse "Invalid request"
// @Failure 401 {object} ErrorResponse "Wrong current password"
// @Router /auth/password [put]
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	req := new(ChangePasswordRequest)
	if err := c.BodyParser(req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return fail(c, fiber.StatusBadRequest, "New password must have at least 8 characters and differ from the current one")
	}

	user, err := h.UserRepo.FindWithRole(userID)
	if err != nil {
		return fail(c, fiber.StatusNotFound, "User not found")
	}
	if !checkPassword(req.CurrentPassword, user.PasswordHash) {
		return fail(c, fiber.StatusUnauthorized, "Current password is wrong")
	}

	hash, err := password.Hash(req.NewPassword)
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, "Failed to hash password")
	}
	if err := h.UserRepo.UpdatePassword(userID, hash); err != nil {
		return fail(c, fiber.StatusInternalServerError, "Failed to update password")
	}

	return respond(c, fiber.StatusOK, fiber.Map{"message": "Password updated"})
}

func (h *AuthHandler) issueToken(c *fiber.Ctx, user *models.User) error {
	token, err := middleware.GenerateJWT(user, user.Role.Name, h.Config.JWTSecret, h.Config.JWTExpiration)
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, "Failed to generate token")
	}

	return respond(c, fiber.StatusOK, TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int(h.Config.JWTExpiration.Seconds()),
	})
}

// revokeCurrent blacklists the request's token for the rest of its lifetime
func (h *AuthHandler) revokeCurrent(c *fiber.Ctx) error {
	token, ok := c.Locals(middleware.LocalToken).(string)
	if !ok || token == "" {
		return errors.New("missing token")
	}

	ttl := h.Config.JWTExpiration
	if expiry, ok := c.Locals(middleware.LocalTokenExpiry).(time.Time); ok {
		ttl = time.Until(expiry)
	}
	return h.Tokens.BlacklistToken(c.UserContext(), token, ttl)
}

// checkPassword verifies an argon2id hash, falling back to bcrypt for older accounts
func checkPassword(plain, encoded string) bool {
	if match, err := password.Verify(plain, encoded); err == nil && match {
		return true
	}
	return bcrypt.CompareHashAndPassword([]byte(encoded), []byte(plain)) == nil
}
