package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/blackpearlke/blackpearl-api/internal/apperr"
	"github.com/blackpearlke/blackpearl-api/internal/auth"
	"github.com/blackpearlke/blackpearl-api/internal/models"
)

const refreshCookie = "jwt_refresh"

func (s *Server) setRefreshCookie(c *gin.Context, token string) {
	secure := gin.Mode() == gin.ReleaseMode
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(refreshCookie, token, int((7 * 24 * time.Hour).Seconds()), "/", "", secure, true)
}

// issueTokens rotates the refresh token and returns the login response
// body used by register, login and profile update.
func (s *Server) issueTokens(c *gin.Context, user *models.User) (gin.H, error) {
	accessToken, err := s.tokens.GenerateAccessToken(user)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.tokens.GenerateRefreshToken(user.ID)
	if err != nil {
		return nil, err
	}
	if err := s.users.SetRefreshToken(c.Request.Context(), user.ID, refreshToken); err != nil {
		return nil, err
	}
	s.setRefreshCookie(c, refreshToken)

	return gin.H{
		"_id":   user.ID,
		"name":  user.Name,
		"phone": user.Phone,
		"role":  user.Role,
		"token": accessToken,
	}, nil
}

type registerInput struct {
	Name     string `json:"name" binding:"required"`
	Phone    string `json:"phone" binding:"required"`
	Password string `json:"password" binding:"required,min=6"`
}

func (s *Server) registerUser(c *gin.Context) {
	var input registerInput
	if err := c.ShouldBindJSON(&input); err != nil {
		s.fail(c, apperr.Validation("All fields are required."))
		return
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		s.fail(c, err)
		return
	}

	user := &models.User{
		Name:         input.Name,
		Phone:        auth.NormalizePhone(input.Phone),
		PasswordHash: hash,
		Role:         models.RoleUser,
	}
	if err := s.users.Create(c.Request.Context(), user); err != nil {
		s.fail(c, err)
		return
	}

	body, err := s.issueTokens(c, user)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, body)
}

type loginInput struct {
	Phone    string `json:"phone" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) loginUser(c *gin.Context) {
	var input loginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		s.fail(c, apperr.Validation("Phone and password required."))
		return
	}

	user, err := s.users.ByPhone(c.Request.Context(), auth.NormalizePhone(input.Phone))
	if err != nil {
		s.fail(c, err)
		return
	}
	if user == nil {
		s.fail(c, apperr.NotFound("Account not found."))
		return
	}
	if !auth.CheckPassword(user.PasswordHash, input.Password) {
		s.fail(c, apperr.Auth("Invalid credentials."))
		return
	}

	body, err := s.issueTokens(c, user)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) refreshToken(c *gin.Context) {
	cookie, err := c.Cookie(refreshCookie)
	if err != nil || cookie == "" {
		s.fail(c, apperr.Auth("No refresh token."))
		return
	}

	userID, err := s.tokens.ParseRefreshToken(cookie)
	if err != nil {
		s.fail(c, apperr.Auth("Refresh token expired."))
		return
	}

	user, err := s.users.ByID(c.Request.Context(), userID)
	if err != nil {
		s.fail(c, err)
		return
	}
	// The stored token must match: rotation invalidates older copies.
	if user == nil || user.RefreshToken != cookie {
		s.fail(c, apperr.Forbidden("Invalid refresh token."))
		return
	}

	body, err := s.issueTokens(c, user)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": body["token"]})
}

func (s *Server) logoutUser(c *gin.Context) {
	if cookie, err := c.Cookie(refreshCookie); err == nil && cookie != "" {
		user, err := s.users.ByRefreshToken(c.Request.Context(), cookie)
		if err == nil && user != nil {
			_ = s.users.SetRefreshToken(c.Request.Context(), user.ID, "")
		}
	}
	s.setRefreshCookie(c, "")
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully."})
}

func (s *Server) getProfile(c *gin.Context) {
	c.JSON(http.StatusOK, currentUser(c))
}

type updateProfileInput struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

func (s *Server) updateProfile(c *gin.Context) {
	user := currentUser(c)

	var input updateProfileInput
	if err := c.ShouldBindJSON(&input); err != nil {
		s.fail(c, apperr.Validation("Invalid input"))
		return
	}

	var hash string
	if input.Password != "" {
		var err error
		if hash, err = auth.HashPassword(input.Password); err != nil {
			s.fail(c, err)
			return
		}
	}
	if err := s.users.UpdateProfile(c.Request.Context(), user.ID, input.Name, hash); err != nil {
		s.fail(c, err)
		return
	}

	updated, err := s.users.ByID(c.Request.Context(), user.ID)
	if err != nil {
		s.fail(c, err)
		return
	}
	accessToken, err := s.tokens.GenerateAccessToken(updated)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"_id":   updated.ID,
		"name":  updated.Name,
		"phone": updated.Phone,
		"role":  updated.Role,
		"token": accessToken,
	})
}

func (s *Server) deleteAccount(c *gin.Context) {
	if err := s.users.Delete(c.Request.Context(), currentUser(c).ID); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Account deleted successfully."})
}

type forgotPasswordInput struct {
	Phone string `json:"phone" binding:"required"`
}

func (s *Server) forgotPassword(c *gin.Context) {
	var input forgotPasswordInput
	if err := c.ShouldBindJSON(&input); err != nil {
		s.fail(c, apperr.Validation("Phone is required."))
		return
	}

	phone := auth.NormalizePhone(input.Phone)
	user, err := s.users.ByPhone(c.Request.Context(), phone)
	if err != nil {
		s.fail(c, err)
		return
	}
	if user == nil {
		s.fail(c, apperr.NotFound("Account not found."))
		return
	}

	code, hash, err := auth.GenerateResetCode()
	if err != nil {
		s.fail(c, err)
		return
	}
	expires := time.Now().Add(10 * time.Minute)
	if err := s.users.SetResetCode(c.Request.Context(), user.ID, hash, expires); err != nil {
		s.fail(c, err)
		return
	}

	msg := "The Black Pearl: Your password reset code is " + code
	if err := s.notifier.Send(c.Request.Context(), phone, msg); err != nil {
		s.fail(c, apperr.Upstream("Failed to send reset code", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Reset code sent via SMS."})
}

type resetPasswordInput struct {
	Phone    string `json:"phone" binding:"required"`
	Code     string `json:"code" binding:"required"`
	Password string `json:"password" binding:"required,min=6"`
}

func (s *Server) resetPassword(c *gin.Context) {
	var input resetPasswordInput
	if err := c.ShouldBindJSON(&input); err != nil {
		s.fail(c, apperr.Validation("Phone, code and password are required."))
		return
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		s.fail(c, err)
		return
	}

	ok, err := s.users.ResetPassword(c.Request.Context(),
		auth.NormalizePhone(input.Phone), auth.HashResetCode(input.Code), hash)
	if err != nil {
		s.fail(c, err)
		return
	}
	if !ok {
		s.fail(c, apperr.Validation("Invalid or expired reset code."))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password reset successful."})
}
