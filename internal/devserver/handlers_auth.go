package devserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/dharsanguruparan/CircularNest/internal/model"
)

type signupBody struct {
	Email    string     `json:"email" binding:"required,email"`
	Password string     `json:"password" binding:"required,min=6"`
	Role     model.Role `json:"role"`
	model.Institution
}

type loginBody struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) handleSignup(c *gin.Context) {
	var body signupBody
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, http.StatusBadRequest, "A valid email and a password of at least 6 characters are required")
		return
	}
	if body.Role == model.RoleAdmin {
		fail(c, http.StatusForbidden, "Admin registration is disabled")
		return
	}
	hash, err := hashPassword(body.Password)
	if err != nil {
		fail(c, http.StatusInternalServerError, "Signup failed")
		return
	}
	user := model.User{ID: uuid.NewString(), Email: body.Email, Role: model.RoleUser}
	body.Institution.Apply(&user)
	if _, err := s.store.CreateUser(user, hash); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			fail(c, http.StatusBadRequest, "User already exists")
			return
		}
		fail(c, http.StatusInternalServerError, "Signup failed")
		return
	}
	respond(c, http.StatusCreated, gin.H{"message": "User created successfully"})
}

// handleLogin answers bad credentials with 400 rather than 401 so a failed
// login is not mistaken for an expired session.
func (s *Server) handleLogin(c *gin.Context) {
	var body loginBody
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, http.StatusBadRequest, "Email and password are required")
		return
	}
	user, hash, err := s.store.Credentials(body.Email)
	if err != nil || bcrypt.CompareHashAndPassword(hash, []byte(body.Password)) != nil {
		fail(c, http.StatusBadRequest, "Invalid credentials")
		return
	}
	token, err := s.tokens.issue(user)
	if err != nil {
		fail(c, http.StatusInternalServerError, "Login failed")
		return
	}
	respond(c, http.StatusOK, gin.H{"token": token, "user": user})
}

func (s *Server) handleMe(c *gin.Context) {
	user, err := s.store.User(callerID(c))
	if err != nil {
		fail(c, http.StatusUnauthorized, "User not found")
		return
	}
	respond(c, http.StatusOK, gin.H{"user": user})
}

func (s *Server) handleProfile(c *gin.Context) {
	var body model.Institution
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, http.StatusBadRequest, "Invalid profile update")
		return
	}
	user, err := s.store.UpdateProfile(callerID(c), body)
	if err != nil {
		fail(c, http.StatusNotFound, "User not found")
		return
	}
	respond(c, http.StatusOK, gin.H{"user": user, "message": "Profile updated"})
}
