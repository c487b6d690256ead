package handlers

import (
	"net/http"

	"weather_favorites/internal/models"

	"github.com/gin-gonic/gin"
)

// @Summary      Register
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        input  body      models.RegisterInput  true  "new account"
// @Success      201    {object}  service.Session
// @Failure      400    {object}  map[string]string
// @Router       /api/auth/register [post]
func (h *Handler) register(c *gin.Context) {
	var input models.RegisterInput
	if ok := h.bindJSONOrBadRequest(c, &input); !ok {
		return
	}

	sess, err := h.services.Register(c.Request.Context(), input)
	if err != nil {
		h.writeError(c, err, "auth_register_failed", "username", input.Username)
		return
	}
	if h.log != nil {
		h.log.Infow("auth_registered", "user_id", sess.User.ID, "username", sess.User.Username)
	}
	c.JSON(http.StatusCreated, sess)
}

// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        input  body      models.LoginInput  true  "credentials"
// @Success      200    {object}  service.Session
// @Failure      400    {object}  map[string]string
// @Failure      401    {object}  map[string]string
// @Router       /api/auth/login [post]
func (h *Handler) login(c *gin.Context) {
	var input models.LoginInput
	if ok := h.bindJSONOrBadRequest(c, &input); !ok {
		return
	}

	sess, err := h.services.Login(c.Request.Context(), input)
	if err != nil {
		h.writeError(c, err, "auth_login_failed", "username", input.Username)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// @Summary      Current user
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  models.PublicUser
// @Failure      401  {object}  map[string]string
// @Router       /api/auth/me [get]
func (h *Handler) me(c *gin.Context) {
	p, ok := mustPrincipal(c)
	if !ok {
		return
	}
	u, err := h.services.Me(c.Request.Context(), p.ID)
	if err != nil {
		h.writeError(c, err, "auth_me_failed", "user_id", p.ID)
		return
	}
	c.JSON(http.StatusOK, u)
}

// @Summary      Logout
// @Description  Revokes every token issued to the caller.
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Router       /api/auth/logout [post]
func (h *Handler) logout(c *gin.Context) {
	p, ok := mustPrincipal(c)
	if !ok {
		return
	}
	if err := h.services.Logout(c.Request.Context(), p.ID); err != nil {
		h.writeError(c, err, "auth_logout_failed", "user_id", p.ID)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

// @Summary      Change password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input  body      models.ChangePasswordInput  true  "current and new password"
// @Success      200    {object}  map[string]string
// @Failure      400    {object}  map[string]string
// @Failure      401    {object}  map[string]string
// @Router       /api/auth/change-password [post]
func (h *Handler) changePassword(c *gin.Context) {
	p, ok := mustPrincipal(c)
	if !ok {
		return
	}
	var input models.ChangePasswordInput
	if ok := h.bindJSONOrBadRequest(c, &input); !ok {
		return
	}

	if err := h.services.ChangePassword(c.Request.Context(), p.ID, input); err != nil {
		h.writeError(c, err, "auth_change_password_failed", "user_id", p.ID)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password changed successfully"})
}
