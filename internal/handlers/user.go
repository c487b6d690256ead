package handlers

import (
	"net/http"

	"weather_favorites/internal/models"

	"github.com/gin-gonic/gin"
)

// @Summary      Update profile
// @Tags         user
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input  body      models.UpdateUserInput  true  "fields to change"
// @Success      200    {object}  models.PublicUser
// @Failure      400    {object}  map[string]string
// @Failure      401    {object}  map[string]string
// @Router       /api/user [patch]
func (h *Handler) updateUser(c *gin.Context) {
	p, ok := mustPrincipal(c)
	if !ok {
		return
	}
	var input models.UpdateUserInput
	if ok := h.bindJSONOrBadRequest(c, &input); !ok {
		return
	}

	u, err := h.services.UpdateUser(c.Request.Context(), p.ID, input)
	if err != nil {
		h.writeError(c, err, "user_update_failed", "user_id", p.ID)
		return
	}
	c.JSON(http.StatusOK, u)
}
