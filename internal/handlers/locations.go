package handlers

import (
	"net/http"
	"strconv"

	"weather_favorites/internal/models"

	"github.com/gin-gonic/gin"
)

// pathID parses a positive integer path parameter or writes a 400.
func pathID(c *gin.Context, name string) (int, bool) {
	v, err := strconv.Atoi(c.Param(name))
	if err != nil || v <= 0 {
		badRequest(c, "Invalid "+name)
		return 0, false
	}
	return v, true
}

// @Summary      List favorites
// @Tags         locations
// @Produce      json
// @Security     BearerAuth
// @Param        userId  path      int  true  "owner id"
// @Success      200     {array}   models.Location
// @Failure      400     {object}  map[string]string
// @Failure      401     {object}  map[string]string
// @Failure      403     {object}  map[string]string
// @Router       /api/locations/{userId} [get]
func (h *Handler) listLocations(c *gin.Context) {
	userID, ok := pathID(c, "userId")
	if !ok {
		return
	}

	list, err := h.services.List(c.Request.Context(), userID)
	if err != nil {
		h.writeError(c, err, "locations_list_failed", "user_id", userID)
		return
	}
	c.JSON(http.StatusOK, list)
}

// @Summary      Save favorite
// @Description  Returns 201 for a new favorite and 200 with the stored row when the coordinates were already saved.
// @Tags         locations
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input  body      models.CreateLocationInput  true  "location"
// @Success      201    {object}  models.Location
// @Success      200    {object}  models.Location
// @Failure      400    {object}  map[string]string
// @Failure      401    {object}  map[string]string
// @Failure      403    {object}  map[string]string
// @Router       /api/locations [post]
func (h *Handler) createLocation(c *gin.Context) {
	var input models.CreateLocationInput
	if ok := h.bindJSONOrBadRequest(c, &input); !ok {
		return
	}

	loc, created, err := h.services.Save(c.Request.Context(), input)
	if err != nil {
		h.writeError(c, err, "locations_save_failed", "name", input.Name)
		return
	}
	if !created {
		c.JSON(http.StatusOK, loc)
		return
	}
	c.JSON(http.StatusCreated, loc)
}

// @Summary      Delete favorite
// @Tags         locations
// @Security     BearerAuth
// @Param        id      path  int  true  "location id"
// @Param        userId  path  int  true  "owner id"
// @Success      204
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/locations/{id}/{userId} [delete]
func (h *Handler) deleteLocation(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	userID, ok := pathID(c, "userId")
	if !ok {
		return
	}

	deleted, err := h.services.Delete(c.Request.Context(), id, userID)
	if err != nil {
		h.writeError(c, err, "locations_delete_failed", "location_id", id, "user_id", userID)
		return
	}
	if !deleted {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "Location not found"})
		return
	}
	c.Status(http.StatusNoContent)
}
