package handlers

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

const jsonContentType = "application/json; charset=utf-8"

// parseCoords reads ?lat=&lon= as floats.
func parseCoords(c *gin.Context) (lat, lon float64, ok bool) {
	latStr, lonStr := strings.TrimSpace(c.Query("lat")), strings.TrimSpace(c.Query("lon"))
	if latStr == "" || lonStr == "" {
		return 0, 0, false
	}
	lat, errLat := strconv.ParseFloat(latStr, 64)
	lon, errLon := strconv.ParseFloat(lonStr, 64)
	if errLat != nil || errLon != nil || math.IsNaN(lat) || math.IsNaN(lon) {
		return 0, 0, false
	}
	return lat, lon, true
}

// @Summary      Forecast
// @Description  Open-Meteo forecast relayed verbatim.
// @Tags         weather
// @Produce      json
// @Param        lat  query     number  true  "latitude"
// @Param        lon  query     number  true  "longitude"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/weather/forecast [get]
func (h *Handler) forecast(c *gin.Context) {
	lat, lon, ok := parseCoords(c)
	if !ok {
		badRequest(c, "lat and lon must be numbers")
		return
	}

	raw, err := h.services.Forecast(c.Request.Context(), lat, lon)
	if err != nil {
		h.writeError(c, err, "weather_forecast_failed", "lat", lat, "lon", lon)
		return
	}
	c.Data(http.StatusOK, jsonContentType, raw)
}

// @Summary      Search places
// @Description  Open-Meteo geocoding relayed verbatim.
// @Tags         weather
// @Produce      json
// @Param        q    query     string  true  "place name"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/weather/search [get]
func (h *Handler) searchPlaces(c *gin.Context) {
	q := c.Query("q")
	if strings.TrimSpace(q) == "" {
		badRequest(c, "q is required")
		return
	}

	raw, err := h.services.Search(c.Request.Context(), q)
	if err != nil {
		h.writeError(c, err, "weather_search_failed", "q", q)
		return
	}
	c.Data(http.StatusOK, jsonContentType, raw)
}
