package handlers

import (
	"net/http"

	"weather_favorites/internal/models"

	"github.com/gin-gonic/gin"
)

// @Summary      Weather advice
// @Tags         ai
// @Accept       json
// @Produce      json
// @Param        input  body      models.AdviceInput  true  "question with optional weather and location"
// @Success      200    {object}  map[string]string
// @Failure      400    {object}  map[string]string
// @Failure      429    {object}  map[string]string
// @Failure      500    {object}  map[string]string
// @Router       /api/ai/weather-advice [post]
func (h *Handler) weatherAdvice(c *gin.Context) {
	var input models.AdviceInput
	if ok := h.bindJSONOrBadRequest(c, &input); !ok {
		return
	}

	answer, err := h.services.Advise(c.Request.Context(), input)
	if err != nil {
		h.writeError(c, err, "ai_advice_failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"answer": answer})
}

// @Summary      Suggested questions
// @Tags         ai
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /api/ai/questions [get]
func (h *Handler) adviceQuestions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"categories": h.services.Questions()})
}
