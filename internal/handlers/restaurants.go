package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/platewise/platewise-backend/internal/repos"
	"github.com/platewise/platewise-backend/internal/services"
)

type RestaurantsHandler struct {
	restaurantRepo repos.RestaurantRepo
	dietSvc        services.DietService
}

func NewRestaurantsHandler(restaurantRepo repos.RestaurantRepo, dietSvc services.DietService) *RestaurantsHandler {
	return &RestaurantsHandler{restaurantRepo: restaurantRepo, dietSvc: dietSvc}
}

// GET /api/restaurants
func (h *RestaurantsHandler) ListRestaurants(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	filter := repos.RestaurantFilter{
		Cuisine:    c.Query("cuisine"),
		City:       c.Query("city"),
		Query:      c.Query("q"),
		ActiveOnly: c.DefaultQuery("include_inactive", "false") != "true",
	}
	rows, err := h.restaurantRepo.List(c.Request.Context(), nil, filter, limit)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "restaurants_list_failed", err)
		return
	}
	RespondOK(c, gin.H{"restaurants": rows})
}

// GET /api/restaurants/:id
func (h *RestaurantsHandler) GetRestaurant(c *gin.Context) {
	restID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_restaurant_id", err)
		return
	}
	rest, err := h.restaurantRepo.GetByIDWithMenu(c.Request.Context(), nil, restID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "restaurant_lookup_failed", err)
		return
	}
	if rest == nil {
		RespondError(c, http.StatusNotFound, "restaurant_not_found", errors.New("no such restaurant"))
		return
	}
	verdicts, err := h.dietSvc.VerdictsForRestaurant(c.Request.Context(), nil, restID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "diet_lookup_failed", err)
		return
	}
	RespondOK(c, gin.H{"restaurant": rest, "diets": verdicts})
}
