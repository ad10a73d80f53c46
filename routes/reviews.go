package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"marketplace-server/metrics"
	"marketplace-server/middleware"
	"marketplace-server/models"
	"marketplace-server/repository"
	"marketplace-server/types"
	"marketplace-server/utils"
)

type reviewHandler struct {
	store repository.Store
}

// RegisterReviewRoutes registers review submission and lookup
func RegisterReviewRoutes(router *gin.RouterGroup, store repository.Store) {
	h := &reviewHandler{store: store}

	router.POST("", middleware.RequireRole(models.RoleCustomer), h.create)
	router.GET("/request/:id", h.forRequest)
}

func (h *reviewHandler) create(c *gin.Context) {
	var input models.ReviewCreate
	if err := bindJSON(c, "CreateReview", &input); err != nil {
		respondError(c, err)
		return
	}

	userID, _ := middleware.CurrentUser(c)
	review, err := repository.NewLocalRepository(h.store, userID).CreateReview(c.Request.Context(), input)
	if err != nil {
		if kind := types.KindOf(err); kind != "" {
			metrics.RecordReview(string(kind))
		}
		respondError(c, err)
		return
	}

	metrics.RecordReview("ok")
	utils.GetLogger().Info("Review submitted",
		zap.Uint("request_id", review.RequestID),
		zap.Int("rating", review.Rating))
	respondOK(c, http.StatusCreated, review, "Review submitted")
}

func (h *reviewHandler) forRequest(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		respondError(c, err)
		return
	}
	if _, err := visibleRequest(c, h.store, "ReviewForRequest", id); err != nil {
		respondError(c, err)
		return
	}
	review, err := h.store.ReviewForRequest(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, review, "")
}
