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

// Notifier pushes a change to the other party of a request
type Notifier interface {
	NotifyRequestUpdate(req *models.ServiceRequest, actorID uint) bool
}

type requestHandler struct {
	store    repository.Store
	notifier Notifier
}

// RegisterServiceRequestRoutes registers the request lifecycle routes
func RegisterServiceRequestRoutes(router *gin.RouterGroup, store repository.Store, notifier Notifier) {
	h := &requestHandler{store: store, notifier: notifier}

	router.GET("/mine", middleware.RequireRole(models.RoleCustomer), h.listMine)
	router.GET("/provider", middleware.RequireRole(models.RoleProvider), h.listForProvider)
	router.GET("", middleware.RequireRole(models.RoleAdmin), h.listAll)
	router.GET("/:id", h.get)
	router.POST("", middleware.RequireRole(models.RoleCustomer), h.create)
	router.PUT("/:id/status", middleware.RequireRole(models.RoleProvider), h.updateStatus)
	router.PUT("/:id/complete", middleware.RequireRole(models.RoleProvider), h.complete)
}

// repoFor binds the store to the authenticated user
func (h *requestHandler) repoFor(c *gin.Context) (*repository.LocalRepository, uint) {
	userID, _ := middleware.CurrentUser(c)
	return repository.NewLocalRepository(h.store, userID), userID
}

func (h *requestHandler) listMine(c *gin.Context) {
	h.list(c, models.RoleCustomer)
}

func (h *requestHandler) listForProvider(c *gin.Context) {
	h.list(c, models.RoleProvider)
}

func (h *requestHandler) listAll(c *gin.Context) {
	h.list(c, models.RoleAdmin)
}

func (h *requestHandler) list(c *gin.Context, role models.Role) {
	repo, _ := h.repoFor(c)
	page, pageSize := pageParams(c)
	result, err := repo.FetchMine(c.Request.Context(), role, page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, result, "")
}

func (h *requestHandler) get(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		respondError(c, err)
		return
	}
	req, err := visibleRequest(c, h.store, "Get", id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, req, "")
}

func (h *requestHandler) create(c *gin.Context) {
	var input models.ServiceRequestCreate
	if err := bindJSON(c, "Create", &input); err != nil {
		respondError(c, err)
		return
	}

	repo, userID := h.repoFor(c)
	req, err := repo.Create(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.GetLogger().Info("Service request created",
		zap.Uint("request_id", req.ID),
		zap.Uint("customer_id", userID),
		zap.Uint("provider_id", req.ProviderID))
	h.notify(req, userID)
	respondOK(c, http.StatusCreated, req, "Service request created")
}

func (h *requestHandler) updateStatus(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		respondError(c, err)
		return
	}
	var body models.StatusUpdate
	if err := bindJSON(c, "UpdateStatus", &body); err != nil {
		respondError(c, err)
		return
	}

	repo, userID := h.repoFor(c)
	req, err := repo.UpdateStatus(c.Request.Context(), id, body.Status)
	recordTransition(body.Status, err)
	if err != nil {
		respondError(c, err)
		return
	}

	h.notify(req, userID)
	respondOK(c, http.StatusOK, req, "Status updated")
}

func (h *requestHandler) complete(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		respondError(c, err)
		return
	}
	var body models.CompletionUpdate
	if err := bindJSON(c, "Complete", &body); err != nil {
		respondError(c, err)
		return
	}

	repo, userID := h.repoFor(c)
	req, err := repo.Complete(c.Request.Context(), id, body.FinalPrice)
	recordTransition(models.StatusCompleted, err)
	if err != nil {
		respondError(c, err)
		return
	}

	h.notify(req, userID)
	respondOK(c, http.StatusOK, req, "Service request completed")
}

// recordTransition counts a status change attempt by outcome kind
func recordTransition(to models.Status, err error) {
	label := to.String()
	if !to.Valid() {
		label = "invalid"
	}
	if err == nil {
		metrics.RecordTransition(label, "ok")
		return
	}
	kind := types.KindOf(err)
	if kind == "" {
		kind = types.KindServer
	}
	metrics.RecordTransition(label, string(kind))
}

func (h *requestHandler) notify(req *models.ServiceRequest, actorID uint) {
	if h.notifier == nil {
		return
	}
	h.notifier.NotifyRequestUpdate(req, actorID)
}

// visibleRequest loads a request the caller is a party to. Admins see everything.
func visibleRequest(c *gin.Context, store repository.Store, op string, id uint) (*models.ServiceRequest, error) {
	req, err := store.Get(c.Request.Context(), id)
	if err != nil {
		return nil, err
	}
	userID, role := middleware.CurrentUser(c)
	if role != models.RoleAdmin && !req.IsParty(userID) {
		return nil, types.NewError(types.KindAuth, op, "you are not a party to this request")
	}
	return req, nil
}
