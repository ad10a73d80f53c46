package routes

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"marketplace-server/models"
	"marketplace-server/types"
	"marketplace-server/utils"
)

func respondOK(c *gin.Context, status int, data interface{}, message string) {
	body := gin.H{"success": true, "data": data}
	if message != "" {
		body["message"] = message
	}
	c.JSON(status, body)
}

// respondError maps the error kind onto an HTTP status and the shared envelope
func respondError(c *gin.Context, err error) {
	status := statusForKind(types.KindOf(err))
	message := err.Error()
	var typed *types.Error
	if errors.As(err, &typed) && typed.Message != "" {
		message = typed.Message
	}
	if status == http.StatusInternalServerError {
		utils.GetLogger().Error("Request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err))
		message = "Internal server error"
	}
	c.JSON(status, gin.H{
		"success": false,
		"error":   http.StatusText(status),
		"message": message,
	})
}

func statusForKind(kind types.ErrorKind) int {
	switch kind {
	case types.KindValidation:
		return http.StatusBadRequest
	case types.KindAuth:
		return http.StatusForbidden
	case types.KindNotFound:
		return http.StatusNotFound
	case types.KindConflict, types.KindDuplicate, types.KindIllegalTransition:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func paramID(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, types.Validationf("paramID", "invalid id %q", c.Param("id"))
	}
	return uint(id), nil
}

func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(models.DefaultPageSize)))
	return models.NormalizePage(page, pageSize)
}

func bindJSON(c *gin.Context, op string, dst interface{}) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		if types.KindOf(err) != "" {
			return err
		}
		return types.Validationf(op, "invalid request body: %v", err)
	}
	return nil
}
