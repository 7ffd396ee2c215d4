package http

import "github.com/gin-gonic/gin"

// Register attaches project routes to the given router group. The ":id"
// parameter is shared with the settlement sub-resources on the same group.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.POST("", h.create)
	rg.GET("", h.list)
	rg.GET("/:id", h.get)
	rg.PATCH("/:id", h.update)
	rg.DELETE("/:id", h.delete)
}
