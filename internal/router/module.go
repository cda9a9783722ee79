package router

import "github.com/gin-gonic/gin"

// Module registers a feature's routes on the group it is given:
// /api/v1 for Add, the engine root for AddRoot.
type Module interface {
	Register(rg *gin.RouterGroup)
}
