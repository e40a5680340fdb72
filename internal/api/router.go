// Package api is the thin HTTP adapter over the orchestration client: it
// deserializes requests, serializes responses, and maps the error taxonomy
// onto status codes.
package api

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/kubepilot/kubepilot/pkg/pilot"
)

func NewEngine(client *pilot.Client, logger *logrus.Logger) *gin.Engine {
	h := handler{pilot: client}

	g := gin.New()
	g.Use(gin.Recovery())
	g.Use(requestLogger(logger))

	g.GET("/check-cluster", h.checkCluster)
	g.POST("/deploy", h.deploy)
	g.GET("/health/:namespace/:name", h.health)
	g.GET("/namespaces", h.namespaces)
	g.GET("/deployments/:namespace", h.deployments)
	g.GET("/services/:namespace", h.services)
	g.GET("/pods/:namespace", h.pods)
	g.PUT("/update-keda/:namespace/:scaledObject", h.updateScaledObject)

	return g
}
