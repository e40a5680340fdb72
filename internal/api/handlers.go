package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kubepilot/kubepilot/internal"
	"github.com/kubepilot/kubepilot/pkg/pilot"
)

type handler struct {
	pilot *pilot.Client
}

func (h handler) checkCluster(c *gin.Context) {
	message, err := h.pilot.CheckCluster(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": message})
}

func (h handler) deploy(c *gin.Context) {
	var request pilot.DeploymentRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		abortWithError(c, internal.ValidationError(fmt.Sprintf("invalid deployment request: %v", err)))
		return
	}

	requestEntry(c).Infof("deploying %s to namespace %s", request.Name, request.Namespace)

	if err := h.pilot.Deploy(c.Request.Context(), request); err != nil {
		requestEntry(c).Errorf("failed to deploy %s: %v", request.Name, err)
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": fmt.Sprintf("Deployment %s created successfully.", request.Name)})
}

func (h handler) health(c *gin.Context) {
	status, err := h.pilot.Health(c.Request.Context(), c.Param("namespace"), c.Param("name"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h handler) namespaces(c *gin.Context) {
	names, err := h.pilot.Namespaces(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"namespaces": names})
}

func (h handler) deployments(c *gin.Context) {
	names, err := h.pilot.Workloads(c.Request.Context(), c.Param("namespace"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deployments": names})
}

func (h handler) services(c *gin.Context) {
	names, err := h.pilot.Endpoints(c.Request.Context(), c.Param("namespace"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"services": names})
}

func (h handler) pods(c *gin.Context) {
	names, err := h.pilot.Pods(c.Request.Context(), c.Param("namespace"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pods": names})
}

func (h handler) updateScaledObject(c *gin.Context) {
	params, err := updateParams(c)
	if err != nil {
		abortWithError(c, err)
		return
	}

	requestEntry(c).Infof("updating scaled object %s in namespace %s", params.Name, params.Namespace)

	if err := h.pilot.UpdateScaledObject(c.Request.Context(), params); err != nil {
		requestEntry(c).Errorf("failed to update scaled object %s: %v", params.Name, err)
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("ScaledObject %q in namespace %q updated successfully.", params.Name, params.Namespace),
		"details": gin.H{
			"min_replicas": params.MinReplicas,
			"max_replicas": params.MaxReplicas,
			"event_source": gin.H{"type": params.TriggerType, "metadata": params.TriggerMetadata},
		},
	})
}

func updateParams(c *gin.Context) (pilot.UpdateScaledObjectParams, error) {
	var params pilot.UpdateScaledObjectParams

	minReplicas, err := strconv.Atoi(c.Query("minReplicas"))
	if err != nil {
		return params, internal.ValidationError("minReplicas must be an integer")
	}
	maxReplicas, err := strconv.Atoi(c.Query("maxReplicas"))
	if err != nil {
		return params, internal.ValidationError("maxReplicas must be an integer")
	}

	metadata, err := pilot.ParseTriggerMetadata(c.Query("eventSourceMetadata"))
	if err != nil {
		return params, err
	}

	return pilot.UpdateScaledObjectParams{
		Namespace:       c.Param("namespace"),
		Name:            c.Param("scaledObject"),
		MinReplicas:     minReplicas,
		MaxReplicas:     maxReplicas,
		TriggerType:     c.Query("eventSourceType"),
		TriggerMetadata: metadata,
	}, nil
}

// Status granularity is deliberately coarse: 404 for absent remote objects or
// credentials, 500 for everything else.
func abortWithError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, internal.ErrNotFound) || errors.Is(err, internal.ErrCredentialsNotFound) {
		status = http.StatusNotFound
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}
