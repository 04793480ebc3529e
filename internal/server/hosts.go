package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/RedHatInsights/rhsm-subscriptions-sub008/internal/ingest"
	"github.com/RedHatInsights/rhsm-subscriptions-sub008/internal/inventory"
	obscontext "github.com/RedHatInsights/rhsm-subscriptions-sub008/internal/observability/context"
)

// HandleHostEvent accepts one created/updated host report and processes it
// on the lane owned by the host's identity.
func (s *Server) HandleHostEvent(c *gin.Context) {
	var host inventory.RawHost
	if err := c.ShouldBindJSON(&host); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if err := s.validateStruct(host); err != nil {
		AbortWithError(c, err)
		return
	}
	if host.Timestamp.IsZero() {
		host.Timestamp = s.clock.Now()
	}

	ctx := obscontext.WithOrgID(c.Request.Context(), host.OrgID)
	var result *ingest.Result
	err := s.dispatcher.Submit(ctx, ingest.LaneKey(host.OrgID, host.SubscriptionManagerID, host.InventoryID), func() error {
		var handleErr error
		result, handleErr = s.ingest.HandleHostEvent(ctx, host)
		return handleErr
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if result.Skipped {
		c.JSON(http.StatusOK, gin.H{"status": "skipped", "reason": result.SkipReason})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "events": len(result.Events)})
}

// HandleHostDelete accepts one host removal notification.
func (s *Server) HandleHostDelete(c *gin.Context) {
	var event inventory.DeleteEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if err := s.validateStruct(event); err != nil {
		AbortWithError(c, err)
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.clock.Now()
	}

	ctx := obscontext.WithOrgID(c.Request.Context(), event.OrgID)
	var result *ingest.Result
	err := s.dispatcher.Submit(ctx, ingest.LaneKey(event.OrgID, "", event.InventoryID), func() error {
		var handleErr error
		result, handleErr = s.ingest.HandleDeleteEvent(ctx, event)
		return handleErr
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "events": len(result.Events)})
}

func (s *Server) validateStruct(value any) error {
	err := s.validate.Struct(value)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		field := fieldErrs[0].Field()
		return newValidationError(field, "required", field+" is required")
	}
	return invalidRequestError()
}
