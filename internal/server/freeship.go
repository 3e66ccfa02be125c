package server

import (
	"github.com/gin-gonic/gin"
	"github.com/rateshoplabs/rateshop/internal/freeship"
)

// @Summary      List free-shipping settings
// @Tags         free-shipping
// @Produce      json
// @Success      200  {object}  DataResponse
// @Router       /admin/shipping-templates/free-shipping [get]
func (s *Server) ListFreeShipping(c *gin.Context) {
	resp, err := s.freeshipSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, resp)
}

type setFreeShippingRequest struct {
	Settings []freeship.SettingInput `json:"settings"`
}

// @Summary      Replace free-shipping settings
// @Description  Replace the full free-shipping override set
// @Tags         free-shipping
// @Accept       json
// @Produce      json
// @Param        request body setFreeShippingRequest true "Set Free Shipping Request"
// @Success      200  {object}  DataResponse
// @Router       /admin/shipping-templates/free-shipping [post]
func (s *Server) SetFreeShipping(c *gin.Context) {
	var req setFreeShippingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	count, err := s.freeshipSvc.SetAll(c.Request.Context(), req.Settings)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, gin.H{"countries": count})
}
