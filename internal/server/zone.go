package server

import (
	"github.com/gin-gonic/gin"
	zonedomain "github.com/rateshoplabs/rateshop/internal/zone/domain"
)

// @Summary      List zone mappings
// @Tags         zones
// @Produce      json
// @Param        carrier  query  string  true   "Carrier token"
// @Param        service  query  string  false  "Service code"
// @Success      200  {object}  DataResponse
// @Router       /admin/shipping-templates/zone-mappings [get]
func (s *Server) ListZoneMappings(c *gin.Context) {
	resp, err := s.zoneSvc.List(c.Request.Context(), c.Query("carrier"), c.Query("service"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, resp)
}

type setZoneMappingsRequest struct {
	Carrier     string                    `json:"carrier"`
	ServiceCode string                    `json:"service_code"`
	Mappings    []zonedomain.MappingInput `json:"mappings"`
}

// @Summary      Replace zone mappings
// @Description  Replace the full country-to-zone mapping set for a carrier+service
// @Tags         zones
// @Accept       json
// @Produce      json
// @Param        request body setZoneMappingsRequest true "Set Zone Mappings Request"
// @Success      200  {object}  DataResponse
// @Router       /admin/shipping-templates/zone-mappings [post]
func (s *Server) SetZoneMappings(c *gin.Context) {
	var req setZoneMappingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	count, err := s.zoneSvc.SetMappings(c.Request.Context(), req.Carrier, req.ServiceCode, req.Mappings)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, gin.H{"mappings": count})
}
