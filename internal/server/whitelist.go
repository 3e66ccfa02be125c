package server

import (
	"github.com/gin-gonic/gin"
	"github.com/rateshoplabs/rateshop/internal/whitelist"
)

// @Summary      List allowed countries
// @Tags         whitelist
// @Produce      json
// @Success      200  {object}  DataResponse
// @Router       /admin/shipping-templates/allowed-countries [get]
func (s *Server) ListAllowedCountries(c *gin.Context) {
	resp, err := s.whitelistSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, resp)
}

type setAllowedCountriesRequest struct {
	Countries []whitelist.CountryInput `json:"countries"`
}

// @Summary      Replace allowed countries
// @Description  Replace the storefront country whitelist wholesale
// @Tags         whitelist
// @Accept       json
// @Produce      json
// @Param        request body setAllowedCountriesRequest true "Set Allowed Countries Request"
// @Success      200  {object}  DataResponse
// @Router       /admin/shipping-templates/allowed-countries [post]
func (s *Server) SetAllowedCountries(c *gin.Context) {
	var req setAllowedCountriesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	count, err := s.whitelistSvc.SetAll(c.Request.Context(), req.Countries)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, gin.H{"countries": count})
}
