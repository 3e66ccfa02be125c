package server

import (
	"github.com/gin-gonic/gin"
	quotedomain "github.com/rateshoplabs/rateshop/internal/quote/domain"
	templatedomain "github.com/rateshoplabs/rateshop/internal/template/domain"
)

// @Summary      Quote shipping
// @Description  Price one parcel for a destination country
// @Tags         shipping
// @Produce      json
// @Param        country_code  query  string  true   "ISO-2 country code"
// @Param        weight_kg     query  number  true   "Parcel weight in kilograms"
// @Param        mode          query  string  false  "country or carrier"
// @Param        carrier       query  string  false  "Carrier token (carrier mode)"
// @Param        service       query  string  false  "Service code (carrier mode)"
// @Success      200  {object}  DataResponse
// @Router       /public/shipping/quote [get]
func (s *Server) Quote(c *gin.Context) {
	var req quotedomain.Request
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.quoteSvc.Quote(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, resp)
}

// @Summary      List shippable countries
// @Tags         shipping
// @Produce      json
// @Param        mode     query  string  false  "country or carrier"
// @Param        carrier  query  string  false  "Carrier token (carrier mode)"
// @Param        service  query  string  false  "Service code (carrier mode)"
// @Success      200  {object}  DataResponse
// @Router       /public/shipping/countries [get]
func (s *Server) ListCountries(c *gin.Context) {
	var query struct {
		Mode        templatedomain.Mode `form:"mode"`
		Carrier     string              `form:"carrier"`
		ServiceCode string              `form:"service"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.quoteSvc.Countries(c.Request.Context(), query.Mode, query.Carrier, query.ServiceCode)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, resp)
}

// @Summary      List free-shipping countries
// @Tags         shipping
// @Produce      json
// @Success      200  {object}  DataResponse
// @Router       /public/shipping/free-countries [get]
func (s *Server) ListFreeCountries(c *gin.Context) {
	resp, err := s.quoteSvc.FreeCountries(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, resp)
}
