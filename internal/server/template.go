package server

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	templatedomain "github.com/rateshoplabs/rateshop/internal/template/domain"
	"github.com/shopspring/decimal"
)

type upsertTemplateRequest struct {
	Mode        templatedomain.Mode `json:"mode"`
	CountryCode string              `json:"country_code"`
	Carrier     string              `json:"carrier"`
	ServiceCode string              `json:"service_code"`
	Zone        string              `json:"zone"`
	CountryName string              `json:"country_name"`
	Currency    string              `json:"currency"`
	Active      *bool               `json:"active"`
	Brackets    []bracketRequest    `json:"weight_brackets"`
	Surcharges  []surchargeRequest  `json:"surcharges"`
	Metadata    map[string]any      `json:"metadata"`
}

type bracketRequest struct {
	Kind       templatedomain.BracketKind `json:"kind"`
	Kg         int                        `json:"kg"`
	Price      decimal.Decimal            `json:"price"`
	MinKg      float64                    `json:"min_kg"`
	MaxKg      *float64                   `json:"max_kg"`
	PricePerKg decimal.Decimal            `json:"price_per_kg"`
	BasePrice  decimal.Decimal            `json:"base_price"`
}

type surchargeRequest struct {
	Name        string                       `json:"name"`
	Type        templatedomain.SurchargeType `json:"type"`
	Amount      *decimal.Decimal             `json:"amount"`
	Percent     *decimal.Decimal             `json:"percent"`
	ValidFrom   *time.Time                   `json:"valid_from"`
	ValidTo     *time.Time                   `json:"valid_to"`
	MinWeightKg *float64                     `json:"min_weight_kg"`
	MaxWeightKg *float64                     `json:"max_weight_kg"`
}

// @Summary      Upsert rate template
// @Description  Create or fully replace one rate template
// @Tags         templates
// @Accept       json
// @Produce      json
// @Param        request body upsertTemplateRequest true "Upsert Template Request"
// @Success      200  {object}  DataResponse
// @Router       /admin/shipping-templates [post]
func (s *Server) UpsertTemplate(c *gin.Context) {
	var req upsertTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	brackets := make([]templatedomain.BracketInput, 0, len(req.Brackets))
	for _, b := range req.Brackets {
		brackets = append(brackets, templatedomain.BracketInput{
			Kind:       b.Kind,
			Kg:         b.Kg,
			Price:      b.Price,
			MinKg:      b.MinKg,
			MaxKg:      b.MaxKg,
			PricePerKg: b.PricePerKg,
			BasePrice:  b.BasePrice,
		})
	}
	surcharges := make([]templatedomain.SurchargeInput, 0, len(req.Surcharges))
	for _, sc := range req.Surcharges {
		surcharges = append(surcharges, templatedomain.SurchargeInput{
			Name:        sc.Name,
			Type:        sc.Type,
			Amount:      sc.Amount,
			Percent:     sc.Percent,
			ValidFrom:   sc.ValidFrom,
			ValidTo:     sc.ValidTo,
			MinWeightKg: sc.MinWeightKg,
			MaxWeightKg: sc.MaxWeightKg,
		})
	}

	resp, err := s.templateSvc.Upsert(c.Request.Context(), templatedomain.UpsertRequest{
		Key: templatedomain.Key{
			Mode:        req.Mode,
			CountryCode: req.CountryCode,
			Carrier:     req.Carrier,
			ServiceCode: req.ServiceCode,
			Zone:        req.Zone,
		},
		CountryName: strings.TrimSpace(req.CountryName),
		Currency:    req.Currency,
		Active:      req.Active,
		Brackets:    brackets,
		Surcharges:  surcharges,
		Metadata:    req.Metadata,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, resp)
}

// @Summary      List rate templates
// @Tags         templates
// @Produce      json
// @Param        mode     query  string  false  "country or carrier"
// @Param        carrier  query  string  false  "Carrier token"
// @Param        service  query  string  false  "Service code"
// @Param        q        query  string  false  "Search term"
// @Success      200  {object}  DataResponse
// @Router       /admin/shipping-templates [get]
func (s *Server) ListTemplates(c *gin.Context) {
	var opts templatedomain.ListOptions
	if err := c.ShouldBindQuery(&opts); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.templateSvc.List(c.Request.Context(), opts)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, resp)
}

// @Summary      Get rate template
// @Tags         templates
// @Produce      json
// @Param        id   path      string  true  "Template ID"
// @Success      200  {object}  DataResponse
// @Router       /admin/shipping-templates/{id} [get]
func (s *Server) GetTemplate(c *gin.Context) {
	id, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.templateSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, resp)
}

type bulkDeleteRequest struct {
	Mode         templatedomain.Mode `json:"mode"`
	All          bool                `json:"all"`
	CountryCodes []string            `json:"country_codes"`
	Carrier      string              `json:"carrier"`
	ServiceCode  string              `json:"service_code"`
}

// @Summary      Bulk delete rate templates
// @Tags         templates
// @Accept       json
// @Produce      json
// @Param        request body bulkDeleteRequest true "Bulk Delete Request"
// @Success      200  {object}  DataResponse
// @Router       /admin/shipping-templates/bulk-delete [post]
func (s *Server) BulkDeleteTemplates(c *gin.Context) {
	var req bulkDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	deleted, err := s.templateSvc.BulkDelete(c.Request.Context(), templatedomain.BulkDeleteRequest{
		Mode:         req.Mode,
		All:          req.All,
		CountryCodes: req.CountryCodes,
		Carrier:      req.Carrier,
		ServiceCode:  req.ServiceCode,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, gin.H{"deleted": deleted})
}
