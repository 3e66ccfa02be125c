package server

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rateshoplabs/rateshop/internal/shipfile"
	templatedomain "github.com/rateshoplabs/rateshop/internal/template/domain"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// @Summary      Import rate templates
// @Description  Upload an XLSX workbook of rate templates
// @Tags         templates
// @Accept       multipart/form-data
// @Produce      json
// @Param        file     formData  file    true   "Workbook"
// @Param        mode     formData  string  true   "country or carrier"
// @Param        replace  formData  bool    false  "Delete in-scope templates absent from the file"
// @Param        carrier  formData  string  false  "Carrier token (carrier mode)"
// @Param        service  formData  string  false  "Service code (carrier mode)"
// @Success      200  {object}  DataResponse
// @Router       /admin/shipping-templates/import [post]
func (s *Server) ImportTemplates(c *gin.Context) {
	var form struct {
		Mode        templatedomain.Mode `form:"mode"`
		Replace     bool                `form:"replace"`
		Carrier     string              `form:"carrier"`
		ServiceCode string              `form:"service"`
		Currency    string              `form:"currency"`
	}
	if err := c.ShouldBind(&form); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	f, err := fileHeader.Open()
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.shipfileSvc.Import(c.Request.Context(), data, shipfile.ImportOptions{
		Mode:        form.Mode,
		Replace:     form.Replace,
		Carrier:     form.Carrier,
		ServiceCode: form.ServiceCode,
		Currency:    form.Currency,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, resp)
}

// @Summary      Export rate templates
// @Tags         templates
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param        mode     query  string  false  "country or carrier"
// @Param        carrier  query  string  false  "Carrier token"
// @Param        service  query  string  false  "Service code"
// @Param        q        query  string  false  "Search term"
// @Success      200
// @Router       /admin/shipping-templates/export [get]
func (s *Server) ExportTemplates(c *gin.Context) {
	var query struct {
		Mode        templatedomain.Mode `form:"mode"`
		Carrier     string              `form:"carrier"`
		ServiceCode string              `form:"service"`
		Search      string              `form:"q"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	buf, err := s.shipfileSvc.Export(c.Request.Context(), shipfile.ExportOptions{
		Mode:        query.Mode,
		Carrier:     query.Carrier,
		ServiceCode: query.ServiceCode,
		Search:      query.Search,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	filename := fmt.Sprintf("shipping-rates-%s.xlsx", time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// @Summary      Download starter workbook
// @Tags         templates
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param        mode  query  string  false  "country or carrier"
// @Success      200
// @Router       /admin/shipping-templates/sample [get]
func (s *Server) SampleWorkbook(c *gin.Context) {
	mode := templatedomain.Mode(c.Query("mode"))

	buf, err := s.shipfileSvc.Sample(mode)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="shipping-rates-sample.xlsx"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
