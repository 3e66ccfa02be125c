package server

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerMetrics(r *gin.Engine) {
	if !s.cfg.Metrics.Enabled {
		return
	}
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
