package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/botify-mailer/botify/docs"
	"github.com/botify-mailer/botify/pkg/metrics"
)

func NewHTTPServer(addr string, h *Handlers) *http.Server {
	r := gin.New()
	r.Use(gin.Recovery(), Observability())
	r.MaxMultipartMemory = maxUploadBytes

	r.GET("/healthz", h.Healthz)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	r.GET("/docs", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", docs.BotifySwaggerHTML)
	})
	r.GET("/docs/openapi.yaml", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/yaml; charset=utf-8", docs.BotifyOpenAPI)
	})

	bot := r.Group("/bot", Auth(h.Verifier))
	bot.GET("/list", h.ListBots)
	bot.POST("/create", h.CreateBot)
	bot.PUT("/update/:botId", h.UpdateBot)
	bot.DELETE("/delete/:botId", h.DeleteBot)
	bot.POST("/test-connection/:botId", h.TestConnection)
	bot.POST("/email-campaign/:botId", h.EmailCampaign)
	bot.GET("/campaign/:campaignId", h.CampaignStatus)

	return &http.Server{
		Addr:    addr,
		Handler: r,
	}
}
