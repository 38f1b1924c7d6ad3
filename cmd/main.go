package main

import (
	"fmt"
	"log"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
)

// Version of the service
const version = "1.0.0"

func main() {
	log.Printf("===> Digital object manager service starting up <===")

	// Get config params and use them to init service context. Any issues are fatal
	cfg := LoadConfiguration()
	svc := InitializeService(version, cfg)

	log.Printf("INFO: setup routes...")
	gin.SetMode(gin.ReleaseMode)
	gin.DisableConsoleColor()
	router := gin.Default()
	router.MaxMultipartMemory = 32 << 20
	router.Use(gzip.Gzip(gzip.DefaultCompression))
	corsCfg := cors.DefaultConfig()
	corsCfg.AllowAllOrigins = true
	corsCfg.AllowCredentials = true
	corsCfg.AddAllowHeaders("Authorization")
	router.Use(cors.New(corsCfg))
	svc.addRoutes(router)

	portStr := fmt.Sprintf(":%d", cfg.Port)
	log.Printf("INFO: start service v%s on port %s", version, portStr)
	log.Fatal(router.Run(portStr))
}

func (svc *ServiceContext) addRoutes(router *gin.Engine) {
	router.GET("/", svc.getVersion)
	router.GET("/favicon.ico", svc.ignoreFavicon)
	router.GET("/version", svc.getVersion)
	router.GET("/healthcheck", svc.healthCheck)
	router.GET("/jobs/:id", svc.getJobStatus)

	router.GET("/dom", svc.domIndex)
	dom := router.Group("/dom/:repo")
	{
		dom.POST("/download", svc.requirePermission(viewRepositoryPerm), svc.archivesSpaceMiddleware, svc.domDownload)
		dom.POST("/update", svc.requirePermission(updateDigitalObjectPerm), svc.archivesSpaceMiddleware, svc.domUpdate)
	}
}
