package http

import (
	"github.com/gin-gonic/gin"

	"vaultai/internal/bootstrap"
	"vaultai/internal/transport/http/handler"
	"vaultai/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.ServerApp) *gin.Engine {
	gin.SetMode(app.Config.DevServer.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(middleware.CORS(app.Config.DevServer.AllowedOrigins))
	router.MaxMultipartMemory = 32 << 20

	healthHandler := handler.NewHealthHandler(app)
	fileHandler := handler.NewFileHandler(app.Corpus, app.Logger.Named("files"))
	var completer handler.Completer
	if app.Chat != nil {
		completer = app.Chat
	}
	askHandler := handler.NewAskHandler(
		app.Corpus,
		completer,
		app.Config.StreamDelay(),
		app.Config.DevServer.FragmentSize,
		app.Logger.Named("ask"),
	)
	transcribeHandler := handler.NewTranscribeHandler(app.Corpus)

	router.GET("/", healthHandler.Check)
	router.POST("/upload", fileHandler.Upload)
	router.POST("/ask", askHandler.Ask)
	router.POST("/transcribe", transcribeHandler.Transcribe)
	router.GET("/files", fileHandler.List)
	router.DELETE("/files/:filename", fileHandler.Delete)
	router.GET("/session-info", fileHandler.SessionInfo)
	router.POST("/clear-session", fileHandler.ClearSession)
	router.GET("/temp/:filename", fileHandler.Temp)

	return router
}
