package internal

import (
	"net/http"
	"tally/internal/controllers"
	"tally/internal/providers"
	"tally/internal/structures"
)

func InitRoutes(apiController *controllers.ApiController, streamController *controllers.StreamController, conf *structures.Config, logger providers.Logger) providers.RouterProviderInterface {
	routers := providers.NewRouterProvider()
	routers.Use(
		providers.RequestIDMiddleware,
		providers.AccessLogMiddleware(logger),
		providers.AuthMiddleware(conf),
	)

	routers.Get("/counter", http.HandlerFunc(apiController.GetCounter))
	routers.Post("/counter/increment", http.HandlerFunc(apiController.Increment))
	routers.Post("/counter/reset", http.HandlerFunc(apiController.Reset))
	routers.Post("/presence/heartbeat", http.HandlerFunc(apiController.Heartbeat))
	routers.Get("/presence/online", http.HandlerFunc(apiController.GetOnline))
	routers.Get("/activity/recent", http.HandlerFunc(apiController.GetRecent))
	routers.Get("/dashboard", http.HandlerFunc(apiController.GetDashboard))
	if conf.Stream.Enabled {
		routers.Any("/stream", http.HandlerFunc(streamController.Subscribe))
	}
	return routers
}
