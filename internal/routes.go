package internal

import (
	"net/http"
	"songbook/internal/controllers"
	"songbook/internal/providers"
)

func InitRoutes(playerController *controllers.PlayerController) providers.RouterProviderInterface {
	routers := providers.NewRouterProvider()

	routers.Post("/api/mount", http.HandlerFunc(playerController.Mount))
	routers.Get("/api/gate", http.HandlerFunc(playerController.Gate))
	routers.Post("/api/gate/submit", http.HandlerFunc(playerController.Submit))
	routers.Post("/api/playback/event", http.HandlerFunc(playerController.Event))
	routers.Post("/api/playback/select", http.HandlerFunc(playerController.Select))
	routers.Post("/api/playback/toggle", http.HandlerFunc(playerController.Toggle))
	routers.Post("/api/playback/unload", http.HandlerFunc(playerController.Unload))
	routers.Post("/api/playback/reset", http.HandlerFunc(playerController.Reset))
	return routers
}
