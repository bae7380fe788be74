package api

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/shiksha-labs/shiksha-api/database"
	"github.com/shiksha-labs/shiksha-api/utils/response"
)

type APIServer struct {
	app           *fiber.App
	listenAddress string
	store         database.Storage
}

func NewAPIServer(listenAddress string) *APIServer {
	return &APIServer{
		app: fiber.New(fiber.Config{
			AppName:      "Shiksha API",
			ErrorHandler: response.ErrorHandler,
		}),
		listenAddress: listenAddress,
	}
}

func (s *APIServer) GetEngine() *fiber.App {
	return s.app
}

func (s *APIServer) Run() error {
	log.Printf("Listening on %s", s.listenAddress)

	return s.app.Listen(s.listenAddress)
}
