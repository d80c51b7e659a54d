package api

import (
	"log"
	"net/http"
	"os"

	"github.com/ailist-app/ailist-server/service/chat"
	"github.com/ailist-app/ailist-server/service/payment"
	"github.com/ailist-app/ailist-server/service/push"
	"github.com/ailist-app/ailist-server/service/user"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

type APIServer struct {
	address string
	db      *gorm.DB
}

func NewApiServer(address string, db *gorm.DB) *APIServer {
	return &APIServer{
		address: address,
		db:      db,
	}
}

func (s *APIServer) Run() error {
	router := mux.NewRouter()
	subrouter := router.PathPrefix("/api/v1").Subrouter()

	userHandler := user.NewHandler(s.db)
	userHandler.RegisterRoutes(subrouter)

	pushHandler := push.NewHandler(s.db, push.ConfigFromEnv())
	pushHandler.RegisterRoutes(subrouter)

	chatHandler := chat.NewHandler(s.db, chat.NewOpenAIClient(os.Getenv("OPENAI_API_KEY"), ""))
	chatHandler.RegisterRoutes(subrouter)

	paymentHandler := payment.NewHandler(s.db)
	paymentHandler.RegisterRoutes(subrouter)

	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
	)

	log.Println("Server running at", s.address)
	return http.ListenAndServe(s.address, cors(router))
}
