package api

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/nisitlab/room-booking-backend/internal/auth"
	"github.com/nisitlab/room-booking-backend/internal/booking"
	bookingHttp "github.com/nisitlab/room-booking-backend/internal/booking/http"
	"github.com/nisitlab/room-booking-backend/internal/room"
	roomHttp "github.com/nisitlab/room-booking-backend/internal/room/http"
	"github.com/nisitlab/room-booking-backend/internal/schedule"
	scheduleHttp "github.com/nisitlab/room-booking-backend/internal/schedule/http"
	"github.com/nisitlab/room-booking-backend/internal/user"
	userHttp "github.com/nisitlab/room-booking-backend/internal/user/http"
)

// Config carries the services the router wires into handlers.
type Config struct {
	IsProduction    bool
	ProdOrigins     string
	UserService     user.Service
	RoomService     room.Service
	BookingService  booking.Service
	ScheduleService schedule.Service
	JWTManager      *auth.JWTManager
}

// NewRouter initializes the HTTP router engine.
// It is responsible for assembling middleware (CORS, Logger, Auth) and registering routes for various modules.
func NewRouter(cfg Config) *gin.Engine {
	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global Middleware:
	// - Logger: Logs request information to the console.
	// - Recovery: Captures panics to prevent server crashes and returns a 500 error.
	r.Use(gin.Logger(), gin.Recovery())

	// Configure CORS (Cross-Origin Resource Sharing).
	corsConfig := cors.DefaultConfig()
	if cfg.IsProduction && cfg.ProdOrigins != "" {
		corsConfig.AllowOrigins = strings.Split(cfg.ProdOrigins, ",")
	} else {
		corsConfig.AllowOrigins = []string{
			"http://localhost:3000",
			"http://localhost:8081", // Swagger
		}
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	r.Use(cors.New(corsConfig))

	// authMiddleware: Validates if the request contains a valid JWT, then
	// checks the account is still active.
	authMiddleware := []gin.HandlerFunc{auth.AuthRequired(cfg.JWTManager), RequireActiveUser(cfg.UserService)}

	userHandler := userHttp.NewHandler(cfg.UserService)
	roomHandler := roomHttp.NewHandler(cfg.RoomService)
	bookingHandler := bookingHttp.NewHandler(cfg.BookingService)
	scheduleHandler := scheduleHttp.NewHandler(cfg.ScheduleService)

	// Register API routes under /v1
	v1 := r.Group("/v1")
	{
		userHttp.RegisterRoutes(v1, userHandler, authMiddleware...)
		roomHttp.RegisterRoutes(v1, roomHandler, authMiddleware...)
		bookingHttp.RegisterRoutes(v1, bookingHandler, authMiddleware...)
		scheduleHttp.RegisterRoutes(v1, scheduleHandler, authMiddleware...)
	}

	return r
}
