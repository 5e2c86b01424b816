package app

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/nisitlab/room-booking-backend/internal/api"
	"github.com/nisitlab/room-booking-backend/internal/auth"
	"github.com/nisitlab/room-booking-backend/internal/booking"
	"github.com/nisitlab/room-booking-backend/internal/notify"
	"github.com/nisitlab/room-booking-backend/internal/room"
	"github.com/nisitlab/room-booking-backend/internal/schedule"
	"github.com/nisitlab/room-booking-backend/internal/user"
)

// Config holds the dependencies and settings required to start the application.
type Config struct {
	IsProduction     bool
	ProdOrigins      string
	DBPool           *pgxpool.Pool
	Logger           *zap.Logger
	Notifier         notify.Notifier
	JWTSecret        string
	JWTTTL           time.Duration
	BookingRetention time.Duration
}

// Container holds the initialized components that are needed externally.
type Container struct {
	Router         *gin.Engine
	JWTManager     *auth.JWTManager
	BookingService booking.Service
}

// NewContainer initializes all modules and returns the container.
func NewContainer(cfg Config) *Container {
	// Init Components
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL)

	// User Module
	userRepo := user.NewPgxRepository(cfg.DBPool)
	userService := user.NewService(userRepo)

	// Room Module
	roomRepo := room.NewPgxRepository(cfg.DBPool)
	roomService := room.NewService(roomRepo)

	// Schedule repository first: the booking history view reads closed
	// occurrences through it.
	scheduleRepo := schedule.NewPgxRepository(cfg.DBPool)

	// Booking Module
	bookingRepo := booking.NewPgxRepository(cfg.DBPool)
	bookingService := booking.NewService(bookingRepo, roomRepo, userService, schedule.NewHistorySource(scheduleRepo), cfg.Notifier, cfg.Logger, cfg.BookingRetention)

	// Schedule Module
	scheduleService := schedule.NewService(scheduleRepo, bookingRepo, userService, cfg.Notifier, cfg.Logger)

	// API Router Config
	routerParams := api.Config{
		IsProduction:    cfg.IsProduction,
		ProdOrigins:     cfg.ProdOrigins,
		UserService:     userService,
		RoomService:     roomService,
		BookingService:  bookingService,
		ScheduleService: scheduleService,
		JWTManager:      jwtManager,
	}

	// Router
	router := api.NewRouter(routerParams)

	return &Container{
		Router:         router,
		JWTManager:     jwtManager,
		BookingService: bookingService,
	}
}
