package routes

import (
	"github.com/courtside/ladder-system/handlers"
	"github.com/courtside/ladder-system/middleware"
	"github.com/courtside/ladder-system/models"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware" // Alias to avoid conflict
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Handlers struct {
	Auth        *handlers.AuthHandler
	Tournament  *handlers.TournamentHandler
	Participant *handlers.ParticipantHandler
	Match       *handlers.MatchHandler
	Court       *handlers.CourtHandler
	WebSocket   *handlers.WebSocketHandler
}

func SetupRoutes(h Handlers, jwtSecret []byte) *chi.Mux {
	router := chi.NewRouter()

	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authenticate := middleware.Authenticate(jwtSecret)

	router.Get("/swagger/*", httpSwagger.WrapHandler)

	router.Post("/auth/register", h.Auth.Register)
	router.Post("/auth/login", h.Auth.Login)

	router.Group(func(r chi.Router) {
		r.Use(authenticate)
		r.Get("/players/me", h.Auth.Me)
		r.Get("/players/me/matches", h.Match.ListMine)
	})

	router.Route("/tournaments", func(r chi.Router) {
		// Публичные маршруты для просмотра турниров.
		r.Get("/", h.Tournament.List)
		r.Get("/{tournamentID}", h.Tournament.GetByID)
		r.Get("/{tournamentID}/standings", h.Tournament.Standings)
		r.Get("/{tournamentID}/participants", h.Participant.ListByTournament)
		r.Get("/{tournamentID}/matches", h.Match.ListByTournament)

		// Защищённые маршруты.
		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			r.Post("/", h.Tournament.Create)
			r.Patch("/{tournamentID}/status", h.Tournament.UpdateStatus)
			r.Post("/{tournamentID}/logo", h.Tournament.UploadLogo)
			r.Post("/{tournamentID}/invite", h.Tournament.InvitePlayer)

			r.Post("/{tournamentID}/participants", h.Participant.Join)
			r.Post("/{tournamentID}/matches", h.Match.Propose)
		})

		// Удаление турнира - только администратор.
		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(middleware.Authorize(models.RoleAdmin))
			r.Delete("/{tournamentID}", h.Tournament.Delete)
		})
	})

	router.Route("/participants", func(r chi.Router) {
		r.Get("/{participantID}", h.Participant.GetByID)
	})

	router.Route("/matches", func(r chi.Router) {
		r.Get("/{matchID}", h.Match.GetByID)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			r.Post("/{matchID}/respond", h.Match.Respond)
			r.Post("/{matchID}/score", h.Match.ReportScore)
			r.Post("/{matchID}/games", h.Match.ReportGameScores)
			r.Post("/{matchID}/confirm", h.Match.ConfirmResult)
		})
	})

	router.Route("/courts", func(r chi.Router) {
		r.Get("/", h.Court.List)
		r.Get("/{courtID}", h.Court.GetByID)

		// Создание и изменение кортов - только администратор.
		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(middleware.Authorize(models.RoleAdmin))

			r.Post("/", h.Court.Create)
			r.Put("/{courtID}", h.Court.Update)
			r.Delete("/{courtID}", h.Court.Delete)
			r.Post("/{courtID}/photo", h.Court.UploadPhoto)
		})
	})

	router.Get("/ws/tournaments/{tournamentID}", h.WebSocket.ServeTournament)

	return router
}
