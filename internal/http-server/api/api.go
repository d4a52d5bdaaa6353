package api

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"

	"QuoteChat/internal/config"
	"QuoteChat/internal/http-server/handlers/chat"
	"QuoteChat/internal/http-server/handlers/errors"
	"QuoteChat/internal/http-server/middleware/authenticate"
	"QuoteChat/internal/http-server/middleware/throttle"
	"QuoteChat/internal/http-server/middleware/timeout"
	"QuoteChat/internal/lib/api/response"
	"QuoteChat/internal/lib/sl"
	"QuoteChat/internal/ws"
)

type Server struct {
	conf       *config.Config
	httpServer *http.Server
	log        *slog.Logger
}

type Handler interface {
	authenticate.Authenticate
	chat.Core
}

// NewRouter wires the relay endpoints. File links are signed and served
// without a session; everything else requires a bearer token.
func NewRouter(conf *config.Config, log *slog.Logger, handler Handler, hub *ws.Hub) http.Handler {
	limiter := throttle.NewLimiter(conf.Listen.RateLimit, conf.Listen.RateBurst)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: conf.Listen.CorsOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))
	router.Use(render.SetContentType(render.ContentTypeJSON))
	if conf.Listen.RequestTimeout > 0 {
		router.Use(timeout.Timeout(conf.Listen.RequestTimeout))
	}

	router.NotFound(errors.NotFound(log))
	router.MethodNotAllowed(errors.NotAllowed(log))

	router.Route("/api/v1", func(v1 chi.Router) {
		v1.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
			render.JSON(w, r, response.Ok("pong"))
		})
		v1.Get("/files/{file_id}", chat.DownloadFile(log, handler))

		v1.Group(func(r chi.Router) {
			r.Use(authenticate.New(log, handler))

			r.Route("/threads", func(r chi.Router) {
				r.Get("/", chat.ListThreads(log, handler))
				r.Post("/", chat.CreateThread(log, handler))
				r.Route("/{thread_id}", func(r chi.Router) {
					r.Get("/", chat.GetThread(log, handler))
					r.Get("/messages", chat.FetchMessages(log, handler))
					r.With(throttle.New(log, limiter)).Post("/messages", chat.SendMessage(log, handler))
					r.Put("/status", chat.SetStatus(log, handler))
					r.Get("/stream", chat.Stream(log, handler, hub))
				})
			})
		})
	})

	return router
}

func New(conf *config.Config, log *slog.Logger, handler Handler, hub *ws.Hub) error {

	server := Server{
		conf: conf,
		log:  log.With(sl.Module("api.server")),
	}

	httpLog := slog.NewLogLogger(log.Handler(), slog.LevelError)
	server.httpServer = &http.Server{
		Handler:  NewRouter(conf, log, handler, hub),
		ErrorLog: httpLog,
	}

	serverAddress := fmt.Sprintf("%s:%s", conf.Listen.BindIP, conf.Listen.Port)
	listener, err := net.Listen("tcp", serverAddress)
	if err != nil {
		return err
	}

	server.log.Info("starting api server", slog.String("address", serverAddress))

	return server.httpServer.Serve(listener)
}
