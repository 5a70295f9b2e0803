// Package server exposes the board over HTTP: project/task CRUD, the file
// browser, context files, and the chat API backed by the lifecycle engine.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/openclaw/board/internal/activity"
	"github.com/openclaw/board/internal/board"
	"github.com/openclaw/board/internal/chat"
	"github.com/openclaw/board/internal/gateway"
	"github.com/openclaw/board/internal/logger"
)

type Server struct {
	boards   *board.Store
	chats    *chat.Store
	engine   *chat.Engine
	gw       gateway.Client
	activity *activity.Log

	dataDir      string
	workspaceDir string
	staticDir    string
}

func New(boards *board.Store, chats *chat.Store, engine *chat.Engine, gw gateway.Client, activityLog *activity.Log, dataDir, workspaceDir, staticDir string) *Server {
	return &Server{
		boards:       boards,
		chats:        chats,
		engine:       engine,
		gw:           gw,
		activity:     activityLog,
		dataDir:      dataDir,
		workspaceDir: workspaceDir,
		staticDir:    staticDir,
	}
}

// Router builds the chi route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(requestLogger)

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStats)
		r.Get("/activity", s.handleListActivity)
		r.Post("/activity", s.handleRecordActivity)
		r.Get("/agent-status", s.handleGetAgentStatus)
		r.Post("/agent-status", s.handleSetAgentStatus)
		r.Get("/chat/status", s.handleGatewayStatus)

		r.Route("/context-files", func(r chi.Router) {
			r.Get("/", s.handleListContextFiles)
			r.Get("/{filename}", s.handleGetContextFile)
			r.Put("/{filename}", s.handlePutContextFile)
		})

		r.Route("/projects", func(r chi.Router) {
			r.Get("/", s.handleListProjects)
			r.Post("/", s.handleCreateProject)

			r.Route("/{projectID}", func(r chi.Router) {
				r.Put("/", s.handleUpdateProject)
				r.Delete("/", s.handleDeleteProject)

				r.Post("/tasks", s.handleCreateTask)
				r.Put("/tasks/{taskID}", s.handleUpdateTask)
				r.Delete("/tasks/{taskID}", s.handleDeleteTask)

				r.Get("/features/{taskID}", s.handleGetFeature)
				r.Put("/features/{taskID}", s.handlePutFeature)
				r.Post("/sync-features", s.handleSyncFeatures)

				r.Get("/files", s.handleFileTree)
				r.Get("/files/*", s.handleReadFile)
				r.Put("/files/*", s.handleWriteFile)

				r.Route("/chat/sessions", func(r chi.Router) {
					r.Get("/", s.handleListSessions)
					r.Post("/", s.handleCreateSession)
					r.Get("/{sessionID}", s.handleGetSession)
					r.Delete("/{sessionID}", s.handleDeleteSession)
					r.Post("/{sessionID}/messages", s.handleSubmitMessage)
				})
			})
		})
	})

	if s.staticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(s.staticDir)))
	}

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.L.Info("http request", "method", r.Method, "path", r.URL.Path, "took", time.Since(start).String())
	})
}
