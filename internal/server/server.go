package server

import (
	"log/slog"
	"net/http"

	"sales-dashboard/internal/handlers"
	"sales-dashboard/internal/services"
)

type Server struct {
	mux    *http.ServeMux
	logger *slog.Logger
}

type TemplateHandlers struct {
	Dashboard http.HandlerFunc
}

type route struct {
	pattern string
	handler http.HandlerFunc
}

func NewServer(dashboard *services.Dashboard, logger *slog.Logger, maxUploadBytes int64, templateHandlers *TemplateHandlers) *Server {
	s := &Server{
		mux:    http.NewServeMux(),
		logger: logger,
	}

	api := handlers.NewAPIHandlers(dashboard, logger, maxUploadBytes)
	sse := handlers.NewSSEHandlers(dashboard, logger)

	for _, rt := range routes(api, sse, templateHandlers) {
		s.mux.HandleFunc(rt.pattern, rt.handler)
	}
	return s
}

func routes(api *handlers.APIHandlers, sse *handlers.SSEHandlers, pages *TemplateHandlers) []route {
	return []route{
		// page shell and operations
		{"GET /{$}", pages.Dashboard},
		{"GET /health", api.HandleHealth},
		{"GET /admin/stats", api.HandleStats},

		// JSON, downloads, charts and upload
		{"GET /api/dashboard", api.HandleDashboard},
		{"GET /api/aggregations/{name}", api.HandleAggregation},
		{"GET /download/{file}", api.HandleDownload},
		{"GET /charts/{file}", api.HandleChart},
		{"POST /upload", api.HandleUpload},

		// datastar
		{"GET /sse/dashboard", sse.HandleDashboard},
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
