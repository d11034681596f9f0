// Package v1 holds the route table for the first version of the
// bridge API. Handlers stay version-agnostic; only this table and the
// mount point know the paths.
package v1

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"flowcanvas/application/editor"
	"flowcanvas/application/session"
	"flowcanvas/interfaces/http/rest/handlers"
	pkgerrors "flowcanvas/pkg/errors"
)

// Prefix is where this version of the API is mounted.
const Prefix = "/api/v1"

// Version is the value served in the X-API-Version response header.
const Version = "v1"

// Routes registers the canvas, execution and session endpoints on the
// given router. The caller owns the middleware stack.
func Routes(
	api chi.Router,
	editorSvc *editor.EditorService,
	sessions *session.Manager,
	errorHandler *pkgerrors.ErrorHandler,
	logger *zap.Logger,
) {
	// Canvas endpoints
	api.Route("/canvas", func(canvas chi.Router) {
		canvasHandler := handlers.NewCanvasHandler(editorSvc, errorHandler, logger)
		canvas.Get("/", canvasHandler.GetCanvas)
		canvas.Delete("/", canvasHandler.ClearCanvas)

		canvas.Post("/nodes", canvasHandler.AddNode)
		canvas.Patch("/nodes/{nodeID}", canvasHandler.UpdateNode)
		canvas.Delete("/nodes/{nodeID}", canvasHandler.DeleteNode)

		canvas.Post("/edges", canvasHandler.AddEdge)
		canvas.Patch("/edges/{edgeID}", canvasHandler.UpdateEdge)
		canvas.Delete("/edges/{edgeID}", canvasHandler.DeleteEdge)

		canvas.Get("/undo", canvasHandler.GetUndo)
		canvas.Post("/undo", canvasHandler.Undo)

		canvas.Post("/layout", canvasHandler.ApplyLayout)
		canvas.Post("/save", canvasHandler.Save)
		canvas.Post("/load", canvasHandler.Load)
		canvas.Post("/validate", canvasHandler.Validate)

		canvas.Get("/draft", canvasHandler.GetDraft)
		canvas.Post("/draft/restore", canvasHandler.RestoreDraft)
		canvas.Delete("/draft", canvasHandler.DiscardDraft)
	})

	// Execution endpoint
	api.Post("/executions", handlers.NewExecutionHandler(sessions, errorHandler, logger).Execute)

	// Session endpoints
	api.Route("/sessions", func(sr chi.Router) {
		sessionHandler := handlers.NewSessionHandler(sessions, errorHandler, logger)
		sr.Get("/", sessionHandler.ListSessions)
		sr.Get("/{sessionID}", sessionHandler.GetSession)
		sr.Get("/{sessionID}/messages", sessionHandler.GetMessages)
		sr.Get("/{sessionID}/context", sessionHandler.GetContext)
	})
}
