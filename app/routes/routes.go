package routes

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"taskforest/app/controllers"
	"taskforest/app/middleware"
)

// Options configures the router middleware.
type Options struct {
	IdentityHeader string
	Logger         *zap.Logger
}

// RegisterRoutes sets up all routes for the application.
// Fixed paths are registered before /{taskId} so they are not taken as ids.
func RegisterRoutes(router *mux.Router, taskController *controllers.TaskController, userController *controllers.UserController, opts Options) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	router.Use(middleware.RequestLogger(logger))

	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.Identity(opts.IdentityHeader, controllers.Unauthorized))

	api.HandleFunc("/users", userController.Provision).Methods(http.MethodPost)

	tasks := api.PathPrefix("/tasks").Subrouter()
	tasks.HandleFunc("", taskController.FindByDateRange).Methods(http.MethodGet)
	tasks.HandleFunc("", taskController.CreateTask).Methods(http.MethodPost)
	tasks.HandleFunc("", taskController.UpdateTask).Methods(http.MethodPatch)

	tasks.HandleFunc("/roots", taskController.FindRoots).Methods(http.MethodGet)
	tasks.HandleFunc("/all", taskController.FindAll).Methods(http.MethodGet)
	tasks.HandleFunc("/delete", taskController.DeleteTask).Methods(http.MethodPost)
	tasks.HandleFunc("/restore", taskController.RestoreTask).Methods(http.MethodPost)
	tasks.HandleFunc("/move", taskController.MoveTask).Methods(http.MethodPost)
	tasks.HandleFunc("/archive", taskController.ArchiveTask).Methods(http.MethodPost)
	tasks.HandleFunc("/unarchive", taskController.UnarchiveTask).Methods(http.MethodPost)
	tasks.HandleFunc("/search", taskController.SearchByName).Methods(http.MethodPost)
	tasks.HandleFunc("/drop/all", taskController.DropAll).Methods(http.MethodDelete)
	tasks.HandleFunc("/drop", taskController.DropTask).Methods(http.MethodDelete)

	tasks.HandleFunc("/{taskId}", taskController.FindByID).Methods(http.MethodGet)
	tasks.HandleFunc("/{taskId}/subtasks", taskController.FindChildren).Methods(http.MethodGet)
	tasks.HandleFunc("/{taskId}/routes", taskController.GetRoutes).Methods(http.MethodGet)
}
