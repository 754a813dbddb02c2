package controllers

import (
	"net/http"

	"go.uber.org/zap"

	"taskforest/app/models"
	"taskforest/app/services"
)

// UserController handles provisioning of the caller's forest.
type UserController struct {
	Service *services.TaskService
	Logger  *zap.Logger
}

// NewUserController creates a new UserController.
func NewUserController(service *services.TaskService, logger *zap.Logger) *UserController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserController{Service: service, Logger: logger}
}

// Provision handles POST /users. It is idempotent.
func (c *UserController) Provision(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		writeError(w, r, c.Logger, err)
		return
	}
	if err := c.Service.ProvisionUser(r.Context(), user); err != nil {
		writeError(w, r, c.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, models.UserResponse{Email: user})
}
