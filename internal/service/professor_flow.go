package service

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-professor-gateway/internal/models"
	appErrors "github.com/noah-isme/sma-professor-gateway/pkg/errors"
)

// Notification texts presented to the user.
const (
	ActionRegister = "Cadastro"
	ActionUpdate   = "Atualização"
	ActionDelete   = "Exclusão"
	ActionList     = "Listagem"

	msgRegisterOK   = "Professor cadastrado com sucesso."
	msgRegisterFail = "Erro ao cadastrar professor."
	msgUpdateOK     = "Professor atualizado com sucesso!"
	msgUpdateFail   = "Erro ao atualizar o professor!"
	msgDeleteOK     = "Professor excluído com sucesso."
	msgDeleteFail   = "Erro ao excluir o professor."
)

type professorGateway interface {
	Create(ctx context.Context, professor models.Professor) (json.RawMessage, error)
	Update(ctx context.Context, id string, professor models.Professor) (json.RawMessage, error)
	Delete(ctx context.Context, enrollmentID string) (json.RawMessage, error)
	Synchronize(ctx context.Context, target *models.ProfessorCollection) error
}

// Notifier presents a result dialog.
type Notifier interface {
	Notify(n models.Notification)
}

// Navigator moves the UI to a named route.
type Navigator interface {
	GoTo(route string)
}

// SubmitEvent is the UI form submission that triggered an operation.
type SubmitEvent interface {
	PreventDefault()
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(models.Notification)

// Notify calls f.
func (f NotifierFunc) Notify(n models.Notification) { f(n) }

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(string)

// GoTo calls f.
func (f NavigatorFunc) GoTo(route string) { f(route) }

// FlowRoutes names the navigation targets after successful operations.
type FlowRoutes struct {
	Home            string
	ProfessorReport string
}

// ProfessorFlow composes gateway results with notification and navigation.
// Every operation still returns the typed gateway error to the caller.
type ProfessorFlow struct {
	gateway   professorGateway
	notifier  Notifier
	navigator Navigator
	routes    FlowRoutes
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewProfessorFlow constructs a ProfessorFlow.
func NewProfessorFlow(gateway professorGateway, notifier Notifier, navigator Navigator, routes FlowRoutes, metrics *MetricsService, logger *zap.Logger) *ProfessorFlow {
	if notifier == nil {
		notifier = NotifierFunc(func(models.Notification) {})
	}
	if navigator == nil {
		navigator = NavigatorFunc(func(string) {})
	}
	if routes.Home == "" {
		routes.Home = "/home"
	}
	if routes.ProfessorReport == "" {
		routes.ProfessorReport = "/tela-relatorio-professor"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfessorFlow{
		gateway:   gateway,
		notifier:  notifier,
		navigator: navigator,
		routes:    routes,
		metrics:   metrics,
		logger:    logger,
	}
}

// Register suppresses the submit event default, creates the professor, then
// notifies and navigates home on success.
func (f *ProfessorFlow) Register(ctx context.Context, event SubmitEvent, professor models.Professor) (json.RawMessage, error) {
	if event != nil {
		event.PreventDefault()
	}
	result, err := f.gateway.Create(ctx, professor)
	f.complete(ActionRegister, err, msgRegisterOK, msgRegisterFail, f.routes.Home)
	return result, err
}

// Update saves the professor and navigates to the professor report on success.
func (f *ProfessorFlow) Update(ctx context.Context, id string, professor models.Professor) (json.RawMessage, error) {
	result, err := f.gateway.Update(ctx, id, professor)
	f.complete(ActionUpdate, err, msgUpdateOK, msgUpdateFail, f.routes.ProfessorReport)
	return result, err
}

// Delete removes the professor and notifies without navigating.
func (f *ProfessorFlow) Delete(ctx context.Context, enrollmentID string) (json.RawMessage, error) {
	result, err := f.gateway.Delete(ctx, enrollmentID)
	f.complete(ActionDelete, err, msgDeleteOK, msgDeleteFail, "")
	return result, err
}

// Synchronize refreshes target and raises a blocking alert with the
// serialized error when the fetch fails.
func (f *ProfessorFlow) Synchronize(ctx context.Context, target *models.ProfessorCollection) error {
	err := f.gateway.Synchronize(ctx, target)
	if err == nil {
		return nil
	}
	f.logger.Error("professor synchronization failed", zap.Error(err))
	f.metrics.RecordNotification(ActionList, false)
	f.notifier.Notify(models.Notification{
		Action:   ActionList,
		Message:  fmt.Sprintf("Erro ao listar professores: %s", serializeError(err)),
		Blocking: true,
	})
	return err
}

func (f *ProfessorFlow) complete(action string, err error, okMsg, failMsg, route string) {
	if err != nil {
		f.logger.Warn("professor operation failed", zap.String("action", action), zap.Error(err))
		f.metrics.RecordNotification(action, false)
		f.notifier.Notify(models.Notification{Action: action, Message: failMsg})
		return
	}
	f.metrics.RecordNotification(action, true)
	f.notifier.Notify(models.Notification{Action: action, Message: okMsg, Success: true})
	if route != "" {
		f.navigator.GoTo(route)
	}
}

func serializeError(err error) string {
	appErr := appErrors.FromError(err)
	payload, marshalErr := json.Marshal(struct {
		*appErrors.Error
		Cause string `json:"cause,omitempty"`
	}{Error: appErr, Cause: causeOf(appErr)})
	if marshalErr != nil {
		return err.Error()
	}
	return string(payload)
}

func causeOf(e *appErrors.Error) string {
	if e == nil || e.Err == nil {
		return ""
	}
	return e.Err.Error()
}
