package app

import (
	"net/http"

	"github.com/km-arc/go-container/framework/container"
	gohttp "github.com/km-arc/go-container/framework/http"
	"github.com/km-arc/go-container/framework/routing"
)

// AppServiceProvider binds the application services and their routes.
//
// Bound services:
//   - Logger        -> *ConsoleLogger (singleton)
//   - *UserService  (transient)
type AppServiceProvider struct {
	container.BaseProvider
}

func (p *AppServiceProvider) Register(c *container.Container) error {
	if err := container.RegisterSingleton[Logger](c, NewConsoleLogger); err != nil {
		return err
	}
	return container.Register[*UserService](c, NewUserService)
}

func (p *AppServiceProvider) Boot(c *container.Container) error {
	router, err := container.Resolve[*routing.Router](c)
	if err != nil {
		return err
	}
	router.Post("/users/{email}", func(w http.ResponseWriter, r *http.Request) {
		res := gohttp.NewResponse(w)
		users, err := container.Resolve[*UserService](c)
		if err != nil {
			res.ServerError(err.Error())
			return
		}
		email := routing.Param(r, "email")
		if err := users.Register(email); err != nil {
			res.Error(http.StatusUnprocessableEntity, err.Error())
			return
		}
		res.Success(map[string]any{"email": email, "registered": true})
	})
	return nil
}

// NotificationServiceProvider is deferred: its Register runs on the first
// resolution of NotificationService. The service is tagged "notifiers" as
// soon as the provider is added.
//
// Bound services:
//   - NotificationService -> *EmailNotificationService (transient)
type NotificationServiceProvider struct {
	container.BaseProvider
}

func (p *NotificationServiceProvider) IsDeferred() bool { return true }

func (p *NotificationServiceProvider) Provides() []container.Key {
	return []container.Key{container.KeyOf[NotificationService]()}
}

func (p *NotificationServiceProvider) ProvidesTags() map[string][]container.Key {
	return map[string][]container.Key{"notifiers": p.Provides()}
}

func (p *NotificationServiceProvider) Register(c *container.Container) error {
	return container.Register[NotificationService](c, NewEmailNotificationService)
}
