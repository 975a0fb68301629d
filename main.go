package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/km-arc/go-interop/framework/app"
	"github.com/km-arc/go-interop/framework/config"
	"github.com/km-arc/go-interop/framework/container"
	gohttp "github.com/km-arc/go-interop/framework/http"
	"github.com/km-arc/go-interop/framework/http/validation"
	"github.com/km-arc/go-interop/framework/providers"
	"github.com/km-arc/go-interop/framework/routing"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(app.WithProviders(greetingProvider()))
	if err != nil {
		logrus.WithError(err).Fatal("build application")
	}

	if err := application.Run(ctx); err != nil {
		application.Logger().WithError(err).Fatal("run")
	}
}

// greetingProvider registers a greeting service and extends the router with
// the routes that use it.
func greetingProvider() *container.Provider {
	return container.NewProvider().
		// ── Services ─────────────────────────────────────────────────────────
		Factory("greeting.name", func(c container.Resolver) (any, error) {
			cfg, err := container.ResolveAs[*config.Config](c, providers.KeyConfig)
			if err != nil {
				return nil, err
			}
			return cfg.App.Name, nil
		}, providers.KeyConfig).
		// ── Routes ───────────────────────────────────────────────────────────
		Extend(providers.KeyRouter, func(c container.Resolver, previous any) (any, error) {
			r := previous.(*routing.Router)
			name, err := container.ResolveAs[string](c, "greeting.name")
			if err != nil {
				return nil, err
			}

			r.Get("/", func(w http.ResponseWriter, req *http.Request) {
				gohttp.NewResponse(w).Success(map[string]any{"message": "Welcome to " + name + "!"})
			})

			r.Prefix("/api/v1", func(api *routing.Router) {
				// GET /api/v1/hello/{who}
				api.Get("/hello/{who}", func(w http.ResponseWriter, req *http.Request) {
					request := gohttp.NewRequest(req)
					res := gohttp.NewResponse(w)

					who := request.RouteParam("who")
					v := validation.Make(map[string]string{"who": who}, validation.Rules{
						"who": "required|alpha_dash|max:64",
					})
					if v.Fails() {
						res.ValidationError(v.Errors())
						return
					}
					res.Success(map[string]any{"greeting": "hello " + who, "from": name})
				})
			})
			return r, nil
		}, "greeting.name")
}
