package csrf

import "github.com/goliatone/go-router"

// RouteConfig controls the token bootstrap endpoint.
type RouteConfig struct {
	// Path is the route registered for retrieving the CSRF token.
	Path string
	// ContextKey is the locals key where the middleware stored the token.
	ContextKey string
	HeaderName string
	// RouteName is the name assigned to the registered route.
	RouteName string
}

const (
	defaultRoutePath = "/csrf"
	defaultRouteName = "auth.csrf.get"
)

// RegisterRoutes registers a GET endpoint returning the current token and
// the header it must be sent back in. The middleware must run first.
func RegisterRoutes[T any](app router.Router[T], cfg ...RouteConfig) {
	conf := routeConfigDefault(cfg...)
	app.Get(conf.Path, tokenHandler(conf)).SetName(conf.RouteName)
}

func routeConfigDefault(cfg ...RouteConfig) RouteConfig {
	conf := RouteConfig{
		Path:       defaultRoutePath,
		ContextKey: DefaultContextKey,
		HeaderName: DefaultHeaderName,
		RouteName:  defaultRouteName,
	}
	if len(cfg) == 0 {
		return conf
	}

	c := cfg[0]
	if c.Path != "" {
		conf.Path = c.Path
	}
	if c.ContextKey != "" {
		conf.ContextKey = c.ContextKey
	}
	if c.HeaderName != "" {
		conf.HeaderName = c.HeaderName
	}
	if c.RouteName != "" {
		conf.RouteName = c.RouteName
	}
	return conf
}

func tokenHandler(cfg RouteConfig) router.HandlerFunc {
	return func(ctx router.Context) error {
		token, _ := ctx.Locals(cfg.ContextKey).(string)
		if token == "" {
			return ErrTokenMissing
		}

		ctx.SetHeader("Cache-Control", "no-store, max-age=0")
		ctx.SetHeader("Pragma", "no-cache")

		return ctx.JSON(router.StatusOK, map[string]string{
			"token":       token,
			"header_name": cfg.HeaderName,
		})
	}
}
