package providers

import (
	"net/http"
	"tally/internal/structures"
)

type Middleware func(http.Handler) http.Handler

type RouterProviderInterface interface {
	Get(url string, handler http.Handler)
	Post(url string, handler http.Handler)
	Any(url string, handler http.Handler)
	Use(mw ...Middleware)
	GetRoutes() []structures.Route
}

type RouterProvider struct {
	routes      []structures.Route
	middlewares []Middleware
}

func (rp *RouterProvider) Get(url string, handler http.Handler) {
	rp.add(url, methodHandler(http.MethodGet, handler))
}

func (rp *RouterProvider) Post(url string, handler http.Handler) {
	rp.add(url, methodHandler(http.MethodPost, handler))
}

// Any registers handler without a method guard, e.g. for protocol upgrades.
func (rp *RouterProvider) Any(url string, handler http.Handler) {
	rp.add(url, handler)
}

// Use appends middlewares applied to every route, first registered outermost.
func (rp *RouterProvider) Use(mw ...Middleware) {
	rp.middlewares = append(rp.middlewares, mw...)
}

func (rp *RouterProvider) GetRoutes() []structures.Route {
	routes := make([]structures.Route, 0, len(rp.routes))
	for _, r := range rp.routes {
		routes = append(routes, structures.Route{Url: r.Url, Handler: rp.wrap(r.Handler)})
	}
	return routes
}

func (rp *RouterProvider) add(url string, handler http.Handler) {
	rp.routes = append(rp.routes, structures.Route{
		Url:     url,
		Handler: handler,
	})
}

func (rp *RouterProvider) wrap(h http.Handler) http.Handler {
	for i := len(rp.middlewares) - 1; i >= 0; i-- {
		h = rp.middlewares[i](h)
	}
	return h
}

func NewRouterProvider() RouterProviderInterface {
	return &RouterProvider{}
}

func methodHandler(method string, handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
