// Package http exposes a running container over HTTP.
//
// # Response
//
// Response wraps http.ResponseWriter with JSON helpers.
//
//	res := gohttp.NewResponse(w)
//	res.Success(data)             // 200 {"data": ...}
//	res.Error(409, "conflict")    // {"message": "conflict"}
//	res.NotFound()                // 404 {"message": "Not found."}
//
// # Inspector
//
// Inspector mounts read-only introspection routes on a router:
//
//	GET /healthz                  liveness and container id
//	GET /container                registration and cache counts
//	GET /container/bindings       every registration with its dependencies
//	GET /container/tags/{tag}     services grouped under tag
//	GET /container/validate       static dependency graph check
package http
