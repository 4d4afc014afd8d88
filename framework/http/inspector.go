package http

import (
	"errors"
	"net/http"
	"slices"

	"github.com/km-arc/go-container/framework/container"
	"github.com/km-arc/go-container/framework/routing"
)

// Inspector serves read-only views of a container.
type Inspector struct {
	c *container.Container
}

// NewInspector creates an Inspector for c.
func NewInspector(c *container.Container) *Inspector {
	return &Inspector{c: c}
}

// Routes registers the inspector endpoints on r.
func (in *Inspector) Routes(r *routing.Router) {
	r.Get("/healthz", in.Health)
	r.Prefix("/container", func(cr *routing.Router) {
		cr.Get("/", in.Summary)
		cr.Get("/bindings", in.Bindings)
		cr.Get("/tags/{tag}", in.Tag)
		cr.Get("/validate", in.Validate)
	})
}

// BindingView is the JSON form of container.BindingInfo.
type BindingView struct {
	Service      string   `json:"service"`
	Kind         string   `json:"kind"`
	Lifetime     string   `json:"lifetime"`
	Dependencies []string `json:"dependencies"`
	Resolved     bool     `json:"resolved"`
}

// Summary is the body of GET /container.
type Summary struct {
	ID       string   `json:"id"`
	Bindings int      `json:"bindings"`
	Resolved int      `json:"resolved"`
	Tags     []string `json:"tags"`
}

func (in *Inspector) Health(w http.ResponseWriter, _ *http.Request) {
	NewResponse(w).JSON(http.StatusOK, envelope{
		"status":       "ok",
		"container_id": in.c.ID(),
	})
}

func (in *Inspector) Summary(w http.ResponseWriter, _ *http.Request) {
	infos := in.c.Bindings()
	s := Summary{ID: in.c.ID(), Bindings: len(infos), Tags: in.c.Tags()}
	for _, info := range infos {
		if info.Resolved {
			s.Resolved++
		}
	}
	NewResponse(w).Success(s)
}

func (in *Inspector) Bindings(w http.ResponseWriter, _ *http.Request) {
	infos := in.c.Bindings()
	views := make([]BindingView, 0, len(infos))
	for _, info := range infos {
		views = append(views, BindingView{
			Service:      info.Key.String(),
			Kind:         info.Kind.String(),
			Lifetime:     info.Lifetime.String(),
			Dependencies: keyStrings(info.Dependencies),
			Resolved:     info.Resolved,
		})
	}
	NewResponse(w).Success(views)
}

func (in *Inspector) Tag(w http.ResponseWriter, r *http.Request) {
	tag := routing.Param(r, "tag")
	if !slices.Contains(in.c.Tags(), tag) {
		NewResponse(w).NotFound("Unknown tag: " + tag)
		return
	}
	NewResponse(w).Success(keyStrings(in.c.TaggedKeys(tag)))
}

// Validate reports every problem found by container.Validate. An invalid
// graph answers 409 with one message per problem.
func (in *Inspector) Validate(w http.ResponseWriter, _ *http.Request) {
	err := in.c.Validate()
	if err == nil {
		NewResponse(w).Success(envelope{"valid": true})
		return
	}

	problems := []error{err}
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		problems = joined.Unwrap()
	}
	msgs := make([]string, 0, len(problems))
	for _, p := range problems {
		msgs = append(msgs, p.Error())
	}
	NewResponse(w).JSON(http.StatusConflict, envelope{
		"message": "dependency graph is invalid",
		"errors":  msgs,
	})
}

func keyStrings(keys []container.Key) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k.String())
	}
	return out
}
