package http

import (
	"net/http"
	"strings"
)

type RouterConfig struct {
	Events      *EventHandler
	Assignments *AssignmentHandler
	Resources   *ResourceHandler
	Middleware  []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	if cfg.Events != nil || cfg.Assignments != nil {
		mux.HandleFunc("/events", func(w http.ResponseWriter, r *http.Request) {
			if cfg.Events == nil {
				http.NotFound(w, r)
				return
			}
			switch r.Method {
			case http.MethodGet:
				cfg.Events.List(w, r)
			case http.MethodPost:
				cfg.Events.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		mux.HandleFunc("/events/", func(w http.ResponseWriter, r *http.Request) {
			routeEvent(cfg, w, r)
		})
	}

	if cfg.Resources != nil {
		mux.HandleFunc("/resources", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Resources.List(w, r)
			case http.MethodPost:
				cfg.Resources.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		mux.HandleFunc("/resources/", func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimPrefix(r.URL.Path, "/resources/")
			if id == "" || strings.Contains(id, "/") {
				http.NotFound(w, r)
				return
			}
			r = r.WithContext(ContextWithResourceID(r.Context(), id))
			switch r.Method {
			case http.MethodGet:
				cfg.Resources.Get(w, r)
			case http.MethodPut:
				cfg.Resources.Update(w, r)
			case http.MethodDelete:
				cfg.Resources.Delete(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodDelete)
			}
		})
	}

	var handler http.Handler = mux
	for i := len(cfg.Middleware) - 1; i >= 0; i-- {
		if cfg.Middleware[i] != nil {
			handler = cfg.Middleware[i](handler)
		}
	}

	return handler
}

// routeEvent dispatches everything below /events/{id}. The assignment
// sub-resources hang off the event path so the event identifier is always
// resolved here and carried in the context.
func routeEvent(cfg RouterConfig, w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/events/")
	segments := strings.Split(strings.Trim(rest, "/"), "/")
	if len(segments) == 0 || segments[0] == "" {
		http.NotFound(w, r)
		return
	}

	r = r.WithContext(ContextWithEventID(r.Context(), segments[0]))

	switch {
	case len(segments) == 1:
		if cfg.Events == nil {
			http.NotFound(w, r)
			return
		}
		switch r.Method {
		case http.MethodGet:
			cfg.Events.Get(w, r)
		case http.MethodDelete:
			cfg.Events.Delete(w, r)
		default:
			methodNotAllowed(w, http.MethodGet, http.MethodDelete)
		}

	case segments[1] == "assignments":
		routeAssignments(cfg, w, r, segments)

	case segments[1] == "required-count" && len(segments) == 2:
		if cfg.Assignments == nil {
			http.NotFound(w, r)
			return
		}
		if r.Method != http.MethodPut {
			methodNotAllowed(w, http.MethodPut)
			return
		}
		cfg.Assignments.SetRequiredCount(w, r)

	case segments[1] == "conflicts" && len(segments) == 2:
		if cfg.Assignments == nil {
			http.NotFound(w, r)
			return
		}
		if r.Method != http.MethodGet {
			methodNotAllowed(w, http.MethodGet)
			return
		}
		cfg.Assignments.CheckConflicts(w, r)

	default:
		http.NotFound(w, r)
	}
}

func routeAssignments(cfg RouterConfig, w http.ResponseWriter, r *http.Request, segments []string) {
	if cfg.Assignments == nil {
		http.NotFound(w, r)
		return
	}

	switch len(segments) {
	case 2: // /events/{id}/assignments
		switch r.Method {
		case http.MethodGet:
			cfg.Assignments.List(w, r)
		case http.MethodPost:
			cfg.Assignments.Add(w, r)
		default:
			methodNotAllowed(w, http.MethodGet, http.MethodPost)
		}

	case 3: // /events/{id}/assignments/{resourceID}
		r = r.WithContext(ContextWithResourceID(r.Context(), segments[2]))
		if r.Method != http.MethodDelete {
			methodNotAllowed(w, http.MethodDelete)
			return
		}
		cfg.Assignments.Remove(w, r)

	case 4: // /events/{id}/assignments/{resourceID}/confirm or /refuse
		r = r.WithContext(ContextWithResourceID(r.Context(), segments[2]))
		if r.Method != http.MethodPost {
			methodNotAllowed(w, http.MethodPost)
			return
		}
		switch segments[3] {
		case "confirm":
			cfg.Assignments.Confirm(w, r)
		case "refuse":
			cfg.Assignments.Refuse(w, r)
		default:
			http.NotFound(w, r)
		}

	default:
		http.NotFound(w, r)
	}
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
