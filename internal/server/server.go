package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"stride/internal/config"
	"stride/internal/engine"
	"stride/internal/repo"
	"stride/internal/rules"
)

// Config for the HTTP API handler.
type Config struct {
	Engine     engine.Engine
	BasePath   string
	Auth       AuthConfig
	Onboarding *config.Config
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"invalid_transition"`
	Message string         `json:"message" example:"cannot move action from planned to completed; valid: in-progress, deferred"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true" example:"{\"from\":\"planned\"}"`
}

// apiError models the error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the Stride API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v0"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	if cfg.Onboarding == nil {
		cfg.Onboarding = config.Default()
	}
	huma.DefaultArrayNullable = false
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			// Schema/request validation errors should be 400 bad_request
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(newAuthMiddleware(basePath, cfg.Auth))
	hcfg := huma.DefaultConfig("Stride API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = "" // custom Swagger UI below
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerDocs(router, basePath)
	registerHealth(group)
	registerDrivers(group, cfg.Engine)
	registerMilestones(group, cfg.Engine)
	registerActions(group, cfg.Engine)
	registerHabits(group, cfg.Engine)
	registerOrphans(group, cfg.Engine)
	registerOnboarding(group, cfg.Engine, cfg.Onboarding)
	registerEvents(group, cfg.Engine)
	registerDevAuth(group, cfg.Auth)
	registerOpenAPI(router, api, basePath)

	return router, nil
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	var ve *rules.ValidationError
	if errors.As(err, &ve) {
		fields := make([]map[string]string, 0, len(ve.Fields))
		for _, f := range ve.Fields {
			fields = append(fields, map[string]string{"field": f.Field, "message": f.Message})
		}
		return newAPIError(http.StatusUnprocessableEntity, "validation_failed", err.Error(), map[string]any{"entity": ve.Entity, "fields": fields})
	}
	var rie *rules.ReferentialIntegrityError
	if errors.As(err, &rie) {
		return newAPIError(http.StatusUnprocessableEntity, "referential_integrity", err.Error(), map[string]any{"kind": rie.Kind, "ref_id": rie.RefID})
	}
	var ste *rules.StateTransitionError
	if errors.As(err, &ste) {
		return newAPIError(http.StatusConflict, "invalid_transition", err.Error(), map[string]any{"from": ste.From, "to": ste.To, "valid": ste.Valid})
	}
	var rpe *rules.RecurrencePatternError
	if errors.As(err, &rpe) {
		return newAPIError(http.StatusUnprocessableEntity, "invalid_recurrence", err.Error(), nil)
	}
	if errors.Is(err, engine.ErrAlreadyOnboarded) {
		return newAPIError(http.StatusConflict, "already_onboarded", err.Error(), nil)
	}
	if errors.Is(err, repo.ErrNotFound) {
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	}
	msg := err.Error()
	lowered := strings.ToLower(msg)
	switch {
	case strings.Contains(lowered, "invalid") || strings.Contains(lowered, "missing") || strings.Contains(lowered, "required"):
		return newAPIError(http.StatusBadRequest, "bad_request", msg, nil)
	default:
		return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": msg})
	}
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func registerDocs(r chi.Router, basePath string) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, swaggerHTML(basePath))
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var spec []byte
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		if spec == nil {
			oas := api.OpenAPI()
			applyAuthSecurity(oas, basePath)
			spec, _ = json.Marshal(oas)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func applyAuthSecurity(oas *huma.OpenAPI, basePath string) {
	if oas == nil {
		return
	}
	if oas.Components == nil {
		oas.Components = &huma.Components{}
	}
	if oas.Components.SecuritySchemes == nil {
		oas.Components.SecuritySchemes = map[string]*huma.SecurityScheme{}
	}
	oas.Components.SecuritySchemes["bearerAuth"] = &huma.SecurityScheme{
		Type:         "http",
		Scheme:       "bearer",
		BearerFormat: "JWT",
	}
	security := []map[string][]string{{"bearerAuth": {}}}
	oas.Security = security
	healthPath := path.Join(basePath, "health")
	devLoginPath := path.Join(basePath, "auth/dev/login")
	for route, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Options, item.Head, item.Patch, item.Trace,
		} {
			if op == nil {
				continue
			}
			if route == healthPath || route == devLoginPath {
				op.Security = []map[string][]string{}
				continue
			}
			op.Security = security
		}
	}
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>Stride API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.onload = () => {
        SwaggerUIBundle({
          url: '%s',
          dom_id: '#swagger-ui'
        });
      };
    </script>
    <p style="padding: 1rem; font-family: sans-serif; color: #444;">
      Authenticate with Authorization: Bearer &lt;token&gt;.
    </p>
  </body>
</html>`, specURL)
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerDrivers(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-driver",
		Method:        http.MethodPost,
		Path:          "/drivers",
		Summary:       "Create driver",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusUnauthorized,
			http.StatusUnprocessableEntity,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		Body CreateDriverRequest `json:"body"`
	}) (*struct {
		Body DriverResponse `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if input.Body.Title == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "title is required", nil)
		}
		d, err := e.CreateDriver(ctx, engine.DriverCreateOptions{
			UserID:      userID,
			Title:       input.Body.Title,
			Description: stringOrEmpty(input.Body.Description),
			Active:      input.Body.Active,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body DriverResponse `json:"body"`
		}{Body: driverResponse(d)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-drivers",
		Method:      http.MethodGet,
		Path:        "/drivers",
		Summary:     "List drivers",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []DriverResponse `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		items, err := e.Repo.ListDrivers(ctx, userID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []DriverResponse `json:"body"`
		}{Body: mapDrivers(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-driver",
		Method:      http.MethodGet,
		Path:        "/drivers/{id}",
		Summary:     "Get driver",
		Errors:      []int{http.StatusUnauthorized, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body DriverResponse `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		d, err := e.Repo.GetDriver(ctx, userID, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body DriverResponse `json:"body"`
		}{Body: driverResponse(d)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-driver",
		Method:      http.MethodPatch,
		Path:        "/drivers/{id}",
		Summary:     "Update driver",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusUnauthorized,
			http.StatusNotFound,
			http.StatusUnprocessableEntity,
		},
	}, func(ctx context.Context, input *struct {
		ID   string              `path:"id"`
		Body UpdateDriverRequest `json:"body"`
	}) (*struct {
		Body DriverResponse `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		d, err := e.UpdateDriver(ctx, engine.DriverUpdateOptions{
			UserID:      userID,
			ID:          input.ID,
			Title:       input.Body.Title,
			Description: input.Body.Description,
			Active:      input.Body.Active,
			Archived:    input.Body.Archived,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body DriverResponse `json:"body"`
		}{Body: driverResponse(d)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "driver-impact",
		Method:      http.MethodGet,
		Path:        "/drivers/{id}/impact",
		Summary:     "Preview cascading delete",
		Errors:      []int{http.StatusUnauthorized, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body DriverImpactResponse `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		impact, err := e.DriverImpact(ctx, userID, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body DriverImpactResponse `json:"body"`
		}{Body: DriverImpactResponse(impact)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-driver",
		Method:      http.MethodDelete,
		Path:        "/drivers/{id}",
		Summary:     "Delete driver and its subtree",
		Errors:      []int{http.StatusUnauthorized, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body DriverImpactResponse `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		impact, err := e.DeleteDriver(ctx, userID, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body DriverImpactResponse `json:"body"`
		}{Body: DriverImpactResponse(impact)}, nil
	})
}

func registerMilestones(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-milestone",
		Method:        http.MethodPost,
		Path:          "/milestones",
		Summary:       "Create milestone",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusUnauthorized,
			http.StatusUnprocessableEntity,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		Body CreateMilestoneRequest `json:"body"`
	}) (*struct {
		Body MilestoneResponse `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if input.Body.Title == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "title is required", nil)
		}
		if input.Body.DriverID == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "driver_id is required", nil)
		}
		opts := engine.MilestoneCreateOptions{
			UserID:      userID,
			DriverID:    input.Body.DriverID,
			Title:       input.Body.Title,
			Description: stringOrEmpty(input.Body.Description),
		}
		if input.Body.TargetDate != nil {
			opts.TargetDate = *input.Body.TargetDate
		}
		m, err := e.CreateMilestone(ctx, opts)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body MilestoneResponse `json:"body"`
		}{Body: milestoneResponse(m)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-milestones",
		Method:      http.MethodGet,
		Path:        "/milestones",
		Summary:     "List milestones",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		DriverID string `query:"driver_id"`
	}) (*struct {
		Body []MilestoneResponse `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		var items []MilestoneResponse
		if input.DriverID != "" {
			ms, err := e.Repo.ListMilestonesByDriver(ctx, userID, input.DriverID)
			if err != nil {
				return nil, handleError(err)
			}
			items = mapMilestones(ms)
		} else {
			ms, err := e.Repo.ListMilestones(ctx, userID)
			if err != nil {
				return nil, handleError(err)
			}
			items = mapMilestones(ms)
		}
		return &struct {
			Body []MilestoneResponse `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-milestone",
		Method:      http.MethodGet,
		Path:        "/milestones/{id}",
		Summary:     "Get milestone",
		Errors:      []int{http.StatusUnauthorized, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body MilestoneResponse `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		m, err := e.Repo.GetMilestone(ctx, userID, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body MilestoneResponse `json:"body"`
		}{Body: milestoneResponse(m)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-milestone",
		Method:      http.MethodPatch,
		Path:        "/milestones/{id}",
		Summary:     "Update milestone",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusUnauthorized,
			http.StatusNotFound,
			http.StatusUnprocessableEntity,
		},
	}, func(ctx context.Context, input *struct {
		ID   string                 `path:"id"`
		Body UpdateMilestoneRequest `json:"body"`
	}) (*struct {
		Body MilestoneResponse `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		m, err := e.UpdateMilestone(ctx, engine.MilestoneUpdateOptions{
			UserID:      userID,
			ID:          input.ID,
			Title:       input.Body.Title,
			Description: input.Body.Description,
			TargetDate:  input.Body.TargetDate,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body MilestoneResponse `json:"body"`
		}{Body: milestoneResponse(m)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-milestone",
		Method:      http.MethodDelete,
		Path:        "/milestones/{id}",
		Summary:     "Delete milestone",
		Errors:      []int{http.StatusUnauthorized, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct{}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.DeleteMilestone(ctx, userID, input.ID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerActions(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-action",
		Method:        http.MethodPost,
		Path:          "/actions",
		Summary:       "Create action",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusUnauthorized,
			http.StatusUnprocessableEntity,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		Body CreateActionRequest `json:"body"`
	}) (*struct {
		Body ActionResponse `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if input.Body.Title == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "title is required", nil)
		}
		if input.Body.MilestoneID == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "milestone_id is required", nil)
		}
		opts := engine.ActionCreateOptions{
			UserID:           userID,
			MilestoneID:      input.Body.MilestoneID,
			Title:            input.Body.Title,
			Description:      stringOrEmpty(input.Body.Description),
			EstimatedMinutes: input.Body.EstimatedMinutes,
			Trigger:          stringOrEmpty(input.Body.Trigger),
			Recurrence:       recurrenceFromRequest(input.Body.Recurrence),
		}
		if input.Body.Status != nil {
			opts.Status = *input.Body.Status
		}
		a, err := e.CreateAction(ctx, opts)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ActionResponse `json:"body"`
		}{Body: actionResponse(a)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-actions",
		Method:      http.MethodGet,
		Path:        "/actions",
		Summary:     "List actions",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		MilestoneID string `query:"milestone_id"`
	}) (*struct {
		Body []ActionResponse `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		var items []ActionResponse
		if input.MilestoneID != "" {
			as, err := e.Repo.ListActionsByMilestone(ctx, userID, input.MilestoneID)
			if err != nil {
				return nil, handleError(err)
			}
			items = mapActions(as)
		} else {
			as, err := e.Repo.ListActions(ctx, userID)
			if err != nil {
				return nil, handleError(err)
			}
			items = mapActions(as)
		}
		return &struct {
			Body []ActionResponse `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-action",
		Method:      http.MethodGet,
		Path:        "/actions/{id}",
		Summary:     "Get action",
		Errors:      []int{http.StatusUnauthorized, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body ActionResponse `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		a, err := e.Repo.GetAction(ctx, userID, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ActionResponse `json:"body"`
		}{Body: actionResponse(a)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-action",
		Method:      http.MethodPatch,
		Path:        "/actions/{id}",
		Summary:     "Update action",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusUnauthorized,
			http.StatusNotFound,
			http.StatusUnprocessableEntity,
		},
	}, func(ctx context.Context, input *struct {
		ID   string              `path:"id"`
		Body UpdateActionRequest `json:"body"`
	}) (*struct {
		Body ActionResponse `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		a, err := e.UpdateAction(ctx, engine.ActionUpdateOptions{
			UserID:           userID,
			ID:               input.ID,
			Title:            input.Body.Title,
			Description:      input.Body.Description,
			EstimatedMinutes: input.Body.EstimatedMinutes,
			Trigger:          input.Body.Trigger,
			Recurrence:       recurrenceFromRequest(input.Body.Recurrence),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ActionResponse `json:"body"`
		}{Body: actionResponse(a)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "move-action",
		Method:      http.MethodPost,
		Path:        "/actions/{id}/move",
		Summary:     "Apply one lifecycle transition",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusUnauthorized,
			http.StatusNotFound,
			http.StatusConflict,
		},
	}, func(ctx context.Context, input *struct {
		ID   string            `path:"id"`
		Body MoveActionRequest `json:"body"`
	}) (*struct {
		Body ActionResponse `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if input.Body.Status == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "status is required", nil)
		}
		a, err := e.MoveAction(ctx, userID, input.ID, input.Body.Status)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ActionResponse `json:"body"`
		}{Body: actionResponse(a)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-action",
		Method:      http.MethodDelete,
		Path:        "/actions/{id}",
		Summary:     "Delete action",
		Errors:      []int{http.StatusUnauthorized, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct{}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.DeleteAction(ctx, userID, input.ID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerHabits(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "run-habits",
		Method:      http.MethodPost,
		Path:        "/habits/run",
		Summary:     "Materialize due recurring actions",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusUnauthorized,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		Body RunHabitsRequest `json:"body"`
	}) (*struct {
		Body []ActionResponse `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		day := e.Now().UTC()
		if input.Body.Date != nil {
			parsed, err := rules.ParseDate(*input.Body.Date)
			if err != nil {
				return nil, newAPIError(http.StatusBadRequest, "bad_request", "invalid date", map[string]any{"date": *input.Body.Date})
			}
			day = parsed
		}
		spawned, err := e.RunHabits(ctx, userID, day)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []ActionResponse `json:"body"`
		}{Body: mapActions(spawned)}, nil
	})
}

func registerOrphans(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "detect-orphans",
		Method:      http.MethodGet,
		Path:        "/orphans",
		Summary:     "Scan the hierarchy for broken links",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body OrphanReportResponse `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		report, err := e.DetectOrphans(ctx, userID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body OrphanReportResponse `json:"body"`
		}{Body: OrphanReportResponse{
			OrphanedDrivers:    mapDrivers(report.OrphanedDrivers),
			OrphanedMilestones: mapMilestones(report.OrphanedMilestones),
			OrphanedActions:    mapActions(report.OrphanedActions),
		}}, nil
	})
}

func registerOnboarding(api huma.API, e engine.Engine, cfg *config.Config) {
	huma.Register(api, huma.Operation{
		OperationID: "onboarding-status",
		Method:      http.MethodGet,
		Path:        "/onboarding",
		Summary:     "Onboarding status",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body OnboardingResponse `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		status, err := e.Repo.GetOnboardingStatus(ctx, userID)
		if errors.Is(err, repo.ErrNotFound) {
			return &struct {
				Body OnboardingResponse `json:"body"`
			}{Body: OnboardingResponse{Onboarded: false}}, nil
		}
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body OnboardingResponse `json:"body"`
		}{Body: OnboardingResponse{
			Onboarded:   status.Onboarded,
			Version:     status.Version,
			CompletedAt: status.CompletedAt,
		}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "onboard",
		Method:        http.MethodPost,
		Path:          "/onboarding",
		Summary:       "Generate the starter hierarchy",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusUnauthorized,
			http.StatusConflict,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body OnboardingResponse `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		batch, err := e.Onboard(ctx, userID, cfg)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body OnboardingResponse `json:"body"`
		}{Body: OnboardingResponse{
			Onboarded:   batch.Status.Onboarded,
			Version:     batch.Status.Version,
			CompletedAt: batch.Status.CompletedAt,
			Drivers:     mapDrivers(batch.Drivers),
			Milestones:  mapMilestones(batch.Milestones),
			Actions:     mapActions(batch.Actions),
		}}, nil
	})
}

func registerEvents(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "List recent events",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Type       string `query:"type"`
		EntityKind string `query:"entity_kind" enum:"driver,milestone,action,onboarding"`
		EntityID   string `query:"entity_id"`
		Limit      int    `query:"limit" default:"50"`
	}) (*struct {
		Body []EventResponse `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		limit := input.Limit
		if limit <= 0 || limit > 500 {
			limit = 50
		}
		items, err := e.Repo.LatestEvents(ctx, limit, userID, input.Type, input.EntityKind, input.EntityID)
		if err != nil {
			return nil, handleError(err)
		}
		resp := make([]EventResponse, 0, len(items))
		for _, evt := range items {
			resp = append(resp, eventResponse(evt))
		}
		return &struct {
			Body []EventResponse `json:"body"`
		}{Body: resp}, nil
	})
}

func registerDevAuth(api huma.API, authCfg AuthConfig) {
	huma.Register(api, huma.Operation{
		OperationID: "dev-login",
		Method:      http.MethodPost,
		Path:        "/auth/dev/login",
		Summary:     "DEV ONLY: mint a JWT for local testing",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		Body DevLoginRequest `json:"body"`
	}) (*struct {
		Body DevLoginResponse `json:"body"`
	}, error) {
		user := strings.TrimSpace(input.Body.UserID)
		if user == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "user_id is required", nil)
		}
		token, err := signDevToken(authCfg.JWTSecret, user)
		if err != nil {
			return nil, newAPIError(http.StatusInternalServerError, "internal_error", err.Error(), nil)
		}
		return &struct {
			Body DevLoginResponse `json:"body"`
		}{Body: DevLoginResponse{Token: token}}, nil
	})
}
