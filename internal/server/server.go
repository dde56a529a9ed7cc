package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"staffdesk/internal/approval"
	"staffdesk/internal/domain"
	"staffdesk/internal/engine"
	"staffdesk/internal/readiness"
	"staffdesk/internal/repo"
)

// Config for the HTTP API handler.
type Config struct {
	Engine   engine.Engine
	BasePath string
	Auth     AuthConfig
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"validation_failed"`
	Message string         `json:"message" example:"comment: rejection requires a non-empty comment"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

// apiError models the error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the Staffdesk API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v0"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.DefaultArrayNullable = false
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(newAuthMiddleware(basePath, cfg.Auth, cfg.Engine.Repo))
	hcfg := huma.DefaultConfig("Staffdesk API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = "" // custom Swagger UI below
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerDocs(router, basePath)
	registerHealth(group)
	registerEmployees(group, cfg.Engine)
	registerDepartments(group, cfg.Engine)
	registerProjects(group, cfg.Engine)
	registerChecklist(group, cfg.Engine)
	registerApproval(group, cfg.Engine)
	registerComments(group, cfg.Engine)
	registerAssignments(group, cfg.Engine)
	registerAnalytics(group, cfg.Engine)
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
	var ve engine.ValidationError
	if errors.As(err, &ve) {
		details := map[string]any{}
		if ve.Field != "" {
			details["field"] = ve.Field
		}
		return newAPIError(http.StatusBadRequest, "validation_failed", err.Error(), details)
	}
	var ue approval.UnsupportedActionError
	if errors.As(err, &ue) {
		return newAPIError(http.StatusBadRequest, "unsupported_action", err.Error(), map[string]any{"action": ue.Action})
	}
	if errors.Is(err, repo.ErrNotFound) {
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	}
	msg := err.Error()
	lowered := strings.ToLower(msg)
	switch {
	case strings.Contains(lowered, "unique"):
		return newAPIError(http.StatusConflict, "conflict", msg, nil)
	case strings.Contains(lowered, "invalid") || strings.Contains(lowered, "required"):
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
		io.WriteString(w, swaggerHTML(basePath))
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
	oas.Components.SecuritySchemes["apiKeyAuth"] = &huma.SecurityScheme{
		Type: "apiKey",
		In:   "header",
		Name: "X-Api-Key",
	}
	security := []map[string][]string{
		{"bearerAuth": {}},
		{"apiKeyAuth": {}},
	}
	oas.Security = security
	healthPath := path.Join(basePath, "health")
	if !strings.HasPrefix(healthPath, "/") {
		healthPath = "/" + healthPath
	}
	for route, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Options, item.Head, item.Patch, item.Trace,
		} {
			if op == nil {
				continue
			}
			if route == healthPath {
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
    <title>Staffdesk API Docs</title>
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
      Authenticate with Authorization: Bearer &lt;token&gt; or X-Api-Key.
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

func registerEmployees(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-employee",
		Method:        http.MethodPost,
		Path:          "/employees",
		Summary:       "Create employee",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusConflict, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Body CreateEmployeeRequest `json:"body"`
	}) (*struct {
		Body domain.Employee `json:"body"`
	}, error) {
		if _, authErr := actorFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		emp, err := e.CreateEmployee(ctx, engine.EmployeeCreateOptions{
			Name:      input.Body.Name,
			Email:     input.Body.Email,
			DeptID:    input.Body.DeptID,
			Role:      input.Body.Role,
			ContactNo: input.Body.ContactNo,
			Location:  input.Body.Location,
			About:     input.Body.About,
			Skills:    input.Body.Skills,
			AvatarURL: input.Body.AvatarURL,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Employee `json:"body"`
		}{Body: emp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-employees",
		Method:      http.MethodGet,
		Path:        "/employees",
		Summary:     "List employees",
	}, func(ctx context.Context, input *struct {
		DeptID *int `query:"dept_id"`
		Active bool `query:"active"`
	}) (*struct {
		Body []domain.Employee `json:"body"`
	}, error) {
		items, err := e.Repo.ListEmployees(ctx, input.DeptID, input.Active)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Employee `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-employee",
		Method:      http.MethodGet,
		Path:        "/employees/{employee_id}",
		Summary:     "Get employee",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		EmployeeID int `path:"employee_id"`
	}) (*struct {
		Body domain.Employee `json:"body"`
	}, error) {
		emp, err := e.Repo.GetEmployee(ctx, input.EmployeeID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Employee `json:"body"`
		}{Body: emp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-employee",
		Method:      http.MethodPatch,
		Path:        "/employees/{employee_id}",
		Summary:     "Update employee",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		EmployeeID int                   `path:"employee_id"`
		Body       UpdateEmployeeRequest `json:"body"`
	}) (*struct {
		Body domain.Employee `json:"body"`
	}, error) {
		if _, authErr := actorFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		upd := repo.EmployeeUpdate{
			Name:      input.Body.Name,
			Email:     input.Body.Email,
			DeptID:    input.Body.DeptID,
			Role:      input.Body.Role,
			ContactNo: input.Body.ContactNo,
			IsActive:  input.Body.IsActive,
			Location:  input.Body.Location,
			About:     input.Body.About,
			Skills:    input.Body.Skills,
			AvatarURL: input.Body.AvatarURL,
		}
		if err := e.Repo.UpdateEmployee(ctx, input.EmployeeID, upd); err != nil {
			return nil, handleError(err)
		}
		emp, err := e.Repo.GetEmployee(ctx, input.EmployeeID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Employee `json:"body"`
		}{Body: emp}, nil
	})
}

func registerDepartments(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-department",
		Method:        http.MethodPost,
		Path:          "/departments",
		Summary:       "Create parent department",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		Body CreateDepartmentRequest `json:"body"`
	}) (*struct {
		Body domain.DepartmentParent `json:"body"`
	}, error) {
		if _, authErr := actorFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		d, err := e.CreateDepartmentParent(ctx, input.Body.Name, input.Body.Description)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.DepartmentParent `json:"body"`
		}{Body: d}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-departments",
		Method:      http.MethodGet,
		Path:        "/departments",
		Summary:     "List parent departments",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.DepartmentParent `json:"body"`
	}, error) {
		items, err := e.Repo.ListDepartmentParents(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.DepartmentParent `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-child-department",
		Method:        http.MethodPost,
		Path:          "/departments/{department_id}/children",
		Summary:       "Create child department",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		DepartmentID int                     `path:"department_id"`
		Body         CreateDepartmentRequest `json:"body"`
	}) (*struct {
		Body domain.DepartmentChild `json:"body"`
	}, error) {
		if _, authErr := actorFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		d, err := e.CreateDepartmentChild(ctx, input.DepartmentID, input.Body.Name, input.Body.Description)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.DepartmentChild `json:"body"`
		}{Body: d}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-child-departments",
		Method:      http.MethodGet,
		Path:        "/departments/{department_id}/children",
		Summary:     "List child departments",
	}, func(ctx context.Context, input *struct {
		DepartmentID int `path:"department_id"`
	}) (*struct {
		Body []domain.DepartmentChild `json:"body"`
	}, error) {
		items, err := e.Repo.ListDepartmentChildren(ctx, &input.DepartmentID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.DepartmentChild `json:"body"`
		}{Body: items}, nil
	})
}

func registerProjects(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-project",
		Method:        http.MethodPost,
		Path:          "/projects",
		Summary:       "Create project",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Body CreateProjectRequest `json:"body"`
	}) (*struct {
		Body domain.Project `json:"body"`
	}, error) {
		if _, authErr := actorFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		p, err := e.CreateProject(ctx, engine.ProjectCreateOptions{
			ProjectName: input.Body.ProjectName,
			ClientName:  input.Body.ClientName,
			StartDate:   input.Body.StartDate,
			EndDate:     input.Body.EndDate,
			LeadByEmpID: input.Body.LeadByEmpID,
			Status:      input.Body.Status,
			Overview:    input.Body.Overview,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Project `json:"body"`
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-projects",
		Method:      http.MethodGet,
		Path:        "/projects",
		Summary:     "List projects",
	}, func(ctx context.Context, input *struct {
		Status string `query:"status"`
	}) (*struct {
		Body []domain.Project `json:"body"`
	}, error) {
		items, err := e.Repo.ListProjects(ctx, input.Status)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Project `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-project",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}",
		Summary:     "Get project with history, timeline and comments",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID int `path:"project_id"`
	}) (*struct {
		Body engine.ProjectDetail `json:"body"`
	}, error) {
		detail, err := e.GetProjectDetail(ctx, input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.ProjectDetail `json:"body"`
		}{Body: detail}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-project",
		Method:      http.MethodPatch,
		Path:        "/projects/{project_id}",
		Summary:     "Update project",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID int                  `path:"project_id"`
		Body      UpdateProjectRequest `json:"body"`
	}) (*struct {
		Body domain.Project `json:"body"`
	}, error) {
		if _, authErr := actorFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		upd := repo.ProjectUpdate{
			ProjectName: input.Body.ProjectName,
			ClientName:  input.Body.ClientName,
			StartDate:   input.Body.StartDate,
			EndDate:     input.Body.EndDate,
			LeadByEmpID: input.Body.LeadByEmpID,
			Status:      input.Body.Status,
			Progress:    input.Body.Progress,
			Overview:    input.Body.Overview,
		}
		if err := e.Repo.UpdateProject(ctx, input.ProjectID, upd); err != nil {
			return nil, handleError(err)
		}
		p, err := e.Repo.GetProject(ctx, input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Project `json:"body"`
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "project-history",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/history",
		Summary:     "Approval status history, newest first",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID int `path:"project_id"`
	}) (*struct {
		Body []domain.StatusHistoryEntry `json:"body"`
	}, error) {
		if _, err := e.Repo.GetProject(ctx, input.ProjectID); err != nil {
			return nil, handleError(err)
		}
		items, err := e.Repo.ListStatusHistory(ctx, input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
			items[i], items[j] = items[j], items[i]
		}
		return &struct {
			Body []domain.StatusHistoryEntry `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "project-timeline",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/timeline",
		Summary:     "Project timeline",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID int `path:"project_id"`
	}) (*struct {
		Body []domain.TimelineEntry `json:"body"`
	}, error) {
		if _, err := e.Repo.GetProject(ctx, input.ProjectID); err != nil {
			return nil, handleError(err)
		}
		items, err := e.Repo.ListTimeline(ctx, input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.TimelineEntry `json:"body"`
		}{Body: items}, nil
	})
}

func registerChecklist(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "get-checklist",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/checklist",
		Summary:     "Readiness checklist state",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID int `path:"project_id"`
	}) (*struct {
		Body readiness.State `json:"body"`
	}, error) {
		state, err := e.ChecklistState(ctx, input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body readiness.State `json:"body"`
		}{Body: state}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-checklist",
		Method:      http.MethodPut,
		Path:        "/projects/{project_id}/checklist",
		Summary:     "Replace checklist items and recompute readiness",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID int                    `path:"project_id"`
		Body      UpdateChecklistRequest `json:"body"`
	}) (*struct {
		Body readiness.State `json:"body"`
	}, error) {
		if _, authErr := actorFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		items, fieldErrs := validateChecklist(input.Body)
		if len(fieldErrs) > 0 {
			return nil, newAPIError(http.StatusBadRequest, "validation_failed", "invalid checklist payload", map[string]any{"fields": fieldErrs})
		}
		state, err := e.UpdateChecklist(ctx, input.ProjectID, items)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body readiness.State `json:"body"`
		}{Body: state}, nil
	})
}

func registerApproval(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "apply-approval",
		Method:      http.MethodPost,
		Path:        "/projects/{project_id}/approval",
		Summary:     "Run an approval action",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID int             `path:"project_id"`
		Body      ApprovalRequest `json:"body"`
	}) (*struct {
		Body ApprovalResponse `json:"body"`
	}, error) {
		principal, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		opts := engine.ApprovalOptions{
			ProjectID: input.ProjectID,
			Action:    input.Body.Action,
			ActorID:   input.Body.ActorID,
			ActorName: input.Body.ActorName,
			Comment:   input.Body.Comment,
		}
		if opts.ActorID == nil {
			opts.ActorID = principal.ActorID
		}
		if opts.ActorName == "" {
			opts.ActorName = principal.Name
		}
		p, changed, err := e.ApplyApproval(ctx, opts)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ApprovalResponse `json:"body"`
		}{Body: ApprovalResponse{Changed: changed, Project: p}}, nil
	})
}

func registerComments(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-comment",
		Method:        http.MethodPost,
		Path:          "/projects/{project_id}/comments",
		Summary:       "Add reviewer comment",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID int                  `path:"project_id"`
		Body      CreateCommentRequest `json:"body"`
	}) (*struct {
		Body domain.ReviewerComment `json:"body"`
	}, error) {
		principal, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		c, err := e.AddComment(ctx, engine.CommentOptions{
			ProjectID:    input.ProjectID,
			Section:      input.Body.Section,
			Comment:      input.Body.Comment,
			Severity:     input.Body.Severity,
			ReviewerID:   principal.ActorID,
			ReviewerName: principal.Name,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.ReviewerComment `json:"body"`
		}{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-comments",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/comments",
		Summary:     "List reviewer comments",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID int     `path:"project_id"`
		Section   string  `query:"section"`
		Resolved  *bool   `query:"resolved"`
	}) (*struct {
		Body []domain.ReviewerComment `json:"body"`
	}, error) {
		if _, err := e.Repo.GetProject(ctx, input.ProjectID); err != nil {
			return nil, handleError(err)
		}
		items, err := e.Repo.ListComments(ctx, input.ProjectID, input.Section, input.Resolved)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.ReviewerComment `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "resolve-comment",
		Method:      http.MethodPost,
		Path:        "/comments/{id}/resolve",
		Summary:     "Resolve or reopen a reviewer comment",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   string                `path:"id"`
		Body ResolveCommentRequest `json:"body"`
	}) (*struct {
		Body domain.ReviewerComment `json:"body"`
	}, error) {
		principal, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		c, err := e.ResolveComment(ctx, input.ID, input.Body.Resolved, principal.ActorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.ReviewerComment `json:"body"`
		}{Body: c}, nil
	})
}

func registerAssignments(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-assignment",
		Method:        http.MethodPost,
		Path:          "/assignments",
		Summary:       "Assign employee to project",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		Body CreateAssignmentRequest `json:"body"`
	}) (*struct {
		Body domain.Assignment `json:"body"`
	}, error) {
		if _, authErr := actorFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		a, err := e.CreateAssignment(ctx, engine.AssignmentCreateOptions{
			ProjectID:     input.Body.ProjectID,
			EmpID:         input.Body.EmpID,
			Role:          input.Body.Role,
			AllocationPct: input.Body.AllocationPct,
			AssignedDate:  input.Body.AssignedDate,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Assignment `json:"body"`
		}{Body: a}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-assignments",
		Method:      http.MethodGet,
		Path:        "/assignments",
		Summary:     "List assignments",
	}, func(ctx context.Context, input *struct {
		ProjectID *int `query:"project_id"`
		EmpID     *int `query:"emp_id"`
	}) (*struct {
		Body []domain.Assignment `json:"body"`
	}, error) {
		items, err := e.Repo.ListAssignments(ctx, input.ProjectID, input.EmpID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Assignment `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "release-assignment",
		Method:      http.MethodPost,
		Path:        "/assignments/{id}/release",
		Summary:     "Deactivate an assignment",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID int `path:"id"`
	}) (*struct {
		Body domain.Assignment `json:"body"`
	}, error) {
		if _, authErr := actorFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		if err := e.Repo.ReleaseAssignment(ctx, input.ID); err != nil {
			return nil, handleError(err)
		}
		a, err := e.Repo.GetAssignment(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Assignment `json:"body"`
		}{Body: a}, nil
	})
}

func registerAnalytics(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "readiness-report",
		Method:      http.MethodGet,
		Path:        "/analytics/readiness",
		Summary:     "Readiness recomputed from checklist items",
	}, func(ctx context.Context, input *struct {
		Status string `query:"status"`
	}) (*struct {
		Body engine.ReadinessReport `json:"body"`
	}, error) {
		report, err := e.Readiness(ctx, input.Status)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.ReadinessReport `json:"body"`
		}{Body: report}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "allocation-report",
		Method:      http.MethodGet,
		Path:        "/analytics/allocations",
		Summary:     "Allocation totals per employee",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []engine.AllocationRow `json:"body"`
	}, error) {
		rows, err := e.Allocations(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []engine.AllocationRow `json:"body"`
		}{Body: rows}, nil
	})
}
