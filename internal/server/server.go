/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package server exposes the preparation engine over HTTP. Each session is a
// server-side wizard instance; the UI sends intent-level calls (place, move,
// advance, submit) and receives a full session snapshot back.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"sigflow/internal/board"
	"sigflow/internal/domain"
	"sigflow/internal/events"
	"sigflow/internal/intake"
	"sigflow/internal/roster"
	"sigflow/internal/session"
	"sigflow/internal/submit"
	"sigflow/internal/workflow"
)

// Config for the HTTP API handler.
type Config struct {
	Manager   *session.Manager
	Directory intake.Directory
	Provider  session.Submitter
	BasePath  string
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"locked_recipient"`
	Message string         `json:"message" example:"recipient has already signed"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

// apiError models the error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the preparation API.
func New(cfg Config) (http.Handler, error) {
	if cfg.Manager == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v1"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}

	router := chi.NewRouter()
	hcfg := huma.DefaultConfig("SigFlow API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerHealth(group)
	registerSessions(group, cfg.Manager)
	registerDetails(group, cfg.Manager)
	registerRecipients(group, cfg.Manager)
	registerFields(group, cfg.Manager)
	registerNavigation(group, cfg.Manager)
	registerSubmit(group, cfg.Manager, cfg.Provider)
	registerDirectory(group, cfg.Directory)

	return router, nil
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body:   apiErrorBody{Code: code, Message: message, Details: details},
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
	default:
		return "error"
	}
}

// handleError maps engine errors onto the envelope. Everything the engine
// raises is recoverable; nothing here maps to a 5xx.
func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	var locked roster.LockedRecipientError
	if errors.As(err, &locked) {
		return newAPIError(http.StatusConflict, "locked_recipient", err.Error(), map[string]any{"recipientId": locked.ID})
	}
	var ve *workflow.ValidationError
	if errors.As(err, &ve) {
		steps := make([]string, len(ve.Incomplete))
		for i, s := range ve.Incomplete {
			steps[i] = string(s)
		}
		return newAPIError(http.StatusUnprocessableEntity, "validation_failed", err.Error(), map[string]any{"incompleteSteps": steps})
	}
	var ef intake.EmailFormatError
	if errors.As(err, &ef) {
		return newAPIError(http.StatusBadRequest, "email_format", err.Error(), map[string]any{"field": ef.Field})
	}
	var unresolved board.UnresolvedReferenceError
	if errors.As(err, &unresolved) {
		return newAPIError(http.StatusNotFound, "unresolved_reference", err.Error(), map[string]any{"recipientId": unresolved.RecipientID})
	}
	if strings.Contains(strings.ToLower(err.Error()), "not found") {
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	}
	return newAPIError(http.StatusBadRequest, "bad_request", err.Error(), nil)
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body struct {
			Status string `json:"status"`
		} `json:"body"`
	}, error) {
		out := &struct {
			Body struct {
				Status string `json:"status"`
			} `json:"body"`
		}{}
		out.Body.Status = "ok"
		return out, nil
	})
}

type sessionOut struct {
	Body SessionResponse `json:"body"`
}

// withSnapshot runs fn under the session lock and returns the post-mutation
// snapshot.
func withSnapshot(m *session.Manager, id string, fn func(*session.Session) error) (*sessionOut, error) {
	var out sessionOut
	err := m.With(id, func(s *session.Session) error {
		if err := fn(s); err != nil {
			return err
		}
		out.Body = snapshot(s)
		return nil
	})
	if err != nil {
		return nil, handleError(err)
	}
	return &out, nil
}

func registerSessions(api huma.API, m *session.Manager) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-session",
		Method:        http.MethodPost,
		Path:          "/sessions",
		Summary:       "Start a template or send session",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body CreateSessionRequest `json:"body"`
	}) (*sessionOut, error) {
		s, err := m.Create(input.Body.View)
		if err != nil {
			return nil, handleError(err)
		}
		return withSnapshot(m, s.ID, func(*session.Session) error { return nil })
	})

	huma.Register(api, huma.Operation{
		OperationID:   "import-session",
		Method:        http.MethodPost,
		Path:          "/sessions/import",
		Summary:       "Start an edit or verify session from an existing request",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body ImportSessionRequest `json:"body"`
	}) (*sessionOut, error) {
		order := input.Body.SigningOrder
		if order == "" {
			order = domain.Sequential
		}
		s, err := m.CreateFromExisting(input.Body.View, session.Existing{
			Details:    input.Body.Details,
			Document:   input.Body.Document,
			Order:      order,
			Recipients: input.Body.Recipients,
			Fields:     input.Body.Fields,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return withSnapshot(m, s.ID, func(*session.Session) error { return nil })
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-session",
		Method:      http.MethodGet,
		Path:        "/sessions/{session_id}",
		Summary:     "Get session snapshot",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		SessionID string `path:"session_id"`
	}) (*sessionOut, error) {
		return withSnapshot(m, input.SessionID, func(*session.Session) error { return nil })
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-session",
		Method:        http.MethodDelete,
		Path:          "/sessions/{session_id}",
		Summary:       "Discard a session",
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *struct {
		SessionID string `path:"session_id"`
	}) (*struct{}, error) {
		m.Delete(input.SessionID)
		return nil, nil
	})
}

func registerDetails(api huma.API, m *session.Manager) {
	huma.Register(api, huma.Operation{
		OperationID: "set-details",
		Method:      http.MethodPut,
		Path:        "/sessions/{session_id}/details",
		Summary:     "Set request metadata",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		SessionID string `path:"session_id"`
		Body      struct {
			Name        string `json:"name"`
			Year        int    `json:"year"`
			Category    string `json:"category"`
			Description string `json:"description,omitempty"`
		} `json:"body"`
	}) (*sessionOut, error) {
		return withSnapshot(m, input.SessionID, func(s *session.Session) error {
			s.SetDetails(submit.Details{
				Name:        input.Body.Name,
				Year:        input.Body.Year,
				Category:    input.Body.Category,
				Description: input.Body.Description,
			})
			return nil
		})
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-categories",
		Method:      http.MethodGet,
		Path:        "/categories",
		Summary:     "List suggested request categories",
	}, func(ctx context.Context, input *struct{}) (*struct {
		Body []string `json:"body"`
	}, error) {
		return &struct {
			Body []string `json:"body"`
		}{Body: submit.SuggestedCategories}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "attach-document",
		Method:      http.MethodPost,
		Path:        "/sessions/{session_id}/document",
		Summary:     "Attach the uploaded document",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		SessionID string `path:"session_id"`
		Body      struct {
			Filename    string `json:"filename"`
			ContentType string `json:"contentType"`
			PageCount   int    `json:"pageCount"`
		} `json:"body"`
	}) (*sessionOut, error) {
		return withSnapshot(m, input.SessionID, func(s *session.Session) error {
			return s.AttachDocument(submit.Document{
				Filename:    input.Body.Filename,
				ContentType: input.Body.ContentType,
				PageCount:   input.Body.PageCount,
			})
		})
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-zoom",
		Method:      http.MethodPut,
		Path:        "/sessions/{session_id}/zoom",
		Summary:     "Set canvas zoom",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		SessionID string `path:"session_id"`
		Body      struct {
			Percent int `json:"percent"`
		} `json:"body"`
	}) (*sessionOut, error) {
		return withSnapshot(m, input.SessionID, func(s *session.Session) error {
			s.SetZoom(input.Body.Percent)
			return nil
		})
	})
}

func registerRecipients(api huma.API, m *session.Manager) {
	huma.Register(api, huma.Operation{
		OperationID:   "add-external-recipient",
		Method:        http.MethodPost,
		Path:          "/sessions/{session_id}/recipients/external",
		Summary:       "Add a hand-entered recipient",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		SessionID string             `path:"session_id"`
		Body      AddExternalRequest `json:"body"`
	}) (*sessionOut, error) {
		return withSnapshot(m, input.SessionID, func(s *session.Session) error {
			_, err := s.Picker().CommitExternal(input.Body.Name, input.Body.Email)
			return err
		})
	})

	huma.Register(api, huma.Operation{
		OperationID:   "add-client-recipient",
		Method:        http.MethodPost,
		Path:          "/sessions/{session_id}/recipients/client",
		Summary:       "Add a directory client",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		SessionID string        `path:"session_id"`
		Body      domain.Client `json:"body"`
	}) (*sessionOut, error) {
		return withSnapshot(m, input.SessionID, func(s *session.Session) error {
			_, err := s.Picker().CommitClient(input.Body)
			return err
		})
	})

	huma.Register(api, huma.Operation{
		OperationID:   "add-client-spouse-pair",
		Method:        http.MethodPost,
		Path:          "/sessions/{session_id}/recipients/client-spouse",
		Summary:       "Add a client and spouse placeholder as a pair",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		SessionID string        `path:"session_id"`
		Body      domain.Client `json:"body"`
	}) (*sessionOut, error) {
		return withSnapshot(m, input.SessionID, func(s *session.Session) error {
			_, _, err := s.Picker().CommitClientAndSpouse(input.Body)
			return err
		})
	})

	huma.Register(api, huma.Operation{
		OperationID:   "add-firm-recipient",
		Method:        http.MethodPost,
		Path:          "/sessions/{session_id}/recipients/firm",
		Summary:       "Add a firm member",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		SessionID string            `path:"session_id"`
		Body      domain.FirmMember `json:"body"`
	}) (*sessionOut, error) {
		return withSnapshot(m, input.SessionID, func(s *session.Session) error {
			_, err := s.Picker().CommitFirmMember(input.Body)
			return err
		})
	})

	huma.Register(api, huma.Operation{
		OperationID: "remove-recipient",
		Method:      http.MethodDelete,
		Path:        "/sessions/{session_id}/recipients/{recipient_id}",
		Summary:     "Remove a recipient and cascade its fields",
		Errors:      []int{http.StatusConflict, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		SessionID   string `path:"session_id"`
		RecipientID string `path:"recipient_id"`
	}) (*sessionOut, error) {
		return withSnapshot(m, input.SessionID, func(s *session.Session) error {
			return s.Roster().Remove(input.RecipientID)
		})
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-recipient-email",
		Method:      http.MethodPut,
		Path:        "/sessions/{session_id}/recipients/{recipient_id}/email",
		Summary:     "Update a recipient's email",
		Errors:      []int{http.StatusBadRequest, http.StatusConflict, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		SessionID   string `path:"session_id"`
		RecipientID string `path:"recipient_id"`
		Body        struct {
			Email string `json:"email"`
		} `json:"body"`
	}) (*sessionOut, error) {
		return withSnapshot(m, input.SessionID, func(s *session.Session) error {
			if !intake.ValidEmail(input.Body.Email) {
				return intake.EmailFormatError{Field: "email", Value: input.Body.Email}
			}
			return s.Roster().UpdateEmail(input.RecipientID, input.Body.Email)
		})
	})

	huma.Register(api, huma.Operation{
		OperationID: "reorder-recipients",
		Method:      http.MethodPost,
		Path:        "/sessions/{session_id}/recipients/reorder",
		Summary:     "Move a recipient between roster positions",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		SessionID string         `path:"session_id"`
		Body      ReorderRequest `json:"body"`
	}) (*sessionOut, error) {
		return withSnapshot(m, input.SessionID, func(s *session.Session) error {
			return s.Roster().Reorder(input.Body.From, input.Body.To)
		})
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-signing-order",
		Method:      http.MethodPut,
		Path:        "/sessions/{session_id}/signing-order",
		Summary:     "Set sequential or simultaneous signing",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		SessionID string `path:"session_id"`
		Body      struct {
			Order domain.SigningOrder `json:"order"`
		} `json:"body"`
	}) (*sessionOut, error) {
		return withSnapshot(m, input.SessionID, func(s *session.Session) error {
			s.Roster().SetSigningOrder(input.Body.Order)
			return nil
		})
	})
}

func registerFields(api huma.API, m *session.Manager) {
	huma.Register(api, huma.Operation{
		OperationID:   "place-field",
		Method:        http.MethodPost,
		Path:          "/sessions/{session_id}/fields",
		Summary:       "Place a field",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		SessionID string            `path:"session_id"`
		Body      PlaceFieldRequest `json:"body"`
	}) (*sessionOut, error) {
		return withSnapshot(m, input.SessionID, func(s *session.Session) error {
			_, err := s.Board().Place(input.Body.Type, input.Body.RecipientID, input.Body.Page, input.Body.X, input.Body.Y)
			if err != nil {
				return err
			}
			s.Refresh()
			return nil
		})
	})

	huma.Register(api, huma.Operation{
		OperationID: "move-field",
		Method:      http.MethodPut,
		Path:        "/sessions/{session_id}/fields/{field_id}/position",
		Summary:     "Move a field",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		SessionID string           `path:"session_id"`
		FieldID   string           `path:"field_id"`
		Body      MoveFieldRequest `json:"body"`
	}) (*sessionOut, error) {
		return withSnapshot(m, input.SessionID, func(s *session.Session) error {
			return s.Board().Move(input.FieldID, input.Body.X, input.Body.Y)
		})
	})

	huma.Register(api, huma.Operation{
		OperationID: "resize-field",
		Method:      http.MethodPut,
		Path:        "/sessions/{session_id}/fields/{field_id}/size",
		Summary:     "Resize a field",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		SessionID string             `path:"session_id"`
		FieldID   string             `path:"field_id"`
		Body      ResizeFieldRequest `json:"body"`
	}) (*sessionOut, error) {
		return withSnapshot(m, input.SessionID, func(s *session.Session) error {
			return s.Board().Resize(input.FieldID, input.Body.Width, input.Body.Height)
		})
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-field",
		Method:      http.MethodDelete,
		Path:        "/sessions/{session_id}/fields/{field_id}",
		Summary:     "Delete a field",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		SessionID string `path:"session_id"`
		FieldID   string `path:"field_id"`
	}) (*sessionOut, error) {
		return withSnapshot(m, input.SessionID, func(s *session.Session) error {
			return s.Board().Delete(input.FieldID)
		})
	})
}

func registerNavigation(api huma.API, m *session.Manager) {
	huma.Register(api, huma.Operation{
		OperationID: "advance-step",
		Method:      http.MethodPost,
		Path:        "/sessions/{session_id}/workflow/advance",
		Summary:     "Advance to the next wizard step",
		Errors:      []int{http.StatusNotFound, http.StatusUnprocessableEntity},
	}, func(ctx context.Context, input *struct {
		SessionID string `path:"session_id"`
	}) (*sessionOut, error) {
		return withSnapshot(m, input.SessionID, func(s *session.Session) error {
			return s.Workflow().Advance()
		})
	})

	huma.Register(api, huma.Operation{
		OperationID: "go-back-step",
		Method:      http.MethodPost,
		Path:        "/sessions/{session_id}/workflow/back",
		Summary:     "Return to the previous wizard step",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		SessionID string `path:"session_id"`
	}) (*sessionOut, error) {
		return withSnapshot(m, input.SessionID, func(s *session.Session) error {
			s.Workflow().GoBack()
			return nil
		})
	})

	huma.Register(api, huma.Operation{
		OperationID: "jump-to-step",
		Method:      http.MethodPost,
		Path:        "/sessions/{session_id}/workflow/jump",
		Summary:     "Jump to a previously visited step",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		SessionID string `path:"session_id"`
		Body      struct {
			Step workflow.Step `json:"step"`
		} `json:"body"`
	}) (*sessionOut, error) {
		return withSnapshot(m, input.SessionID, func(s *session.Session) error {
			return s.Workflow().JumpTo(input.Body.Step)
		})
	})
}

func registerSubmit(api huma.API, m *session.Manager, provider session.Submitter) {
	huma.Register(api, huma.Operation{
		OperationID: "submit-session",
		Method:      http.MethodPost,
		Path:        "/sessions/{session_id}/submit",
		Summary:     "Validate all steps and send the request to the provider",
		Errors:      []int{http.StatusNotFound, http.StatusUnprocessableEntity, http.StatusBadGateway},
	}, func(ctx context.Context, input *struct {
		SessionID string `path:"session_id"`
	}) (*struct {
		Body SubmitResponse `json:"body"`
	}, error) {
		if provider == nil {
			return nil, newAPIError(http.StatusBadGateway, "no_provider", "no signing provider configured", nil)
		}
		var out struct {
			Body SubmitResponse `json:"body"`
		}
		err := m.With(input.SessionID, func(s *session.Session) error {
			receipt, err := s.Submit(ctx, provider)
			if err != nil {
				return err
			}
			out.Body = SubmitResponse{RequestID: receipt.RequestID, Status: receipt.Status}
			events.Emit("request.submitted", map[string]any{"view": string(s.Kind), "status": receipt.Status})
			return nil
		})
		if err != nil {
			var ve *workflow.ValidationError
			if errors.As(err, &ve) {
				return nil, handleError(err)
			}
			if strings.Contains(strings.ToLower(err.Error()), "not found") {
				return nil, handleError(err)
			}
			return nil, newAPIError(http.StatusBadGateway, "provider_error", err.Error(), nil)
		}
		return &out, nil
	})
}

func registerDirectory(api huma.API, dir intake.Directory) {
	huma.Register(api, huma.Operation{
		OperationID: "search-clients",
		Method:      http.MethodGet,
		Path:        "/directory/clients",
		Summary:     "Search directory clients",
		Errors:      []int{http.StatusBadGateway},
	}, func(ctx context.Context, input *struct {
		Query string `query:"q"`
	}) (*struct {
		Body []domain.Client `json:"body"`
	}, error) {
		if dir == nil {
			return nil, newAPIError(http.StatusBadGateway, "no_directory", "no directory configured", nil)
		}
		items, err := dir.SearchClients(ctx, input.Query)
		if err != nil {
			return nil, newAPIError(http.StatusBadGateway, "directory_error", err.Error(), nil)
		}
		out := &struct {
			Body []domain.Client `json:"body"`
		}{Body: items}
		if out.Body == nil {
			out.Body = []domain.Client{}
		}
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "search-firm-members",
		Method:      http.MethodGet,
		Path:        "/directory/members",
		Summary:     "Search active firm members",
		Errors:      []int{http.StatusBadGateway},
	}, func(ctx context.Context, input *struct {
		Query string `query:"q"`
	}) (*struct {
		Body []domain.FirmMember `json:"body"`
	}, error) {
		if dir == nil {
			return nil, newAPIError(http.StatusBadGateway, "no_directory", "no directory configured", nil)
		}
		members, err := dir.SearchFirmMembers(ctx, input.Query)
		if err != nil {
			return nil, newAPIError(http.StatusBadGateway, "directory_error", err.Error(), nil)
		}
		active := make([]domain.FirmMember, 0, len(members))
		for _, m := range members {
			if m.IsActive {
				active = append(active, m)
			}
		}
		return &struct {
			Body []domain.FirmMember `json:"body"`
		}{Body: active}, nil
	})
}
